package feed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// snapshotFile is the on-disk layout of an exported analyzer run:
//
//	commits:
//	  - sha: 3f2a...
//	    smells:
//	      - type: LIC
//	        instance: com.acme.Foo$Inner
//	        file: src/main/java/com/acme/Foo.java
type snapshotFile struct {
	Commits []struct {
		SHA    string                 `yaml:"sha"`
		Smells []models.SmellInstance `yaml:"smells"`
	} `yaml:"commits"`
}

// LoadFile reads a YAML snapshot export into a Memory feed. A commit listed
// with no smells is covered and clean.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read smell file %s: %w", path, err)
	}
	return ParseYAML(data)
}

func ParseYAML(data []byte) (*Memory, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse smell file: %w", err)
	}
	m := NewMemory()
	for i, c := range f.Commits {
		if c.SHA == "" {
			return nil, fmt.Errorf("smell file entry %d has no sha", i)
		}
		for _, s := range c.Smells {
			if s.Type == "" || s.Instance == "" {
				return nil, fmt.Errorf("commit %s: smell needs type and instance", c.SHA)
			}
		}
		m.Set(c.SHA, c.Smells...)
	}
	return m, nil
}
