package ingestion

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/smelltracker/internal/models"
)

type projectsFile struct {
	Projects []struct {
		Name       string `yaml:"name"`
		Repository string `yaml:"repository"`
		Feed       string `yaml:"feed"`
	} `yaml:"projects"`
}

// LoadProjects reads a YAML project list. Relative repository and feed
// paths are resolved against the directory of the list.
func LoadProjects(path string) ([]*models.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project list: %w", err)
	}

	var file projectsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse project list %s: %w", path, err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool)
	projects := make([]*models.Project, 0, len(file.Projects))
	for i, p := range file.Projects {
		if p.Name == "" || p.Repository == "" {
			return nil, fmt.Errorf("project %d in %s needs a name and a repository", i, path)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("project %s is listed twice", p.Name)
		}
		seen[p.Name] = true

		project := &models.Project{Name: p.Name, Repository: p.Repository}
		if !isRemote(p.Repository) {
			project.Repository = resolve(base, p.Repository)
		}
		if p.Feed != "" {
			project.FeedPath = resolve(base, p.Feed)
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
