package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/smelltracker/internal/models"
)

func TestParseShowOutput(t *testing.T) {
	output := "10\t2\tsrc/main/java/com/acme/Foo.java\n" +
		"-\t-\tdocs/logo.png\n" +
		"3\t3\tsrc/main/java/com/acme/{old => fresh}/Bar.java\n" +
		"\n" +
		" create mode 100644 docs/logo.png\n" +
		" rename src/main/java/com/acme/{old => fresh}/Bar.java (87%)\n" +
		" rename README.md => README.txt (100%)\n"

	d := ParseShowOutput("abc", output)
	assert.Equal(t, 3, d.FilesChanged)
	assert.Equal(t, 13, d.Additions)
	assert.Equal(t, 5, d.Deletions)
	require.Len(t, d.Renames, 2)
	assert.Equal(t, models.FileRename{
		CommitSHA:  "abc",
		OldFile:    "src/main/java/com/acme/old/Bar.java",
		NewFile:    "src/main/java/com/acme/fresh/Bar.java",
		Similarity: 87,
	}, d.Renames[0])
	assert.Equal(t, "README.txt", d.Renames[1].NewFile)
}

func TestExpandRenamePath(t *testing.T) {
	tests := []struct {
		in       string
		old, new string
	}{
		{"a/{b => c}/F.java", "a/b/F.java", "a/c/F.java"},
		{"a/{ => c}/F.java", "a/F.java", "a/c/F.java"},
		{"{a => b}/F.java", "a/F.java", "b/F.java"},
		{"Old.java => New.java", "Old.java", "New.java"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			o, n := expandRenamePath(tt.in)
			assert.Equal(t, tt.old, o)
			assert.Equal(t, tt.new, n)
		})
	}
}

func TestDetailsReaderFilter(t *testing.T) {
	dr := NewDetailsReader(".", 0)
	assert.Equal(t, 50, dr.similarity)
	kept := dr.filter([]models.FileRename{
		{OldFile: "a.java", NewFile: "b.java"},
		{OldFile: "a.md", NewFile: "b.md"},
	})
	require.Len(t, kept, 1)
	assert.Equal(t, "b.java", kept[0].NewFile)
}
