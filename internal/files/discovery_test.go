package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

func TestFindCSVFiles(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "sorted by name",
			files:    []string{"2023.csv", "2021.csv", "2022.CSV"},
			expected: []string{"2021.csv", "2022.CSV", "2023.csv"},
		},
		{
			name:     "ignores other extensions",
			files:    []string{"valores.csv", "notes.txt", "report.xlsx"},
			expected: []string{"valores.csv"},
		},
		{
			name:     "empty directory",
			files:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, dir, f, "x")
			}
			require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0755))

			found, err := NewDiscovery("").FindCSVFiles(dir)
			require.NoError(t, err)

			var names []string
			for _, f := range found {
				names = append(names, f.Name)
				assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestFindCSVFiles_RelativeToBase(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "input"), 0755))
	touch(t, filepath.Join(base, "input"), "a.csv", "x")

	found, err := NewDiscovery(base).FindCSVFiles("input")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{filepath.Join(base, "input", "a.csv")}, Paths(found))
}

func TestFindCSVFiles_MissingDirectory(t *testing.T) {
	_, err := NewDiscovery("").FindCSVFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFindFilesByPattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "valores_2022.csv", "x")
	touch(t, dir, "valores_2021.csv", "x")
	touch(t, dir, "other.csv", "x")

	found, err := NewDiscovery("").FindFilesByPattern(dir, "valores_*.csv")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "valores_2021.csv", found[0].Name)

	_, err = NewDiscovery("").FindFilesByPattern(dir, "[")
	assert.Error(t, err)
}
