package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestFindSurveyFiles(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "only survey files",
			files:    []string{"b_OS150.nc", "a_OS38.nc"},
			expected: []string{"a_OS38.nc", "b_OS150.nc"},
		},
		{
			name:     "mixed file types",
			files:    []string{"survey.nc", "zarr_table.csv", "notes.txt"},
			expected: []string{"survey.nc"},
		},
		{
			name:     "empty directory",
			files:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			archive := filepath.Join(base, "archive")
			require.NoError(t, os.MkdirAll(archive, 0755))
			touch(t, archive, tt.files...)

			found, err := NewDiscovery(base).FindSurveyFiles("archive")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, Names(found))
		})
	}
}

func TestFindSurveyFilesMissingDir(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindSurveyFiles("absent")
	assert.Error(t, err)
}
