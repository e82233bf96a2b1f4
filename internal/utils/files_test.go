package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("entities: []\n"), 0o644))
}

func TestFindDefinitionFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "shop.yml"))
	touch(t, filepath.Join(dir, "nested", "blog.yaml"))
	touch(t, filepath.Join(dir, "metamodel.yml"))
	touch(t, filepath.Join(dir, "README.md"))
	touch(t, filepath.Join(dir, ".git", "config.yml"))

	files, err := FindDefinitionFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "nested", "blog.yaml"),
		filepath.Join(dir, "shop.yml"),
	}, files)
}

func TestFindDefinitionFiles_MissingDir(t *testing.T) {
	_, err := FindDefinitionFiles(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "models", "a.yml")
	b := filepath.Join(dir, "models", "b.yml")
	touch(t, a)
	touch(t, b)
	missing := filepath.Join(dir, "missing.yml")

	paths, err := ExpandPaths([]string{b, filepath.Join(dir, "models"), missing})
	require.NoError(t, err)
	assert.Equal(t, []string{b, a, missing}, paths)
}

func TestIsDefinitionFile(t *testing.T) {
	assert.True(t, IsDefinitionFile("shop.yml"))
	assert.True(t, IsDefinitionFile("shop.yaml"))
	assert.False(t, IsDefinitionFile("shop.json"))
}
