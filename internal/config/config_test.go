package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProjectRootFindsMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vela.yaml"), []byte("stdlib_path: stdlib\n"), 0o644))

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	root, ok := FindProjectRoot(sub)
	require.True(t, ok)
	assert.Equal(t, dir, root)
}

func TestFindProjectRootNoMarker(t *testing.T) {
	dir := t.TempDir()
	_, ok := FindProjectRoot(dir)
	assert.False(t, ok)
}

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.StdlibPath)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := "stdlib_path: /opt/vela/stdlib\nsearch_paths:\n  - vendor\nuniqueness: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vela.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/opt/vela/stdlib", cfg.StdlibPath)
	assert.Equal(t, []string{"vendor"}, cfg.SearchPaths)
	assert.True(t, cfg.Uniqueness)
}

func TestResolveStdlibPathAbsolute(t *testing.T) {
	cfg := &Config{StdlibPath: "/abs/stdlib"}
	assert.Equal(t, "/abs/stdlib", cfg.ResolveStdlibPath("/proj"))
}

func TestResolveStdlibPathRelative(t *testing.T) {
	cfg := &Config{StdlibPath: "stdlib"}
	assert.Equal(t, filepath.Join("/proj", "stdlib"), cfg.ResolveStdlibPath("/proj"))
}
