package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGetAllSourceFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.js"), "function a() {}")
	writeFile(t, filepath.Join(root, "lib", "util.mjs"), "function b() {}")
	writeFile(t, filepath.Join(root, "lib", "notes.txt"), "not code")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "function c() {}")
	writeFile(t, filepath.Join(root, "generated", "out.js"), "function d() {}")
	writeFile(t, filepath.Join(root, "scratch.js"), "function e() {}")
	writeFile(t, filepath.Join(root, ".gitignore"), "generated/\nscratch.js\n")

	files, err := GetAllSourceFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "index.js"),
		filepath.Join(root, "lib", "util.mjs"),
	}, files)

	dirs, err := GetSourceDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "lib")}, dirs)
}

func TestExpandPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.js"), "function a() {}")
	writeFile(t, filepath.Join(root, "single.txt"), "function b() {}")

	got, err := ExpandPaths([]string{filepath.Join(root, "single.txt"), filepath.Join(root, "src")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "single.txt"), filepath.Join(root, "src", "a.js")}, got)

	_, err = ExpandPaths([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}
