package testutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// WriteTree writes files (relative path -> content) under root on fs,
// creating parent directories as needed.
func WriteTree(t testing.TB, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		WriteFile(t, fs, filepath.Join(root, rel), content)
	}
}

// WriteFile writes a single file and its parent directories.
// It fails the test if the file cannot be created.
func WriteFile(t testing.TB, fs afero.Fs, path, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create parent directories for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create file %s: %v", path, err)
	}
}

// ReadFile returns the content of path, failing the test when it is missing.
func ReadFile(t testing.TB, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists reports whether path exists and is a regular file.
func FileExists(t testing.TB, fs afero.Fs, path string) bool {
	t.Helper()
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
