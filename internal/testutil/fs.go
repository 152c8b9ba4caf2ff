package testutil

import (
	"compress/bzip2"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// ReadBzip2 decompresses the bzip2 file at path and returns its contents.
func ReadBzip2(t *testing.T, path string) []byte {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(bzip2.NewReader(f))
	if err != nil {
		t.Fatalf("decompress %s: %v", path, err)
	}
	return data
}

// WriteFile creates a file with the given contents under dir, creating
// parent directories as needed, and returns its path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// FileExists reports whether path exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("stat %s: %v", path, err)
	return false
}
