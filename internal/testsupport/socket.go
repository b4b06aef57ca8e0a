package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// ShortSocketPath returns a socket path inside a fresh temp directory. The
// directory lives directly under os.TempDir because t.TempDir paths can exceed
// the sun_path limit on macOS.
func ShortSocketPath(t testing.TB) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "oqc")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return filepath.Join(dir, "osquery.em")
}

// FileExists reports whether path exists.
func FileExists(t testing.TB, path string) bool {
	t.Helper()

	_, err := os.Lstat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return false
}
