package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteStill writes a stand-in still of exactly size bytes at path. The
// payload is framed with JPEG SOI/EOI markers; the size is what matters
// to the bytesize comparator, not decodable image data. A size below the
// four marker bytes is padded up to them.
func WriteStill(t testing.TB, path string, size int64) {
	t.Helper()

	if size < 4 {
		size = 4
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	data := make([]byte, size)
	data[0], data[1] = 0xFF, 0xD8
	for i := int64(2); i < size-2; i++ {
		data[i] = byte(i % 251)
	}
	data[size-2], data[size-1] = 0xFF, 0xD9

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write still %s: %v", path, err)
	}
}
