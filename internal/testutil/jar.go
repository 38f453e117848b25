// Package testutil builds jar fixtures and fake JDK tools for tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Entries maps archive entry names to contents. Names ending in "/" are
// written as directory entries.
type Entries map[string]string

// ModularEntries is a jar with a root module descriptor.
func ModularEntries() Entries {
	return Entries{
		"META-INF/MANIFEST.MF":  "Manifest-Version: 1.0\n",
		"module-info.class":     "\xca\xfe\xba\xbe",
		"com/example/Lib.class": "\xca\xfe\xba\xbe",
		"com/example/":          "",
		"META-INF/":             "",
	}
}

// PlainEntries is a jar without any module descriptor.
func PlainEntries() Entries {
	return Entries{
		"META-INF/":            "",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\n",
		"org/plain/":           "",
		"org/plain/Util.class": "\xca\xfe\xba\xbe",
	}
}

// MultiReleaseEntries is a multi-release jar whose only descriptor lives in
// the given shard.
func MultiReleaseEntries(shard string) Entries {
	e := PlainEntries()
	e["META-INF/MANIFEST.MF"] = "Manifest-Version: 1.0\nMulti-Release: true\n"
	e["META-INF/versions/"] = ""
	e["META-INF/versions/"+shard+"/"] = ""
	e["META-INF/versions/"+shard+"/module-info.class"] = "\xca\xfe\xba\xbe"
	return e
}

// JarBytes encodes entries as a zip archive with a deterministic entry order.
func JarBytes(t *testing.T, entries Entries) []byte {
	t.Helper()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			if _, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store}); err != nil {
				t.Fatalf("create dir entry %s: %v", name, err)
			}
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteJar writes a jar named name into dir and returns its path.
func WriteJar(t *testing.T, dir, name string, entries Entries) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, JarBytes(t, entries), 0o644); err != nil {
		t.Fatalf("write jar %s: %v", path, err)
	}
	return path
}

// ReadEntries returns the names in a jar on disk.
func ReadEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

// MustRead returns a file's content.
func MustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
