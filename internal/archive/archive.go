// Package archive answers whether a jar already declares a module boundary.
package archive

import (
	"strings"

	"github.com/klauspost/compress/zip"

	"modpatch/internal/errors"
)

// Entries is the read-only view of an archive the probe needs.
type Entries interface {
	// Has reports whether an entry exists, matching name or name + "/".
	Has(name string) bool
	// HasDir reports whether a directory exists, explicitly or as the parent of any entry.
	HasDir(name string) bool
}

// Archive is an opened jar.
type Archive struct {
	Path  string
	rc    *zip.ReadCloser
	names map[string]struct{}
}

// Open opens path as a zip archive. Failure is an ARCHIVE_OPEN_FAILURE.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.New(errors.ArchiveOpenFailure, "cannot open archive", err).ForArtifact(path)
	}
	names := make(map[string]struct{}, len(rc.File))
	for _, f := range rc.File {
		names[f.Name] = struct{}{}
	}
	return &Archive{Path: path, rc: rc, names: names}, nil
}

// Has implements Entries.
func (a *Archive) Has(name string) bool {
	if _, ok := a.names[name]; ok {
		return true
	}
	_, ok := a.names[name+"/"]
	return ok
}

// HasDir implements Entries.
func (a *Archive) HasDir(name string) bool {
	if a.Has(name) {
		return true
	}
	prefix := strings.TrimSuffix(name, "/") + "/"
	for n := range a.names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

// Files exposes the underlying entries in archive order.
func (a *Archive) Files() []*zip.File {
	return a.rc.File
}

// Close releases the archive.
func (a *Archive) Close() error {
	return a.rc.Close()
}
