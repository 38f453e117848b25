package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"modpatch/internal/errors"
)

// MapFileVersion is the only supported schema version.
const MapFileVersion = 1

// MapEntry pins one artifact to a work-area directory.
type MapEntry struct {
	// File is the artifact's base filename, e.g. "foo-bar-1.0.jar".
	File string `toml:"file"`

	// Module is the work-area subdirectory jdeps wrote the descriptor to.
	Module string `toml:"module"`
}

// MapFile is the root of a descriptor map file.
type MapFile struct {
	Version   int        `toml:"version"`
	Artifacts []MapEntry `toml:"artifact"`
}

// ParseMapFile reads and validates a descriptor map file.
func ParseMapFile(path string) (*MapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Newf(errors.ConfigurationError, err, "failed to read descriptor map %s", path)
	}

	var mf MapFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, errors.Newf(errors.ConfigurationError, err, "failed to parse descriptor map %s", path)
	}
	if err := mf.Validate(); err != nil {
		return nil, errors.Newf(errors.ConfigurationError, err, "invalid descriptor map %s", path)
	}
	return &mf, nil
}

// Validate checks the schema version and each entry.
func (mf *MapFile) Validate() error {
	if mf.Version != MapFileVersion {
		return fmt.Errorf("unsupported version %d (expected %d)", mf.Version, MapFileVersion)
	}

	seen := make(map[string]string, len(mf.Artifacts))
	for i, a := range mf.Artifacts {
		if a.File == "" || a.Module == "" {
			return fmt.Errorf("artifact %d: file and module are required", i)
		}
		if filepath.Base(a.File) != a.File {
			return fmt.Errorf("artifact %d: file must be a base name, got %q", i, a.File)
		}
		if strings.ContainsAny(a.Module, `/\`) || a.Module == "." || a.Module == ".." {
			return fmt.Errorf("artifact %d: module must be a directory name, got %q", i, a.Module)
		}
		if prev, ok := seen[a.File]; ok && prev != a.Module {
			return fmt.Errorf("artifact %s mapped to both %s and %s", a.File, prev, a.Module)
		}
		seen[a.File] = a.Module
	}
	return nil
}

// Table returns the entries keyed by file name, as Matcher.Explicit expects.
func (mf *MapFile) Table() map[string]string {
	out := make(map[string]string, len(mf.Artifacts))
	for _, a := range mf.Artifacts {
		out[a.File] = a.Module
	}
	return out
}

// WriteMapFile writes entries as a descriptor map file.
func WriteMapFile(path string, entries []MapEntry) error {
	data, err := toml.Marshal(MapFile{Version: MapFileVersion, Artifacts: entries})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
