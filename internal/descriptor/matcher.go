// Package descriptor locates the generated module-info.java belonging to an
// artifact in the jdeps work area.
package descriptor

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"modpatch/internal/errors"
	"modpatch/internal/slogutil"
	"modpatch/internal/synth"
)

// MatchKey is the artifact's base filename with every '-' replaced by '.',
// so "foo-bar-1.0.jar" is matched as "foo.bar.1.0.jar".
func MatchKey(artifact string) string {
	return strings.ReplaceAll(filepath.Base(artifact), "-", ".")
}

// Matcher resolves artifacts to descriptor directories. Explicit entries
// (keyed by base filename) win over Recorded ones (keyed by artifact path as
// passed to the synthesizer), which win over the prefix heuristic.
type Matcher struct {
	WorkDir  string
	Explicit map[string]string
	Recorded synth.Mapping
	Logger   *slog.Logger
}

// Find returns the work-area directory holding the artifact's descriptor.
func (m *Matcher) Find(artifact string) (string, error) {
	if err := m.ensureWorkDir(); err != nil {
		return "", err
	}

	base := filepath.Base(artifact)
	if dir, ok := m.Explicit[base]; ok {
		path := filepath.Join(m.WorkDir, dir)
		if !hasDescriptor(path) {
			return "", errors.Newf(errors.DescriptorNotFound, nil,
				"mapped module directory %q has no %s", dir, synth.DescriptorFile).ForArtifact(artifact)
		}
		return path, nil
	}

	if dir, ok := m.Recorded[artifact]; ok {
		path := filepath.Join(m.WorkDir, dir)
		if hasDescriptor(path) {
			return path, nil
		}
		m.logger().Debug("recorded descriptor directory vanished, falling back to name match",
			"artifact", artifact, "dir", dir)
	}

	return m.byPrefix(artifact)
}

// byPrefix returns the first child directory, in lexical order, whose name is
// a prefix of the artifact's match key.
func (m *Matcher) byPrefix(artifact string) (string, error) {
	entries, err := os.ReadDir(m.WorkDir)
	if err != nil {
		return "", errors.New(errors.ConfigurationError, "cannot list module info output directory", err)
	}

	key := MatchKey(artifact)
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(key, e.Name()) {
			return filepath.Join(m.WorkDir, e.Name()), nil
		}
	}
	return "", errors.Newf(errors.DescriptorNotFound, nil,
		"Unable to find a module info for %s", filepath.Base(artifact)).ForArtifact(artifact)
}

// Load resolves the artifact and reads its descriptor.
func (m *Matcher) Load(artifact string) (*Descriptor, error) {
	dir, err := m.Find(artifact)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, synth.DescriptorFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.DescriptorNotFound, err,
				"Unable to find a module info for %s", filepath.Base(artifact)).ForArtifact(artifact)
		}
		return nil, errors.New(errors.InternalError, "cannot read module descriptor", err).ForArtifact(artifact)
	}
	return &Descriptor{Dir: dir, Path: path, Source: string(data)}, nil
}

func (m *Matcher) ensureWorkDir() error {
	if m.WorkDir == "" {
		return errors.New(errors.ConfigurationError, "No module info output directory set", nil)
	}
	info, err := os.Stat(m.WorkDir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(m.WorkDir, 0o755); err != nil {
			return errors.New(errors.ConfigurationError, "cannot create module info output directory", err)
		}
		return nil
	}
	if err != nil {
		return errors.New(errors.ConfigurationError, "cannot stat module info output directory", err)
	}
	if !info.IsDir() {
		return errors.Newf(errors.ConfigurationError, nil, "%s is not a directory", m.WorkDir)
	}
	return nil
}

func (m *Matcher) logger() *slog.Logger {
	if m.Logger == nil {
		return slogutil.NewDiscardLogger()
	}
	return m.Logger
}

func hasDescriptor(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, synth.DescriptorFile))
	return err == nil && !info.IsDir()
}
