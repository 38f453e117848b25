// Package synth drives jdeps to generate a module descriptor for every
// artifact on the worklist.
package synth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"modpatch/internal/errors"
	"modpatch/internal/toolrun"
)

// DescriptorFile is the name jdeps gives each generated descriptor.
const DescriptorFile = "module-info.java"

// Mapping records which work-area directory each artifact's descriptor landed
// in. Keys are artifact paths as passed to Synthesize.
type Mapping map[string]string

// Synthesizer runs jdeps once per artifact.
type Synthesizer struct {
	Tool       toolrun.Tool
	WorkDir    string
	SearchPath SearchPath
	Logger     *slog.Logger
	Debug      bool
}

// Args is the jdeps argument list for one artifact.
func Args(searchPath, workDir, target string) []string {
	return []string{
		"--ignore-missing-deps",
		"--api-only",
		"--no-recursive",
		"--add-modules=ALL-MODULE-PATH",
		"--module-path", searchPath,
		"--generate-module-info", workDir,
		target,
	}
}

// SynthesizeAll processes the worklist in order and stops at the first failure.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, worklist []string) (Mapping, error) {
	if err := ensureDir(s.WorkDir); err != nil {
		return nil, err
	}

	mapping := make(Mapping, len(worklist))
	for _, jar := range worklist {
		if err := ctx.Err(); err != nil {
			return mapping, err
		}
		if s.Debug {
			s.Logger.Info("Generating info for " + filepath.Base(jar))
		}

		dirs, err := s.Synthesize(ctx, jar)
		if err != nil {
			return mapping, err
		}
		if len(dirs) == 1 {
			mapping[jar] = dirs[0]
		} else {
			s.Logger.Debug("descriptor directory not attributable", "artifact", jar, "candidates", len(dirs))
		}
	}
	return mapping, nil
}

// Synthesize runs jdeps for one artifact and returns the work-area
// directories whose descriptor was created or rewritten by the run.
func (s *Synthesizer) Synthesize(ctx context.Context, jar string) ([]string, error) {
	abs, err := filepath.Abs(jar)
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot resolve artifact path", err).ForArtifact(jar)
	}
	workDir, err := filepath.Abs(s.WorkDir)
	if err != nil {
		return nil, errors.New(errors.ConfigurationError, "cannot resolve work directory", err)
	}

	before, err := snapshot(workDir)
	if err != nil {
		return nil, err
	}

	if _, err := s.Tool.Invoke(ctx, Args(s.SearchPath.String(), workDir, abs)...); err != nil {
		if me, ok := err.(*errors.ModError); ok {
			return nil, me.ForArtifact(jar)
		}
		return nil, err
	}

	after, err := snapshot(workDir)
	if err != nil {
		return nil, err
	}
	return changed(before, after), nil
}

func ensureDir(dir string) error {
	if dir == "" {
		return errors.New(errors.ConfigurationError, "No module info output directory set", nil)
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(errors.ConfigurationError, "cannot create module info output directory", err)
		}
		return nil
	}
	if err != nil {
		return errors.New(errors.ConfigurationError, "cannot stat module info output directory", err)
	}
	if !info.IsDir() {
		return errors.New(errors.ConfigurationError, "module info output directory is not a directory", nil)
	}
	return nil
}

// snapshot maps each child directory to the modification time of its descriptor.
func snapshot(workDir string) (map[string]time.Time, error) {
	entries, err := os.ReadDir(workDir)
	if os.IsNotExist(err) {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, errors.New(errors.ConfigurationError, "cannot list module info output directory", err)
	}
	out := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(workDir, e.Name(), DescriptorFile))
		if err != nil {
			continue
		}
		out[e.Name()] = info.ModTime()
	}
	return out, nil
}

func changed(before, after map[string]time.Time) []string {
	var out []string
	for name, mt := range after {
		if prev, ok := before[name]; !ok || !prev.Equal(mt) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
