// Package classify sorts artifacts into the modular and non-modular output
// areas and builds the synthesis worklist.
package classify

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"modpatch/internal/archive"
	"modpatch/internal/errors"
	"modpatch/internal/fsutil"
)

// Artifact is one input jar and where it was copied.
type Artifact struct {
	Source string               `json:"source" toml:"source" yaml:"source"`
	Dest   string               `json:"dest" toml:"dest" yaml:"dest"`
	Status archive.ModuleStatus `json:"-" toml:"-" yaml:"-"`
	// Copied is false when an identical file was already in place.
	Copied bool `json:"copied" toml:"copied" yaml:"copied"`
}

// Result is the outcome of classifying a full artifact set.
type Result struct {
	Modular    []Artifact
	NonModular []Artifact
	// Ignored holds paths that matched an ignore substring.
	Ignored []string
	// Directories holds inputs that were directories and therefore skipped.
	Directories []string
	// Files counts non-directory inputs.
	Files int
}

// Worklist returns the copied locations of the non-modular artifacts, in input order.
func (r *Result) Worklist() []string {
	out := make([]string, len(r.NonModular))
	for i, a := range r.NonModular {
		out[i] = a.Dest
	}
	return out
}

// Balanced reports whether every file input is accounted for exactly once.
func (r *Result) Balanced() bool {
	return len(r.Modular)+len(r.NonModular)+len(r.Ignored) == r.Files
}

// Classifier copies each artifact into ModulesDir or NotModulesDir.
type Classifier struct {
	Probe         *archive.Probe
	ModulesDir    string
	NotModulesDir string
	// Ignore holds substrings; an artifact whose path contains one is skipped.
	Ignore []string
	Logger *slog.Logger
	Debug  bool
}

// Classify processes paths in order. The first open or copy failure aborts
// the whole set.
func (c *Classifier) Classify(ctx context.Context, paths []string) (*Result, error) {
	if len(c.Ignore) == 0 {
		c.Logger.Warn("No skip jars defined")
	}

	res := &Result{}
	placed := make(map[string]string)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if info, err := os.Stat(p); err == nil && info.IsDir() {
			res.Directories = append(res.Directories, p)
			continue
		}
		res.Files++

		a, err := archive.Open(p)
		if err != nil {
			return res, err
		}
		if c.ignored(p) {
			_ = a.Close()
			if c.Debug {
				c.Logger.Debug("Ignoring artifact", "path", p)
			}
			res.Ignored = append(res.Ignored, p)
			continue
		}
		status := c.Probe.Status(a)
		_ = a.Close()

		base := filepath.Base(p)
		if prev, dup := placed[base]; dup {
			return res, errors.Newf(errors.CopyFailure, nil,
				"artifact name %s already placed from %s", base, prev).ForArtifact(p)
		}
		placed[base] = p

		dir := c.NotModulesDir
		if status == archive.Modular {
			dir = c.ModulesDir
			if c.Debug {
				c.Logger.Info(p + " IS a module")
			}
		} else if c.Debug {
			c.Logger.Info(p + " is NOT a module, generating module info")
		}

		dest, copied, err := fsutil.CopyFileToDir(p, dir)
		if err != nil {
			return res, errors.New(errors.CopyFailure, "cannot copy artifact into "+dir, err).ForArtifact(p)
		}

		art := Artifact{Source: p, Dest: dest, Status: status, Copied: copied}
		if status == archive.Modular {
			res.Modular = append(res.Modular, art)
		} else {
			res.NonModular = append(res.NonModular, art)
		}
	}

	return res, nil
}

func (c *Classifier) ignored(path string) bool {
	for _, s := range c.Ignore {
		if s != "" && strings.Contains(path, s) {
			return true
		}
	}
	return false
}
