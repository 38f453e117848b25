// Package report records what a run did to each artifact.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"modpatch/internal/fsutil"
)

// Counts mirrors the classifier's tallies.
type Counts struct {
	Modular    int `toml:"modular" json:"modular" yaml:"modular"`
	NonModular int `toml:"non_modular" json:"nonModular" yaml:"nonModular"`
	Ignored    int `toml:"ignored" json:"ignored" yaml:"ignored"`
	Files      int `toml:"files" json:"files" yaml:"files"`
}

// Entry is one artifact's outcome.
type Entry struct {
	Source string `toml:"source" json:"source" yaml:"source"`
	Dest   string `toml:"dest,omitempty" json:"dest,omitempty" yaml:"dest,omitempty"`
	Status string `toml:"status" json:"status" yaml:"status"`
	// Descriptor is the work-area directory the injected descriptor came from.
	Descriptor string `toml:"descriptor,omitempty" json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
	Copied     bool   `toml:"copied" json:"copied" yaml:"copied"`
	Patched    bool   `toml:"patched" json:"patched" yaml:"patched"`
}

// Report is the run summary written after a successful run.
type Report struct {
	RunID       string    `toml:"run_id" json:"runId" yaml:"runId"`
	StartedAt   time.Time `toml:"started_at" json:"startedAt" yaml:"startedAt"`
	FinishedAt  time.Time `toml:"finished_at" json:"finishedAt" yaml:"finishedAt"`
	JavaVersion int       `toml:"java_version" json:"javaVersion" yaml:"javaVersion"`
	// ShardsScanned is false when the ceiling left no multi-release shard to check.
	ShardsScanned bool     `toml:"shards_scanned" json:"shardsScanned" yaml:"shardsScanned"`
	Counts        Counts   `toml:"counts" json:"counts" yaml:"counts"`
	Ignored       []string `toml:"ignored,omitempty" json:"ignored,omitempty" yaml:"ignored,omitempty"`
	Directories   []string `toml:"directories,omitempty" json:"directories,omitempty" yaml:"directories,omitempty"`
	Artifacts     []Entry  `toml:"artifact,omitempty" json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Summary is the one-line outcome the pipeline logs.
func (r *Report) Summary() string {
	return fmt.Sprintf("Found %d modular jars and %d ordinary jars.", r.Counts.Modular, r.Counts.NonModular)
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Patched counts artifacts that received a descriptor.
func (r *Report) Patched() int {
	n := 0
	for _, e := range r.Artifacts {
		if e.Patched {
			n++
		}
	}
	return n
}

// Encode writes the report as TOML.
func (r *Report) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(r)
}

// Write saves the report to path, creating parent directories.
func Write(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := fsutil.WriteAtomic(path, r.Encode); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	var r Report
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
