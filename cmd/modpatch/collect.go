package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"modpatch/internal/config"
	"modpatch/internal/errors"
	"modpatch/internal/pipeline"
	"modpatch/internal/slogutil"
	"modpatch/internal/toolrun"
)

var (
	collectClasspath     string
	collectClasspathFile string
	collectToolTimeout   time.Duration
)

// newRunner builds the tool runner; tests replace it with a mock.
var newRunner = func(timeout time.Duration) toolrun.ExecRunner {
	return toolrun.NewRealRunner(timeout)
}

var collectCmd = &cobra.Command{
	Use:   "collect-modules [jar...]",
	Short: "Classify jars and inject generated module descriptors",
	Long: `Copy every artifact into the found-modules or not-modules directory, then
generate and inject a module descriptor into each jar that lacks one.

Artifacts come from the arguments, from --classpath (a path list) and from
--classpath-file (one path per line), in that order.

Examples:
  modpatch collect-modules --classpath "$(cat target/classpath.txt)"
  modpatch collect-modules --work-dir target/module-info \
      --modules-dir target/modules --not-modules-dir target/not-modules lib/*.jar
  modpatch collect-modules --classpath-file cp.txt --format json`,
	RunE: runCollect,
}

func init() {
	f := collectCmd.Flags()
	f.String("work-dir", "", "Directory receiving generated module-info.java files")
	f.String("modules-dir", "", "Directory receiving jars that are already modules")
	f.String("not-modules-dir", "", "Directory receiving jars that need a descriptor")
	f.StringSlice("provided-modules", nil, "Extra module path directories (e.g. JavaFX jmods)")
	f.StringSlice("ignore", nil, "Skip artifacts whose path contains this substring")
	f.Int("java-version", 0, "Exclusive ceiling for multi-release shard scanning (0: ask java)")
	f.Bool("debug", false, "Trace every artifact and echo tool arguments")
	f.String("descriptor-map", "", "TOML file pinning artifacts to descriptor directories")
	f.String("report", "", "Write a TOML run report to this file")
	f.String("format", "", "Output format: human, json or yaml")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	f.String("log-file", "", "Also append logs to this file")

	f.StringVar(&collectClasspath, "classpath", "", "Artifacts as a "+string(os.PathListSeparator)+"-separated path list")
	f.StringVar(&collectClasspathFile, "classpath-file", "", "File listing one artifact per line")
	f.DurationVar(&collectToolTimeout, "tool-timeout", 0, "Per-invocation limit for jdeps and javac (0: none)")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := newRunLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	artifacts, err := gatherArtifacts(args, collectClasspath, collectClasspathFile)
	if err != nil {
		return errors.New(errors.ConfigurationError, "cannot read artifact list", err)
	}
	if len(artifacts) == 0 {
		logger.Warn("no artifacts given")
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.OptionsFromConfig(cfg, artifacts), pipeline.Deps{
		Runner: newRunner(collectToolTimeout),
		Logger: logger,
	})
	if err != nil {
		// The console logger already printed the error unless it is silenced.
		if slogutil.EffectiveLevel(cfg.Logging.Level, cfg.Debug, quiet) <= slog.LevelError {
			return &reportedError{err: err}
		}
		return err
	}

	if quiet && cfg.Report.Format == string(FormatHuman) {
		return nil
	}
	out, err := FormatResponse(res.Report, OutputFormat(cfg.Report.Format))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// loadConfig merges file, environment and the command's flags, then resolves
// relative paths against the project root and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot determine working directory", err)
	}

	loaded, err := config.Load(config.LoadOptions{Root: root, File: configFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, errors.New(errors.ConfigurationError, "cannot load configuration", err)
	}
	cfg := loaded.Config
	cfg.Resolve(root)
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigurationError, "invalid configuration", err)
	}
	return cfg, nil
}

// newRunLogger builds the run's logger. The returned func closes the log file, if any.
func newRunLogger(w io.Writer, cfg *config.Config) (*slog.Logger, func(), error) {
	level := slogutil.EffectiveLevel(cfg.Logging.Level, cfg.Debug, quiet)
	handler := slogutil.NewHandler(w, cfg.Logging.Format, level)
	if cfg.Logging.File == "" {
		return slog.New(handler), func() {}, nil
	}

	fileLevel := slogutil.EffectiveLevel(cfg.Logging.Level, cfg.Debug, false)
	fileHandler, f, err := slogutil.OpenLogFile(cfg.Logging.File, fileLevel)
	if err != nil {
		return nil, nil, errors.New(errors.ConfigurationError, "cannot open log file", err)
	}
	return slog.New(slogutil.NewTeeHandler(handler, fileHandler)), func() { _ = f.Close() }, nil
}

// gatherArtifacts concatenates args, the path-list entries and the file
// entries, dropping blanks and '#' comment lines.
func gatherArtifacts(args []string, classpath, classpathFile string) ([]string, error) {
	out := append([]string(nil), args...)
	if classpath != "" {
		for _, p := range filepath.SplitList(classpath) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	if classpathFile == "" {
		return out, nil
	}

	f, err := os.Open(classpathFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
