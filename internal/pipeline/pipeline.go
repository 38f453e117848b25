// Package pipeline drives a full run: classify every artifact, synthesize
// descriptors for the non-modular ones, then inject them.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"modpatch/internal/archive"
	"modpatch/internal/classify"
	"modpatch/internal/config"
	"modpatch/internal/descriptor"
	"modpatch/internal/errors"
	"modpatch/internal/inject"
	"modpatch/internal/report"
	"modpatch/internal/slogutil"
	"modpatch/internal/synth"
	"modpatch/internal/toolrun"
)

// Options is everything a run needs to know. It carries no behaviour.
type Options struct {
	Artifacts []string

	WorkDir       string
	ModulesDir    string
	NotModulesDir string
	ProvidedDirs  []string
	Ignore        []string

	// JavaVersion is the exclusive shard ceiling; 0 asks the java launcher.
	JavaVersion   int
	ModuleVersion string
	Debug         bool

	DescriptorMapFile string
	ReportPath        string

	Jdeps string
	Javac string
	Java  string
}

// OptionsFromConfig builds run options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config, artifacts []string) Options {
	return Options{
		Artifacts:         artifacts,
		WorkDir:           cfg.ModuleInfoWorkDirectory,
		ModulesDir:        cfg.FoundModulesDirectory,
		NotModulesDir:     cfg.NotModulesDirectory,
		ProvidedDirs:      cfg.ProvidedModuleDirectories,
		Ignore:            cfg.IgnoreJars,
		JavaVersion:       cfg.JavaVersion,
		ModuleVersion:     cfg.ModuleVersion,
		Debug:             cfg.Debug,
		DescriptorMapFile: cfg.DescriptorMapFile,
		ReportPath:        cfg.Report.Path,
		Jdeps:             cfg.Tools.Jdeps,
		Javac:             cfg.Tools.Javac,
		Java:              cfg.Tools.Java,
	}
}

func (o Options) validate() error {
	required := []struct{ name, value string }{
		{"moduleInfoWorkDirectory", o.WorkDir},
		{"foundModulesDirectory", o.ModulesDir},
		{"notModulesDirectory", o.NotModulesDir},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.Newf(errors.ConfigurationError, nil, "%s is not set", r.name)
		}
	}
	if o.JavaVersion < 0 {
		return errors.Newf(errors.ConfigurationError, nil, "javaVersion must not be negative, got %d", o.JavaVersion)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.ModuleVersion == "" {
		o.ModuleVersion = config.DefaultModuleVersion
	}
	if o.Jdeps == "" {
		o.Jdeps = "jdeps"
	}
	if o.Javac == "" {
		o.Javac = "javac"
	}
	if o.Java == "" {
		o.Java = "java"
	}
	return o
}

// Deps are the collaborators a run uses.
type Deps struct {
	Runner toolrun.ExecRunner
	Logger *slog.Logger
	// Now and NewID default to the wall clock and a random UUID.
	Now   func() time.Time
	NewID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Runner == nil {
		d.Runner = toolrun.NewRealRunner(0)
	}
	if d.Logger == nil {
		d.Logger = slogutil.NewDiscardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return "" }
	}
	return d
}

// Result is what a run produced. It is returned, partially filled, on failure.
type Result struct {
	State          *RunState
	Classification *classify.Result
	Mapping        synth.Mapping
	// Descriptors maps each patched artifact to the work-area directory its descriptor came from.
	Descriptors map[string]string
	Report      *report.Report
}

// Run executes one full run.
func Run(ctx context.Context, opts Options, deps Deps) (*Result, error) {
	deps = deps.withDefaults()
	opts = opts.withDefaults()

	res := &Result{
		State:       newRunState(deps.NewID(), deps.Now),
		Descriptors: map[string]string{},
	}
	r := &runner{opts: opts, deps: deps, log: deps.Logger, res: res}

	if err := r.run(ctx); err != nil {
		res.State.Fail(err)
		r.log.Error(err.Error(), "phase", res.State.FailedIn, "code", errors.CodeOf(err), "run", res.State.ID)
		return res, err
	}
	return res, nil
}

type runner struct {
	opts Options
	deps Deps
	log  *slog.Logger
	res  *Result

	javaVersion int
	probe       *archive.Probe
	explicit    map[string]string
	searchPath  synth.SearchPath
}

func (r *runner) tool(name string) toolrun.Tool {
	return toolrun.Tool{Name: name, Runner: r.deps.Runner, Logger: r.log, Echo: r.opts.Debug}
}

func (r *runner) run(ctx context.Context) error {
	if err := r.prepare(ctx); err != nil {
		return err
	}
	if err := r.classify(ctx); err != nil {
		return err
	}

	if err := r.res.State.Advance(PhaseSynthesize); err != nil {
		return err
	}
	if err := r.synthesize(ctx); err != nil {
		return err
	}

	if err := r.res.State.Advance(PhaseInject); err != nil {
		return err
	}
	if err := r.inject(ctx); err != nil {
		return err
	}

	cls := r.res.Classification
	if !cls.Balanced() {
		return errors.Newf(errors.InternalError, nil,
			"artifact accounting mismatch: %d modular + %d non-modular + %d ignored != %d files",
			len(cls.Modular), len(cls.NonModular), len(cls.Ignored), cls.Files)
	}
	if err := r.res.State.Advance(PhaseDone); err != nil {
		return err
	}

	r.res.Report = r.buildReport()
	r.log.Info(r.res.Report.Summary())

	if r.opts.ReportPath != "" {
		if err := report.Write(r.opts.ReportPath, r.res.Report); err != nil {
			// A report failure does not fail the run.
			r.log.Warn("run report not written", "path", r.opts.ReportPath, "error", err)
		}
	}
	return nil
}

// prepare validates options, settles the shard ceiling and loads the
// descriptor map before any artifact is touched.
func (r *runner) prepare(ctx context.Context) error {
	if err := r.opts.validate(); err != nil {
		return err
	}

	r.javaVersion = r.opts.JavaVersion
	if r.javaVersion == 0 {
		v, err := toolrun.DetectFeatureVersion(ctx, r.deps.Runner, r.opts.Java)
		if err != nil {
			return err
		}
		r.log.Debug("detected java feature release", "version", v)
		r.javaVersion = v
	}

	r.probe = archive.NewProbe(r.javaVersion)
	if !r.probe.ScansShards() {
		r.log.Warn("javaVersion does not exceed the multi-release floor; versioned descriptors will not be detected",
			"javaVersion", r.javaVersion, "floor", archive.FloorVersion)
	}

	if r.opts.DescriptorMapFile != "" {
		mf, err := descriptor.ParseMapFile(r.opts.DescriptorMapFile)
		if err != nil {
			return err
		}
		r.explicit = mf.Table()
	}
	return nil
}

func (r *runner) classify(ctx context.Context) error {
	c := &classify.Classifier{
		Probe:         r.probe,
		ModulesDir:    r.opts.ModulesDir,
		NotModulesDir: r.opts.NotModulesDir,
		Ignore:        r.opts.Ignore,
		Logger:        r.log,
		Debug:         r.opts.Debug,
	}
	cls, err := c.Classify(ctx, r.opts.Artifacts)
	r.res.Classification = cls
	return err
}

func (r *runner) synthesize(ctx context.Context) error {
	sp, err := synth.BuildSearchPath(r.opts.ModulesDir, r.opts.NotModulesDir, r.opts.ProvidedDirs)
	if err != nil {
		return errors.New(errors.ConfigurationError, "cannot resolve module search path", err)
	}
	r.searchPath = sp

	s := &synth.Synthesizer{
		Tool:       r.tool(r.opts.Jdeps),
		WorkDir:    r.opts.WorkDir,
		SearchPath: sp,
		Logger:     r.log,
		Debug:      r.opts.Debug,
	}
	mapping, err := s.SynthesizeAll(ctx, r.res.Classification.Worklist())
	r.res.Mapping = mapping
	return err
}

func (r *runner) inject(ctx context.Context) error {
	m := &descriptor.Matcher{
		WorkDir:  r.opts.WorkDir,
		Explicit: r.explicit,
		Recorded: r.res.Mapping,
		Logger:   r.log,
	}
	in := &inject.Injector{
		Tool:       r.tool(r.opts.Javac),
		SearchPath: r.searchPath,
		Logger:     r.log,
		Debug:      r.opts.Debug,
	}

	for _, jar := range r.res.Classification.Worklist() {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := m.Load(jar)
		if err != nil {
			return err
		}
		if _, err := in.Inject(ctx, inject.Request{
			Descriptor:    d,
			ModuleVersion: r.opts.ModuleVersion,
			Artifact:      jar,
			OutputDir:     r.opts.NotModulesDir,
			Open:          true,
		}); err != nil {
			return err
		}
		r.res.Descriptors[jar] = filepath.Base(d.Dir)
	}
	return nil
}

func (r *runner) buildReport() *report.Report {
	cls := r.res.Classification
	st := r.res.State
	rep := &report.Report{
		RunID:         st.ID,
		StartedAt:     st.StartedAt,
		JavaVersion:   r.javaVersion,
		ShardsScanned: r.probe.ScansShards(),
		Counts: report.Counts{
			Modular:    len(cls.Modular),
			NonModular: len(cls.NonModular),
			Ignored:    len(cls.Ignored),
			Files:      cls.Files,
		},
		Ignored:     cls.Ignored,
		Directories: cls.Directories,
	}
	if st.FinishedAt != nil {
		rep.FinishedAt = *st.FinishedAt
	}

	for _, a := range cls.Modular {
		rep.Artifacts = append(rep.Artifacts, report.Entry{
			Source: a.Source,
			Dest:   a.Dest,
			Status: a.Status.String(),
			Copied: a.Copied,
		})
	}
	for _, a := range cls.NonModular {
		dir, patched := r.res.Descriptors[a.Dest]
		rep.Artifacts = append(rep.Artifacts, report.Entry{
			Source:     a.Source,
			Dest:       a.Dest,
			Status:     a.Status.String(),
			Descriptor: dir,
			Copied:     a.Copied,
			Patched:    patched,
		})
	}
	return rep
}
