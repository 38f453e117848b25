package classify

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"modpatch/internal/archive"
	"modpatch/internal/errors"
	"modpatch/internal/slogutil"
	"modpatch/internal/testutil"
)

type fixture struct {
	root       string
	in         string
	modules    string
	notModules string
	log        bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	return &fixture{
		root:       root,
		in:         filepath.Join(root, "repo"),
		modules:    filepath.Join(root, "target", "modules"),
		notModules: filepath.Join(root, "target", "not-modules"),
	}
}

func (f *fixture) classifier(ignore ...string) *Classifier {
	return &Classifier{
		Probe:         archive.NewProbe(21),
		ModulesDir:    f.modules,
		NotModulesDir: f.notModules,
		Ignore:        ignore,
		Logger:        slogutil.NewLogger(&f.log, slog.LevelDebug),
		Debug:         true,
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestClassify_Partitions(t *testing.T) {
	f := newFixture(t)
	mod := testutil.WriteJar(t, f.in, "slf4j-api-2.0.9.jar", testutil.ModularEntries())
	plain := testutil.WriteJar(t, f.in, "commons-lang-2.6.jar", testutil.PlainEntries())
	mr := testutil.WriteJar(t, f.in, "jackson-core-2.15.jar", testutil.MultiReleaseEntries("9"))
	classesDir := filepath.Join(f.in, "classes")
	if err := os.MkdirAll(classesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := f.classifier("nothing-matches").Classify(context.Background(), []string{classesDir, mod, plain, mr})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if diff := cmp.Diff([]string{"jackson-core-2.15.jar", "slf4j-api-2.0.9.jar"}, listDir(t, f.modules)); diff != "" {
		t.Errorf("modules dir mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"commons-lang-2.6.jar"}, listDir(t, f.notModules)); diff != "" {
		t.Errorf("not-modules dir mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{filepath.Join(f.notModules, "commons-lang-2.6.jar")}, res.Worklist()); diff != "" {
		t.Errorf("worklist mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{classesDir}, res.Directories); diff != "" {
		t.Errorf("directories mismatch (-want +got):\n%s", diff)
	}
	if res.Files != 3 || !res.Balanced() {
		t.Errorf("Files = %d, balanced = %v", res.Files, res.Balanced())
	}

	if !bytes.Equal(testutil.MustRead(t, mod), testutil.MustRead(t, filepath.Join(f.modules, "slf4j-api-2.0.9.jar"))) {
		t.Error("modular copy must be byte-identical")
	}

	logs := f.log.String()
	if !strings.Contains(logs, mod+" IS a module") {
		t.Errorf("missing modular trace: %s", logs)
	}
	if !strings.Contains(logs, plain+" is NOT a module, generating module info") {
		t.Errorf("missing non-modular trace: %s", logs)
	}
}

func TestClassify_IgnoredArtifactNeitherCopiedNorCounted(t *testing.T) {
	f := newFixture(t)
	keep := testutil.WriteJar(t, f.in, "guava-32.jar", testutil.PlainEntries())
	skip := testutil.WriteJar(t, f.in, "javafx-base-21-linux.jar", testutil.ModularEntries())
	other := testutil.WriteJar(t, f.in, "jakarta.inject-2.0.jar", testutil.ModularEntries())

	res, err := f.classifier("javafx-").Classify(context.Background(), []string{keep, skip, other})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	for _, dir := range []string{f.modules, f.notModules} {
		for _, name := range listDir(t, dir) {
			if name == "javafx-base-21-linux.jar" {
				t.Errorf("ignored artifact copied into %s", dir)
			}
		}
	}
	if len(res.Modular) != 1 || len(res.NonModular) != 1 {
		t.Errorf("counts = %d modular, %d non-modular; want 1, 1", len(res.Modular), len(res.NonModular))
	}
	if diff := cmp.Diff([]string{skip}, res.Ignored); diff != "" {
		t.Errorf("ignored mismatch (-want +got):\n%s", diff)
	}
	if got := len(res.Modular) + len(res.NonModular) + len(res.Ignored); got != 3 {
		t.Errorf("modular+nonModular+ignored = %d, want 3", got)
	}
}

func TestClassify_NoIgnoreListWarns(t *testing.T) {
	f := newFixture(t)
	jar := testutil.WriteJar(t, f.in, "a.jar", testutil.PlainEntries())

	if _, err := f.classifier().Classify(context.Background(), []string{jar}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.log.String(), "[warn] No skip jars defined") {
		t.Errorf("expected warning, got: %s", f.log.String())
	}
}

func TestClassify_OpenFailureAbortsRun(t *testing.T) {
	f := newFixture(t)
	first := testutil.WriteJar(t, f.in, "first.jar", testutil.PlainEntries())
	broken := filepath.Join(f.in, "broken.jar")
	if err := os.WriteFile(broken, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	last := testutil.WriteJar(t, f.in, "last.jar", testutil.PlainEntries())

	res, err := f.classifier("x").Classify(context.Background(), []string{first, broken, last})
	if !errors.IsCode(err, errors.ArchiveOpenFailure) {
		t.Fatalf("expected ARCHIVE_OPEN_FAILURE, got %v", err)
	}
	if !strings.Contains(err.Error(), broken) {
		t.Errorf("error should name the artifact: %v", err)
	}
	if len(res.NonModular) != 1 {
		t.Errorf("artifacts after the failure must not be processed: %+v", res.NonModular)
	}
	if diff := cmp.Diff([]string{"first.jar"}, listDir(t, f.notModules)); diff != "" {
		t.Errorf("not-modules dir mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_MissingFileIsOpenFailure(t *testing.T) {
	f := newFixture(t)

	_, err := f.classifier("x").Classify(context.Background(), []string{filepath.Join(f.in, "absent.jar")})
	if !errors.IsCode(err, errors.ArchiveOpenFailure) {
		t.Fatalf("expected ARCHIVE_OPEN_FAILURE, got %v", err)
	}
}

func TestClassify_CopyFailure(t *testing.T) {
	f := newFixture(t)
	jar := testutil.WriteJar(t, f.in, "a.jar", testutil.PlainEntries())
	// A regular file where the output directory should be.
	if err := os.MkdirAll(filepath.Dir(f.notModules), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.notModules, []byte("in the way"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := f.classifier("x").Classify(context.Background(), []string{jar})
	if !errors.IsCode(err, errors.CopyFailure) {
		t.Fatalf("expected COPY_FAILURE, got %v", err)
	}
}

func TestClassify_DuplicateBaseName(t *testing.T) {
	f := newFixture(t)
	a := testutil.WriteJar(t, filepath.Join(f.in, "one"), "util.jar", testutil.PlainEntries())
	b := testutil.WriteJar(t, filepath.Join(f.in, "two"), "util.jar", testutil.ModularEntries())

	_, err := f.classifier("x").Classify(context.Background(), []string{a, b})
	if !errors.IsCode(err, errors.CopyFailure) {
		t.Fatalf("expected COPY_FAILURE for a name collision, got %v", err)
	}
}

func TestClassify_RerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	jar := testutil.WriteJar(t, f.in, "a.jar", testutil.ModularEntries())
	c := f.classifier("x")

	if _, err := c.Classify(context.Background(), []string{jar}); err != nil {
		t.Fatal(err)
	}
	res, err := c.Classify(context.Background(), []string{jar})
	if err != nil {
		t.Fatal(err)
	}
	if res.Modular[0].Copied {
		t.Error("second run should find the identical copy in place")
	}
}

func TestClassify_CancelledContext(t *testing.T) {
	f := newFixture(t)
	jar := testutil.WriteJar(t, f.in, "a.jar", testutil.PlainEntries())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.classifier("x").Classify(ctx, []string{jar}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
