package synth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	moderrors "modpatch/internal/errors"
	"modpatch/internal/slogutil"
	"modpatch/internal/testutil"
	"modpatch/internal/toolrun"
)

func newSynthesizer(t *testing.T, mock *toolrun.MockRunner, workDir string) *Synthesizer {
	t.Helper()
	logger := slogutil.NewDiscardLogger()
	return &Synthesizer{
		Tool:       toolrun.Tool{Name: "jdeps", Runner: mock, Logger: logger},
		WorkDir:    workDir,
		SearchPath: SearchPath{"/out/modules", "/out/not-modules"},
		Logger:     logger,
	}
}

func TestBuildSearchPath(t *testing.T) {
	sp, err := BuildSearchPath("/t/modules", "/t/not-modules", []string{"/opt/javafx/jmods", "/opt/extra"})
	if err != nil {
		t.Fatal(err)
	}

	want := SearchPath{"/t/modules", "/t/not-modules", "/opt/javafx/jmods", "/opt/extra"}
	if diff := cmp.Diff(want, sp); diff != "" {
		t.Errorf("search path mismatch (-want +got):\n%s", diff)
	}
	sep := string(os.PathListSeparator)
	if got := sp.String(); got != strings.Join([]string(want), sep) {
		t.Errorf("String() = %q", got)
	}
}

func TestBuildSearchPath_RelativeMadeAbsolute(t *testing.T) {
	sp, err := BuildSearchPath("modules", "not-modules", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sp) != 2 {
		t.Fatalf("len = %d, want 2", len(sp))
	}
	for _, p := range sp {
		if !filepath.IsAbs(p) {
			t.Errorf("%q is not absolute", p)
		}
	}
}

func TestArgs(t *testing.T) {
	want := []string{
		"--ignore-missing-deps",
		"--api-only",
		"--no-recursive",
		"--add-modules=ALL-MODULE-PATH",
		"--module-path", "/a:/b",
		"--generate-module-info", "/work",
		"/b/x.jar",
	}
	if diff := cmp.Diff(want, Args("/a:/b", "/work", "/b/x.jar")); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesizeAll_RecordsMapping(t *testing.T) {
	root := t.TempDir()
	workDir := filepath.Join(root, "work")
	mock := toolrun.NewMockRunner()
	mock.SetHandler("jdeps", testutil.FakeJdeps)

	jars := []string{
		filepath.Join(root, "not-modules", "commons-lang-2.6.jar"),
		filepath.Join(root, "not-modules", "jsr305-3.0.2.jar"),
	}
	mapping, err := newSynthesizer(t, mock, workDir).SynthesizeAll(context.Background(), jars)
	if err != nil {
		t.Fatalf("SynthesizeAll: %v", err)
	}

	want := Mapping{jars[0]: "commons.lang", jars[1]: "jsr305"}
	if diff := cmp.Diff(want, mapping); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}

	calls := mock.CallsTo("jdeps")
	if len(calls) != 2 {
		t.Fatalf("jdeps called %d times, want 2", len(calls))
	}
	if got := calls[0].Args[len(calls[0].Args)-1]; got != jars[0] {
		t.Errorf("first target = %q", got)
	}
	if got := testutil.MustRead(t, filepath.Join(workDir, "jsr305", DescriptorFile)); !strings.HasPrefix(string(got), "module jsr305") {
		t.Errorf("descriptor = %q", got)
	}
}

func TestSynthesizeAll_FailureStopsRemainingEntries(t *testing.T) {
	root := t.TempDir()
	mock := toolrun.NewMockRunner()
	calls := 0
	mock.SetHandler("jdeps", func(args []string) (string, string, error) {
		calls++
		if calls == 2 {
			return "", "Error: broken.jar is a multi-release jar file but --multi-release option is not set", errors.New("exit status 1")
		}
		return testutil.FakeJdeps(args)
	})

	jars := []string{
		filepath.Join(root, "a-1.0.jar"),
		filepath.Join(root, "broken-1.0.jar"),
		filepath.Join(root, "c-1.0.jar"),
	}
	mapping, err := newSynthesizer(t, mock, filepath.Join(root, "work")).SynthesizeAll(context.Background(), jars)

	if !moderrors.IsCode(err, moderrors.ToolInvocationFailure) {
		t.Fatalf("expected TOOL_INVOCATION_FAILURE, got %v", err)
	}
	if !strings.Contains(err.Error(), jars[1]) || !strings.Contains(err.Error(), "multi-release") {
		t.Errorf("error should name the artifact and carry stderr: %v", err)
	}
	if n := len(mock.CallsTo("jdeps")); n != 2 {
		t.Errorf("jdeps called %d times, want 2 (third entry must not run)", n)
	}
	if _, ok := mapping[jars[0]]; !ok {
		t.Error("mapping for completed entries should be returned")
	}
}

func TestSynthesize_RegeneratedDescriptorIsAttributed(t *testing.T) {
	root := t.TempDir()
	workDir := filepath.Join(root, "work")
	stale := filepath.Join(workDir, "commons.lang", DescriptorFile)
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatal(err)
	}

	mock := toolrun.NewMockRunner()
	mock.SetHandler("jdeps", testutil.FakeJdeps)

	dirs, err := newSynthesizer(t, mock, workDir).Synthesize(context.Background(), filepath.Join(root, "commons-lang-2.6.jar"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"commons.lang"}, dirs); diff != "" {
		t.Errorf("changed dirs mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesizeAll_WorkDirIsFile(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "work")
	if err := os.WriteFile(workDir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := newSynthesizer(t, toolrun.NewMockRunner(), workDir).SynthesizeAll(context.Background(), []string{"a.jar"})
	if !moderrors.IsCode(err, moderrors.ConfigurationError) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestSynthesizeAll_WorkDirUnset(t *testing.T) {
	_, err := newSynthesizer(t, toolrun.NewMockRunner(), "").SynthesizeAll(context.Background(), nil)
	if !moderrors.IsCode(err, moderrors.ConfigurationError) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}
