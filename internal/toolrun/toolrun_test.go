package toolrun

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	moderrors "modpatch/internal/errors"
	"modpatch/internal/slogutil"
)

func TestParseFeatureVersion(t *testing.T) {
	tests := []struct {
		output  string
		want    int
		wantErr bool
	}{
		{`openjdk version "21.0.2" 2024-01-16`, 21, false},
		{`openjdk version "17" 2021-09-14`, 17, false},
		{`java version "1.8.0_381"`, 8, false},
		{"Picked up JAVA_TOOL_OPTIONS: -Xmx1g\nopenjdk version \"11.0.22\" 2024-01-16 LTS", 11, false},
		{`openjdk version "23-ea" 2024-09-17`, 23, false},
		{"command not found", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			got, err := ParseFeatureVersion(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFeatureVersion(%q) err = %v, wantErr %v", tt.output, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFeatureVersion(%q) = %d, want %d", tt.output, got, tt.want)
			}
		})
	}
}

func TestDetectFeatureVersion(t *testing.T) {
	mock := NewMockRunner()
	mock.SetCommand("java -version", "", `openjdk version "21.0.2" 2024-01-16`, nil)

	got, err := DetectFeatureVersion(context.Background(), mock, "java")
	if err != nil {
		t.Fatalf("DetectFeatureVersion: %v", err)
	}
	if got != 21 {
		t.Errorf("got %d, want 21", got)
	}
}

func TestDetectFeatureVersion_Missing(t *testing.T) {
	mock := NewMockRunner()

	_, err := DetectFeatureVersion(context.Background(), mock, "java")
	if !moderrors.IsCode(err, moderrors.ConfigurationError) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Error("cause should be preserved")
	}
}

func TestTool_Invoke(t *testing.T) {
	var buf bytes.Buffer
	mock := NewMockRunner()
	mock.SetCommand("jdeps", "done", "", nil)

	tool := Tool{Name: "jdeps", Runner: mock, Logger: slogutil.NewLogger(&buf, slog.LevelDebug), Echo: true}
	out, err := tool.Invoke(context.Background(), "--api-only", "a.jar")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "done" {
		t.Errorf("stdout = %q", out)
	}

	want := []Call{{Name: "jdeps", Args: []string{"--api-only", "a.jar"}}}
	if diff := cmp.Diff(want, mock.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "--api-only") {
		t.Errorf("echo should log arguments: %s", buf.String())
	}
}

func TestTool_InvokeFailure(t *testing.T) {
	mock := NewMockRunner()
	mock.SetCommand("javac", "", "module-info.java:1: error: module not found", errors.New("exit status 1"))

	tool := Tool{Name: "javac", Runner: mock, Logger: slogutil.NewDiscardLogger()}
	_, err := tool.Invoke(context.Background(), "-d", "out")

	if !moderrors.IsCode(err, moderrors.ToolInvocationFailure) {
		t.Fatalf("expected TOOL_INVOCATION_FAILURE, got %v", err)
	}
	if !strings.Contains(err.Error(), "module not found") {
		t.Errorf("stderr should be carried in the error: %v", err)
	}
}

func TestMockRunner_HandlerPrecedence(t *testing.T) {
	mock := NewMockRunner()
	mock.SetCommand("jdeps", "fixed", "", nil)
	mock.SetHandler("jdeps", func(args []string) (string, string, error) {
		return "handled " + args[0], "", nil
	})

	out, _, err := mock.Run(context.Background(), "jdeps", "x")
	if err != nil {
		t.Fatal(err)
	}
	if out != "handled x" {
		t.Errorf("handler should win, got %q", out)
	}
	if len(mock.CallsTo("jdeps")) != 1 || len(mock.CallsTo("javac")) != 0 {
		t.Errorf("unexpected calls: %+v", mock.Calls())
	}
}

func TestMockRunner_CancelledContext(t *testing.T) {
	mock := NewMockRunner()
	mock.SetCommand("jdeps", "ok", "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := mock.Run(ctx, "jdeps"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRealRunner_LookPathMissing(t *testing.T) {
	r := NewRealRunner(0)
	if _, err := r.LookPath("modpatch-definitely-not-a-binary"); err == nil {
		t.Error("expected LookPath to fail for a missing binary")
	}
}
