package toolrun

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"modpatch/internal/errors"
)

// maxStderrInError caps how much tool stderr is folded into an error message.
const maxStderrInError = 2048

// Tool invokes one external binary through an ExecRunner.
type Tool struct {
	Name   string
	Runner ExecRunner
	Logger *slog.Logger
	// Echo logs the full argument list and the tool's output at debug level.
	Echo bool
}

// Invoke runs the tool synchronously. Any failure, including a missing binary,
// is a TOOL_INVOCATION_FAILURE carrying the tool's stderr.
func (t Tool) Invoke(ctx context.Context, args ...string) (string, error) {
	if t.Echo {
		for _, a := range args {
			t.Logger.Debug(a)
		}
	}

	stdout, stderr, err := t.Runner.Run(ctx, t.Name, args...)

	if t.Echo {
		if stdout != "" {
			t.Logger.Debug("tool output", "tool", t.Name, "stdout", stdout)
		}
		if stderr != "" {
			t.Logger.Debug("tool output", "tool", t.Name, "stderr", stderr)
		}
	}

	if err != nil {
		if stderr != "" {
			err = fmt.Errorf("%w: %s", err, truncate(stderr, maxStderrInError))
		}
		return stdout, errors.Newf(errors.ToolInvocationFailure, err, "%s failed", t.Name)
	}
	return stdout, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var javaVersionPattern = regexp.MustCompile(`version "(\d+)(?:\.(\d+))?`)

// ParseFeatureVersion extracts the feature release from `java -version` output.
// Legacy "1.x" strings map to x.
func ParseFeatureVersion(output string) (int, error) {
	m := javaVersionPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("no version in %q", strings.TrimSpace(firstLine(output)))
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	if major == 1 && m[2] != "" {
		return strconv.Atoi(m[2])
	}
	return major, nil
}

// DetectFeatureVersion asks the java launcher for its feature release. This is
// the default shard-scan ceiling when none is configured.
func DetectFeatureVersion(ctx context.Context, runner ExecRunner, java string) (int, error) {
	stdout, stderr, err := runner.Run(ctx, java, "-version")
	if err != nil {
		return 0, errors.Newf(errors.ConfigurationError, err,
			"javaVersion not set and %s -version failed", java)
	}
	// java -version prints to stderr; some launchers use stdout.
	v, perr := ParseFeatureVersion(stderr + "\n" + stdout)
	if perr != nil {
		return 0, errors.Newf(errors.ConfigurationError, perr,
			"javaVersion not set and %s -version was not understood", java)
	}
	return v, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
