package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"modpatch/internal/archive"
	"modpatch/internal/errors"
	"modpatch/internal/testutil"
	"modpatch/internal/toolrun"
)

func TestProbeAll(t *testing.T) {
	dir := t.TempDir()
	mod := testutil.WriteJar(t, dir, "mod.jar", testutil.ModularEntries())
	mr := testutil.WriteJar(t, dir, "mr.jar", testutil.MultiReleaseEntries("11"))
	plain := testutil.WriteJar(t, dir, "plain.jar", testutil.PlainEntries())

	resp, err := probeAll(archive.NewProbe(17), []string{mod, mr, plain})
	if err != nil {
		t.Fatal(err)
	}
	want := &ProbeResponse{
		JavaVersion: 17,
		Results: []ProbeResult{
			{Path: mod, Status: "modular"},
			{Path: mr, Status: "modular"},
			{Path: plain, Status: "non-modular"},
		},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("probe mismatch (-want +got):\n%s", diff)
	}
}

func TestProbeAll_OpenFailure(t *testing.T) {
	_, err := probeAll(archive.NewProbe(17), []string{filepath.Join(t.TempDir(), "absent.jar")})
	if !errors.IsCode(err, errors.ArchiveOpenFailure) {
		t.Fatalf("expected ARCHIVE_OPEN_FAILURE, got %v", err)
	}
}

func TestStarterConfigIsValid(t *testing.T) {
	cfg := starterConfig()
	cfg.Resolve(t.TempDir())
	if err := cfg.Validate(); err != nil {
		t.Fatalf("starter config should validate: %v", err)
	}
}

func TestProbeCommand_DetectsVersionWithJava(t *testing.T) {
	tests := []struct {
		name        string
		flag        string
		wantJava    string
		wantVersion int
	}{
		{"configured tool", "", "/opt/jdk-17/bin/java", 17},
		{"flag overrides config", "/usr/lib/jvm/21/bin/java", "/usr/lib/jvm/21/bin/java", 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			jar := testutil.WriteJar(t, root, "mr.jar", testutil.MultiReleaseEntries("11"))
			cfg, cfgPath := writeRunConfig(t, root)
			cfg.Tools.Java = "/opt/jdk-17/bin/java"
			data, err := json.Marshal(cfg)
			if err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
				t.Fatal(err)
			}

			mock := toolrun.NewMockRunner()
			mock.SetCommand("/opt/jdk-17/bin/java -version", "", `openjdk version "17.0.9" 2023-10-17`, nil)
			mock.SetCommand("/usr/lib/jvm/21/bin/java -version", "", `openjdk version "21.0.2" 2024-01-16`, nil)
			useRunner(t, mock)
			t.Cleanup(func() { probeJava = "" })

			args := []string{"probe", "--config", cfgPath, "--format", "json"}
			if tt.flag != "" {
				args = append(args, "--java", tt.flag)
			}
			var stdout, stderr bytes.Buffer
			prepareRoot(t, &stdout, &stderr, append(args, jar)...)
			if err := rootCmd.Execute(); err != nil {
				t.Fatalf("Execute: %v", err)
			}

			calls := mock.Calls()
			if len(calls) != 1 || calls[0].Name != tt.wantJava {
				t.Fatalf("calls = %+v, want one call to %s", calls, tt.wantJava)
			}
			var resp ProbeResponse
			if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
				t.Fatalf("stdout is not JSON: %v\n%s", err, stdout.String())
			}
			if resp.JavaVersion != tt.wantVersion {
				t.Errorf("javaVersion = %d, want %d", resp.JavaVersion, tt.wantVersion)
			}
			if len(resp.Results) != 1 || resp.Results[0].Status != "modular" {
				t.Errorf("results = %+v", resp.Results)
			}
		})
	}
}
