package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modpatch/internal/archive"
	"modpatch/internal/config"
	"modpatch/internal/errors"
	"modpatch/internal/toolrun"
)

var (
	probeJavaVersion int
	probeJava        string
	probeFormat      string
)

var probeCmd = &cobra.Command{
	Use:   "probe <jar...>",
	Short: "Report whether each jar already declares a module",
	Long: `Open each jar and report "modular" when it has a root module-info.class or
one in a META-INF/versions shard below the Java ceiling, "non-modular"
otherwise. Nothing is copied.

Examples:
  modpatch probe lib/slf4j-api-2.0.9.jar
  modpatch probe --java-version 17 --format json lib/*.jar`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().IntVar(&probeJavaVersion, "java-version", 0, "Exclusive ceiling for multi-release shard scanning (0: ask java)")
	probeCmd.Flags().StringVar(&probeJava, "java", "", "java binary used to detect the version (default: tools.java from the config)")
	probeCmd.Flags().StringVar(&probeFormat, "format", "human", "Output format: human, json or yaml")
	rootCmd.AddCommand(probeCmd)
}

// ProbeResult is one line of probe output.
type ProbeResult struct {
	Path   string `json:"path" yaml:"path"`
	Status string `json:"status" yaml:"status"`
}

// ProbeResponse is the probe command's output.
type ProbeResponse struct {
	JavaVersion int           `json:"javaVersion" yaml:"javaVersion"`
	Results     []ProbeResult `json:"results" yaml:"results"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	ceiling := probeJavaVersion
	if ceiling == 0 {
		java, err := probeJavaTool()
		if err != nil {
			return err
		}
		v, err := toolrun.DetectFeatureVersion(cmd.Context(), newRunner(0), java)
		if err != nil {
			return err
		}
		ceiling = v
	}

	resp, err := probeAll(archive.NewProbe(ceiling), args)
	if err != nil {
		return err
	}
	out, err := FormatResponse(resp, OutputFormat(probeFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// probeJavaTool picks the java binary the same way collect-modules does,
// with --java taking precedence.
func probeJavaTool() (string, error) {
	if probeJava != "" {
		return probeJava, nil
	}
	root, err := projectRoot()
	if err != nil {
		return "", errors.New(errors.InternalError, "cannot determine working directory", err)
	}
	loaded, err := config.Load(config.LoadOptions{Root: root, File: configFile})
	if err != nil {
		return "", errors.New(errors.ConfigurationError, "cannot load configuration", err)
	}
	if java := loaded.Config.Tools.Java; java != "" {
		return java, nil
	}
	return "java", nil
}

func probeAll(p *archive.Probe, paths []string) (*ProbeResponse, error) {
	resp := &ProbeResponse{JavaVersion: p.Ceiling}
	for _, path := range paths {
		status, err := p.StatusOf(path)
		if err != nil {
			return nil, err
		}
		resp.Results = append(resp.Results, ProbeResult{Path: path, Status: status.String()})
	}
	return resp, nil
}
