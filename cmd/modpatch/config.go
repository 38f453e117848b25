package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"modpatch/internal/config"
)

var configShowFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect modpatch configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after merging defaults, the config file and
MODPATCH_* environment variables. Relative paths are shown resolved.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range envVars() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "json", "Output format (json, yaml)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string         `json:"configPath,omitempty" yaml:"configPath,omitempty"`
	UsedDefaults bool           `json:"usedDefaults" yaml:"usedDefaults"`
	Config       *config.Config `json:"config" yaml:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	loaded, err := config.Load(config.LoadOptions{Root: root, File: configFile})
	if err != nil {
		return err
	}
	loaded.Config.Resolve(root)

	out, err := FormatResponse(&ConfigShowResponse{
		ConfigPath:   loaded.ConfigPath,
		UsedDefaults: loaded.UsedDefaults,
		Config:       loaded.Config,
	}, OutputFormat(configShowFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// envVars lists the environment override for every flag-bound key.
func envVars() []string {
	out := make([]string, 0, len(config.FlagBindings))
	for key := range config.FlagBindings {
		out = append(out, config.EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	sort.Strings(out)
	return out
}
