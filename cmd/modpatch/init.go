package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"modpatch/internal/config"
	"modpatch/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration",
	Long:  "Creates " + config.Dir + "/" + config.FileName + " in the current directory with conventional output directories",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

// starterConfig is the configuration init writes.
func starterConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ModuleInfoWorkDirectory = filepath.Join("target", "module-info")
	cfg.FoundModulesDirectory = filepath.Join("target", "modules")
	cfg.NotModulesDirectory = filepath.Join("target", "not-modules")
	cfg.IgnoreJars = []string{}
	return cfg
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	path := filepath.Join(root, config.Dir, config.FileName)
	if _, statErr := os.Stat(path); statErr == nil && !initForce {
		// Already initialized is success.
		fmt.Fprintln(cmd.OutOrStdout(), "modpatch already initialized.")
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration at: %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'modpatch init --force' to overwrite it.")
		return nil
	}

	written, err := starterConfig().Save(root)
	if err != nil {
		return errors.New(errors.InternalError, "Failed to write config file", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to: %s\n", written)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Add ignoreJars entries for artifacts that must stay untouched")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Run 'modpatch collect-modules --classpath <path list>'")
	return nil
}
