package main

import (
	"os"

	"github.com/spf13/cobra"

	"modpatch/internal/config"
	"modpatch/internal/version"
)

var (
	// configFile is the --config flag value
	configFile string
	// quiet suppresses all log output
	quiet bool
)

var rootCmd = &cobra.Command{
	Use:   "modpatch",
	Short: "modpatch - turn plain jars into named modules",
	Long: `modpatch sorts a set of jars into those that already declare a module and
those that do not, generates a module descriptor for each of the latter with
jdeps, and compiles it back into the jar so every artifact can sit on the
module path.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("modpatch version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Configuration file (default: ./"+config.Dir+"/"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
}

// projectRoot is the directory holding .modpatch and the base for relative paths.
func projectRoot() (string, error) {
	return os.Getwd()
}
