package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Dir is the per-project configuration directory.
	Dir = ".modpatch"
	// FileName is the configuration file inside Dir.
	FileName = "config.json"
	// EnvPrefix prefixes every environment override (MODPATCH_DEBUG, ...).
	EnvPrefix = "MODPATCH"
	// DefaultModuleVersion is the module version compiled into injected descriptors.
	DefaultModuleVersion = "1"
)

// Config is the complete modpatch configuration.
type Config struct {
	// ModuleInfoWorkDirectory receives the descriptors generated by jdeps.
	ModuleInfoWorkDirectory string `json:"moduleInfoWorkDirectory" mapstructure:"moduleInfoWorkDirectory"`
	// FoundModulesDirectory receives artifacts that are already modules.
	FoundModulesDirectory string `json:"foundModulesDirectory" mapstructure:"foundModulesDirectory"`
	// NotModulesDirectory receives artifacts that need a descriptor, and later their patched form.
	NotModulesDirectory string `json:"notModulesDirectory" mapstructure:"notModulesDirectory"`
	// ProvidedModuleDirectories are extra module-path entries (e.g. JavaFX jmods).
	ProvidedModuleDirectories []string `json:"providedModuleDirectories" mapstructure:"providedModuleDirectories"`
	// IgnoreJars are substrings; any artifact path containing one is skipped.
	IgnoreJars []string `json:"ignoreJars" mapstructure:"ignoreJars"`
	// JavaVersion is the exclusive ceiling for multi-release shard scanning. 0 means detect.
	JavaVersion int  `json:"javaVersion" mapstructure:"javaVersion"`
	Debug       bool `json:"debug" mapstructure:"debug"`
	// DescriptorMapFile optionally pins artifacts to generated descriptor directories.
	DescriptorMapFile string `json:"descriptorMapFile,omitempty" mapstructure:"descriptorMapFile"`
	ModuleVersion     string `json:"moduleVersion" mapstructure:"moduleVersion"`

	Tools   ToolsConfig   `json:"tools" mapstructure:"tools"`
	Report  ReportConfig  `json:"report" mapstructure:"report"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ToolsConfig names the JDK binaries. Bare names are looked up on PATH.
type ToolsConfig struct {
	Jdeps string `json:"jdeps" mapstructure:"jdeps"`
	Javac string `json:"javac" mapstructure:"javac"`
	Java  string `json:"java" mapstructure:"java"`
}

// ReportConfig controls the run report.
type ReportConfig struct {
	// Path of the TOML report file; empty disables it.
	Path string `json:"path,omitempty" mapstructure:"path"`
	// Format of the summary printed to stdout: human, json or yaml.
	Format string `json:"format" mapstructure:"format"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig returns the default configuration. The three directories have
// no default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		ProvidedModuleDirectories: []string{},
		ModuleVersion:             DefaultModuleVersion,
		Tools: ToolsConfig{
			Jdeps: "jdeps",
			Javac: "javac",
			Java:  "java",
		},
		Report: ReportConfig{
			Format: "human",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// FlagBindings maps configuration keys to the CLI flags that override them.
var FlagBindings = map[string]string{
	"moduleInfoWorkDirectory":   "work-dir",
	"foundModulesDirectory":     "modules-dir",
	"notModulesDirectory":       "not-modules-dir",
	"providedModuleDirectories": "provided-modules",
	"ignoreJars":                "ignore",
	"javaVersion":               "java-version",
	"debug":                     "debug",
	"descriptorMapFile":         "descriptor-map",
	"report.path":               "report",
	"report.format":             "format",
	"logging.level":             "log-level",
	"logging.file":              "log-file",
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Root is the directory holding .modpatch/config.json.
	Root string
	// File, when set, is read instead of Root/.modpatch/config.json and must exist.
	File string
	// Flags are bound per FlagBindings; flags the set lacks are ignored.
	Flags *pflag.FlagSet
}

// LoadResult is the loaded configuration plus where it came from.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
}

// Load merges defaults, the config file, MODPATCH_* environment variables and
// flags, in increasing order of precedence.
func Load(opts LoadOptions) (*LoadResult, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".json"))
		v.SetConfigType("json")
		v.AddConfigPath(filepath.Join(opts.Root, Dir))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range FlagBindings {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	result := &LoadResult{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "config", Message: err.Error()}
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "config", Message: err.Error()}
	}
	result.Config = &cfg
	return result, nil
}

// setDefaults registers every key so environment variables are seen by Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("moduleInfoWorkDirectory", "")
	v.SetDefault("foundModulesDirectory", "")
	v.SetDefault("notModulesDirectory", "")
	v.SetDefault("providedModuleDirectories", d.ProvidedModuleDirectories)
	v.SetDefault("ignoreJars", []string{})
	v.SetDefault("javaVersion", 0)
	v.SetDefault("debug", false)
	v.SetDefault("descriptorMapFile", "")
	v.SetDefault("moduleVersion", d.ModuleVersion)
	v.SetDefault("tools.jdeps", d.Tools.Jdeps)
	v.SetDefault("tools.javac", d.Tools.Javac)
	v.SetDefault("tools.java", d.Tools.Java)
	v.SetDefault("report.path", "")
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", "")
}

// Save writes the configuration to root/.modpatch/config.json.
func (c *Config) Save(root string) (string, error) {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	return path, os.WriteFile(path, append(data, '\n'), 0644)
}

// Resolve makes every relative directory absolute against base.
func (c *Config) Resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.ModuleInfoWorkDirectory = abs(c.ModuleInfoWorkDirectory)
	c.FoundModulesDirectory = abs(c.FoundModulesDirectory)
	c.NotModulesDirectory = abs(c.NotModulesDirectory)
	c.DescriptorMapFile = abs(c.DescriptorMapFile)
	c.Report.Path = abs(c.Report.Path)
	c.Logging.File = abs(c.Logging.File)
	for i, p := range c.ProvidedModuleDirectories {
		c.ProvidedModuleDirectories[i] = abs(p)
	}
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"moduleInfoWorkDirectory", c.ModuleInfoWorkDirectory},
		{"foundModulesDirectory", c.FoundModulesDirectory},
		{"notModulesDirectory", c.NotModulesDirectory},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ConfigError{Field: r.field, Message: "required"}
		}
	}
	if filepath.Clean(c.FoundModulesDirectory) == filepath.Clean(c.NotModulesDirectory) {
		return &ConfigError{Field: "notModulesDirectory", Message: "must differ from foundModulesDirectory"}
	}
	if c.JavaVersion < 0 {
		return &ConfigError{Field: "javaVersion", Message: "must not be negative"}
	}
	if c.ModuleVersion == "" {
		return &ConfigError{Field: "moduleVersion", Message: "required"}
	}
	switch c.Report.Format {
	case "human", "json", "yaml":
	default:
		return &ConfigError{Field: "report.format", Message: "unsupported format " + c.Report.Format}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
