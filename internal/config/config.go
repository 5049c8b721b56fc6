// Package config loads ralph-bril settings from defaults, a config file,
// RALPH_BRIL_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to environment variable names, e.g. RALPH_BRIL_BUILD_JOBS
const EnvPrefix = "RALPH_BRIL"

// Default settings
const (
	DefaultJobs      = 0 // one per CPU
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
	DefaultColor     = "auto"
)

// Candidates are the config file names searched for, in order
var Candidates = []string{
	"ralph-bril.yaml",
	"ralph-bril.yml",
	"ralph-bril.toml",
	"ralph-bril.json",
	".ralph-bril.yaml",
}

// Config is the full configuration
type Config struct {
	Build  BuildConfig  `mapstructure:"build" yaml:"build"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// BuildConfig controls CFG construction
type BuildConfig struct {
	// Jobs is the number of functions translated concurrently; 0 means one per CPU
	Jobs int `mapstructure:"jobs" yaml:"jobs"`

	// Timeout bounds the translation of a whole program; 0 disables it
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OutputConfig controls where dumps are written
type OutputConfig struct {
	// Dir receives dump files; empty means next to the input
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Stdout also echoes dumps to standard output
	Stdout bool `mapstructure:"stdout" yaml:"stdout"`

	// Color is auto, always or never
	Color string `mapstructure:"color" yaml:"color"`
}

// LogConfig controls the diagnostic logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			Jobs: DefaultJobs,
		},
		Output: OutputConfig{
			Stdout: true,
			Color:  DefaultColor,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// flagKeys maps command line flag names to config keys
var flagKeys = map[string]string{
	"jobs":       "build.jobs",
	"timeout":    "build.timeout",
	"output-dir": "output.dir",
	"color":      "output.color",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load builds the configuration.
// An empty configPath searches the working directory for one of Candidates;
// finding none is not an error. Flags that exist in fs and were set on the
// command line override everything else; fs may be nil.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = Discover(".")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if fs != nil {
		if err := BindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// setDefaults registers every key so environment variables are seen by Unmarshal
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("build.jobs", c.Build.Jobs)
	v.SetDefault("build.timeout", c.Build.Timeout)
	v.SetDefault("output.dir", c.Output.Dir)
	v.SetDefault("output.stdout", c.Output.Stdout)
	v.SetDefault("output.color", c.Output.Color)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
}

// BindFlags binds the flags of fs that correspond to config keys
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Discover returns the first config file from Candidates present in dir, or ""
func Discover(dir string) string {
	for _, candidate := range Candidates {
		path := filepath.Join(dir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Build.Jobs < 0 {
		return fmt.Errorf("build.jobs must be >= 0, got %d", c.Build.Jobs)
	}
	if c.Build.Timeout < 0 {
		return fmt.Errorf("build.timeout must be >= 0, got %s", c.Build.Timeout)
	}

	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid output.color '%s', must be one of: auto, always, never", c.Output.Color)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format '%s', must be one of: console, json", c.Log.Format)
	}
	return nil
}

// Write encodes the configuration as YAML
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
