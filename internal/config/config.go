// Package config handles configuration loading and validation for csmigrate.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".csmigrate"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes environment variables that override configuration keys,
	// e.g. CSMIGRATE_DRY_RUN or CSMIGRATE_CACHE_DIR.
	EnvPrefix = "CSMIGRATE"
)

// Config holds all configuration for csmigrate.
type Config struct {
	// RulesFile is the YAML, JSON or TOML rule file to apply.
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
	// Package selects the migrations of a rule file by package and versions.
	Package PackageConfig `mapstructure:"package" yaml:"package"`
	// Include lists glob patterns of files to migrate, relative to the root.
	Include []string `mapstructure:"include" yaml:"include"`
	// Exclude lists glob patterns of files never migrated.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// ReferencePaths are extra directories indexed for symbol resolution but
	// not migrated, e.g. the sources of the upgraded package.
	ReferencePaths []string `mapstructure:"reference_paths" yaml:"reference_paths"`
	// Parallelism bounds how many files are migrated at once. Zero means one
	// per CPU.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
	// DryRun reports diffs instead of writing files.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
	// RespectGitignore skips files ignored by .gitignore files.
	RespectGitignore bool `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
	// Prefilter skips files that mention none of the rules' identifiers.
	Prefilter bool `mapstructure:"prefilter" yaml:"prefilter"`
	// Semantic enables symbol resolution for invocation matching.
	Semantic bool `mapstructure:"semantic" yaml:"semantic"`
	// Cache contains the declaration cache configuration.
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
	// Log contains logging configuration.
	Log LogConfig `mapstructure:"log" yaml:"log"`
	// Watch contains watch mode configuration.
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`
}

// PackageConfig names the upgraded package and its version change.
type PackageConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to" yaml:"to"`
}

// CacheConfig holds the declaration cache configuration.
type CacheConfig struct {
	// Dir is the BadgerDB directory. Empty disables the cache.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level"`
}

// WatchConfig holds watch mode configuration.
type WatchConfig struct {
	// Debounce is how long changes settle before a re-run.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper)
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// variable sets a key.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.RulesFile == "" {
		return fmt.Errorf("rules_file must be configured")
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Package.Name != "" && c.Package.To == "" {
		return fmt.Errorf("package.to is required when package.name is set")
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}

// SlogLevel converts Log.Level to a slog level. Empty means info.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
}

const fileHeader = "# csmigrate configuration\n" +
	"# Keys can be overridden with " + EnvPrefix + "_* environment variables.\n"

// WriteConfig writes cfg to path as YAML that Load reads back unchanged.
func WriteConfig(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("rules_file", "")
	v.SetDefault("package.name", "")
	v.SetDefault("package.from", "")
	v.SetDefault("package.to", "")

	v.SetDefault("include", []string{"**/*.cs"})
	v.SetDefault("exclude", []string{
		"**/bin/**",
		"**/obj/**",
		"**/.git/**",
		"**/node_modules/**",
		"**/*.g.cs",
		"**/*.Designer.cs",
	})
	v.SetDefault("reference_paths", []string{})

	v.SetDefault("parallelism", 0)
	v.SetDefault("dry_run", false)
	v.SetDefault("respect_gitignore", true)
	v.SetDefault("prefilter", true)
	v.SetDefault("semantic", true)

	v.SetDefault("cache.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("watch.debounce", 500*time.Millisecond)
}
