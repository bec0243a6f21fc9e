// Package config loads rrulecheck settings from a config file, RRULECHECK_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/cyp0633/rrulecheck/fixture"
	"github.com/cyp0633/rrulecheck/recurrence"
	"github.com/cyp0633/rrulecheck/rrule"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. RRULECHECK_WORKERS.
	EnvPrefix = "RRULECHECK"
	// FileName is the config file looked up in the working directory.
	FileName = ".rrulecheck"
)

// Config holds every setting of the CLI.
type Config struct {
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`
	Pattern   string `mapstructure:"pattern"`
	Timezone  string `mapstructure:"timezone"`
	Workers   int    `mapstructure:"workers"`
	Strict    bool   `mapstructure:"strict"`
	Engine    string `mapstructure:"engine"`
	LogLevel  string `mapstructure:"log_level"`
	JUnit     string `mapstructure:"junit"`
	Cache     bool   `mapstructure:"cache"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("input_dir", "tests/fixtures/python-dateutil/input")
	v.SetDefault("output_dir", "tests/fixtures/python-dateutil/generated")
	v.SetDefault("pattern", fixture.DefaultPattern)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("workers", 4)
	v.SetDefault("strict", false)
	v.SetDefault("engine", recurrence.EngineNative)
	v.SetDefault("log_level", "info")
	v.SetDefault("junit", "")
	v.SetDefault("cache", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, or .rrulecheck.yaml in the working
// directory when path is empty, and returns the merged settings. A missing
// default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := recurrence.ExpanderByName(c.Engine); err != nil {
		return err
	}
	if _, err := rrule.LoadZone(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// EngineConfig derives the expansion engine settings.
func (c *Config) EngineConfig() recurrence.EngineConfig {
	ec := recurrence.DefaultEngineConfig
	if !c.Cache {
		ec = recurrence.DisabledCacheConfig
	}
	ec.StrictFrequency = c.Strict
	ec.DefaultTimezone = c.Timezone
	return ec
}

// NewEngine builds the expansion engine these settings describe.
func (c *Config) NewEngine(opts ...recurrence.Option) (*recurrence.Engine, error) {
	x, err := recurrence.ExpanderByName(c.Engine)
	if err != nil {
		return nil, err
	}
	opts = append([]recurrence.Option{recurrence.WithExpander(x)}, opts...)
	return recurrence.NewEngineWithConfig(c.EngineConfig(), opts...), nil
}
