// Package config provides configuration file support for fileguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/logging"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// FileName is the config file looked up in the working directory.
const FileName = ".fileguard.yaml"

// Config represents the fileguard configuration.
type Config struct {
	// StagingDir is the parent of staging areas; empty means os.TempDir().
	StagingDir string           `yaml:"staging_dir" json:"staging_dir"`
	Engine     model.EngineType `yaml:"engine" json:"engine"`
	KeyMode    model.KeyMode    `yaml:"key_mode" json:"key_mode"`
	// Verify compares a digest of every restored path with its capture.
	Verify  bool          `yaml:"verify" json:"verify"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // json, text
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Engine:  model.EngineAuto,
		KeyMode: model.KeyAbsolute,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads configuration from path, then applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errclass.ErrConfigInvalid.Wrapf(err, "parse %s", path)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDir loads FileName from dir.
func LoadDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Engine {
	case model.EngineAuto, model.EngineCopy, model.EngineReflinkCopy:
	default:
		return errclass.ErrConfigInvalid.WithMessagef("unknown engine %q", c.Engine)
	}
	if !c.KeyMode.Valid() {
		return errclass.ErrConfigInvalid.WithMessagef("unknown key_mode %q", c.KeyMode)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatJSON, logging.FormatText:
	default:
		return errclass.ErrConfigInvalid.WithMessagef("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

// NewLogger builds a logger from the logging section.
func (c *Config) NewLogger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	l := logging.NewLogger(level)
	l.SetFormat(logging.Format(c.Logging.Format))
	return l, nil
}

// Save writes configuration to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
