package config

import (
	"github.com/kelseyhightower/envconfig"

	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// EnvPrefix prefixes environment overrides, e.g. FILEGUARD_STAGING_DIR.
const EnvPrefix = "fileguard"

// envOverrides holds settings taken from the environment. Unset variables
// leave their pointer nil.
type envOverrides struct {
	StagingDir *string `envconfig:"STAGING_DIR"`
	Engine     *string `envconfig:"ENGINE"`
	KeyMode    *string `envconfig:"KEY_MODE"`
	Verify     *bool   `envconfig:"VERIFY"`
	LogLevel   *string `envconfig:"LOG_LEVEL"`
	LogFormat  *string `envconfig:"LOG_FORMAT"`
	Metrics    *bool   `envconfig:"METRICS"`
}

// ApplyEnv overrides cfg with FILEGUARD_* environment variables.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return errclass.ErrConfigInvalid.Wrapf(err, "environment")
	}

	if env.StagingDir != nil {
		cfg.StagingDir = *env.StagingDir
	}
	if env.Engine != nil {
		cfg.Engine = model.EngineType(*env.Engine)
	}
	if env.KeyMode != nil {
		cfg.KeyMode = model.KeyMode(*env.KeyMode)
	}
	if env.Verify != nil {
		cfg.Verify = *env.Verify
	}
	if env.LogLevel != nil {
		cfg.Logging.Level = *env.LogLevel
	}
	if env.LogFormat != nil {
		cfg.Logging.Format = *env.LogFormat
	}
	if env.Metrics != nil {
		cfg.Metrics.Enabled = *env.Metrics
	}
	return nil
}
