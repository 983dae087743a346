package config

import (
	"os"

	modelconfig "github.com/engram-lab/engram/pkg/domain/model/config"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Engine holds the flag pointing at the retrieval tuning file
type Engine struct {
	configPath string
}

// Flags returns CLI flags for engine configuration
func (e *Engine) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "engine-config",
			Usage:       "Path to engine tuning file (TOML). Defaults apply when omitted",
			Sources:     cli.EnvVars("ENGRAM_ENGINE_CONFIG"),
			Destination: &e.configPath,
		},
	}
}

// Configure loads the engine tuning, applying defaults for unset fields
func (e *Engine) Configure() (*modelconfig.EngineConfig, error) {
	cfg := modelconfig.DefaultEngineConfig()

	if e.configPath != "" {
		data, err := os.ReadFile(e.configPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read engine config",
				goerr.V("path", e.configPath))
		}
		cfg = &modelconfig.EngineConfig{}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to parse engine config",
				goerr.V("path", e.configPath))
		}
		cfg.FillDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid engine config", goerr.V("path", e.configPath))
	}
	return cfg, nil
}
