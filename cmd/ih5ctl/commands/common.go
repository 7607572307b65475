package commands

import (
	"fmt"

	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/config"
)

// loadConfig loads the ih5ctl configuration from the global --config flag,
// falling back to the default search path, and applies defaults to any
// field left unset.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.ApplyDefaults(cfg)
	return cfg, nil
}

// chainConfig builds a pkg/chain.Config from the loaded chain defaults.
func chainConfig(cfg *config.Config) chain.Config {
	cc := chain.DefaultConfig()
	if cfg.Chain.HashAlgorithm != "" {
		cc.HashAlgorithm = cfg.Chain.HashAlgorithm
	}
	if cfg.Chain.ReservedUserBlockSize > 0 {
		cc.ReservedUserBlockSize = int(cfg.Chain.ReservedUserBlockSize)
	}
	return cc
}
