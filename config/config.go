package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/forgequant/emulator/matching"
	"github.com/forgequant/emulator/positions"
	"github.com/forgequant/emulator/protective"
)

const configFileName = "config.toml"

// Config ties together the per engine configuration types.
type Config struct {
	Matching   matching.Config   `group:"Matching" namespace:"matching"`
	Positions  positions.Config  `group:"Positions" namespace:"positions"`
	Protective protective.Config `group:"Protective" namespace:"protective"`
}

// NewDefaultConfig returns the defaults for every engine package, as
// specified at the per package config level.
func NewDefaultConfig() Config {
	return Config{
		Matching:   matching.NewDefaultConfig(),
		Positions:  positions.NewDefaultConfig(),
		Protective: protective.NewDefaultConfig(),
	}
}

// Read loads the configuration file under rootPath over the defaults, so a
// partial file only overrides what it names.
func Read(rootPath string) (*Config, error) {
	buf, err := os.ReadFile(filepath.Join(rootPath, configFileName))
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write stores the configuration file under rootPath.
func Write(rootPath string, cfg Config) error {
	f, err := os.Create(filepath.Join(rootPath, configFileName))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
