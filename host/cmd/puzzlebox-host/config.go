package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML config file for the host tool. Flags
// override whatever the file sets.
type Config struct {
	Device      string `yaml:"device"`
	Baud        int    `yaml:"baud"`
	ReadTimeout int    `yaml:"read_timeout_ms"`

	// Aliases maps short names to key codes, so a test plan can say
	// "key topleft" instead of quoting matrix codes.
	Aliases map[string]uint8 `yaml:"aliases"`
}

// DefaultConfig returns the config used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Device:      "/dev/ttyACM0",
		Baud:        115200,
		ReadTimeout: 100,
		Aliases:     map[string]uint8{},
	}
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("%s: baud must be positive", path)
	}
	return cfg, nil
}
