// Package config loads agentcmd.jsonc, the optional library configuration.
//
// Configuration is an explicit value handed to the engine by the caller —
// it is resolved once per engine, never cached as ambient global state, and
// no environment variables are consulted.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds everything agentcmd.jsonc can set.
type Config struct {
	// Binaries maps provider name -> explicit executable path, overriding
	// PATH lookup and the built-in candidate lists.
	Binaries map[string]string `json:"binaries"`

	// Defaults applied to requests that leave the field zero.
	Defaults Defaults `json:"defaults"`

	// DataDir is where the execution history database lives.
	// Empty disables history.
	DataDir string `json:"data_dir"`

	// Log controls the library logger.
	Log LogConfig `json:"log"`
}

// Defaults are fallback request values.
type Defaults struct {
	PermissionMode string `json:"permission_mode"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// LogConfig controls log output format and level.
type LogConfig struct {
	JSON  bool   `json:"json"`
	Level string `json:"level"` // debug, info, warn, error
}

// Load reads and parses a JSONC config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(StripComments(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Defaults.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("config %s: timeout_seconds must not be negative", path)
	}
	return &cfg, nil
}
