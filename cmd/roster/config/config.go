// Package config stores the roster CLI's user preferences.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultServerURL is used when no server is configured.
const DefaultServerURL = "http://localhost:8000"

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode bool   `json:"debug_mode"`
	Level     string `json:"level"`
}

// Config holds user preferences
type Config struct {
	ServerURL      string        `json:"server_url"`
	Theme          string        `json:"theme"` // "light" or "dark"
	TimeoutSeconds int           `json:"timeout_seconds"`
	Logging        LoggingConfig `json:"logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		ServerURL:      DefaultServerURL,
		Theme:          "light",
		TimeoutSeconds: 15,
	}
}

// ConfigDir returns the directory where config is stored
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".roster"), nil
}

// ConfigFile returns the full path to the config file
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk
func Load() (Config, error) {
	path, err := ConfigFile()
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the configuration to disk
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigFile()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
