// Package config loads the application configuration from the user's
// config directory, falling back to defaults when no file exists.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// DataDir holds the database and log files. Defaults to ~/.workflow.
	DataDir string `yaml:"data_dir"`

	// SocketPath is the daemon's Unix socket. Defaults to
	// <DataDir>/workflow.sock.
	SocketPath string `yaml:"socket_path"`

	// HistoryDepth bounds the per-session undo history. 0 = unbounded.
	HistoryDepth int `yaml:"history_depth"`

	Daemon DaemonConfig `yaml:"daemon"`
}

// DaemonConfig tunes the event daemon's queues.
type DaemonConfig struct {
	BroadcastBuffer int `yaml:"broadcast_buffer"`
	ClientBuffer    int `yaml:"client_buffer"`
}

// Load loads config from the user's config directory.
// Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		config := &Config{}
		config.applyDefaults()
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := &Config{}
		config.applyDefaults()
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	return &config, nil
}

// Save saves the config to the user's config directory
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o644)
}

// DatabasePath returns the sqlite database file path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "workflow.db")
}

// LogPath returns the log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "workflow.log")
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	// Try XDG_CONFIG_HOME first
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "workflow", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "workflow", "config.yaml"), nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(homeDir, ".workflow")
		} else {
			c.DataDir = ".workflow"
		}
	}
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.DataDir, "workflow.sock")
	}
	if c.HistoryDepth < 0 {
		c.HistoryDepth = 0
	}
	if c.Daemon.BroadcastBuffer <= 0 {
		c.Daemon.BroadcastBuffer = 100
	}
	if c.Daemon.ClientBuffer <= 0 {
		c.Daemon.ClientBuffer = 10
	}
}
