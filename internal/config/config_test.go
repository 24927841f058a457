package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigWithoutFile(t *testing.T) {
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	tempDir := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tempDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() without config file failed: %v", err)
	}

	if cfg.DataDir == "" {
		t.Error("expected default data dir")
	}
	if cfg.SocketPath != filepath.Join(cfg.DataDir, "workflow.sock") {
		t.Errorf("expected default socket under data dir, got %s", cfg.SocketPath)
	}
	if cfg.Daemon.BroadcastBuffer != 100 || cfg.Daemon.ClientBuffer != 10 {
		t.Errorf("expected default daemon buffers, got %+v", cfg.Daemon)
	}
}

func TestLoadConfigWithFile(t *testing.T) {
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	tempDir := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tempDir)

	configDir := filepath.Join(tempDir, "workflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `data_dir: /var/lib/workflow
history_depth: 25
daemon:
  broadcast_buffer: 500
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DataDir != "/var/lib/workflow" {
		t.Errorf("DataDir = %s, want /var/lib/workflow", cfg.DataDir)
	}
	if cfg.HistoryDepth != 25 {
		t.Errorf("HistoryDepth = %d, want 25", cfg.HistoryDepth)
	}
	if cfg.Daemon.BroadcastBuffer != 500 {
		t.Errorf("BroadcastBuffer = %d, want 500", cfg.Daemon.BroadcastBuffer)
	}
	// Unset values still default
	if cfg.SocketPath != filepath.Join("/var/lib/workflow", "workflow.sock") {
		t.Errorf("SocketPath = %s, want data-dir default", cfg.SocketPath)
	}
	if cfg.Daemon.ClientBuffer != 10 {
		t.Errorf("ClientBuffer = %d, want default 10", cfg.Daemon.ClientBuffer)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	tempDir := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tempDir)

	configDir := filepath.Join(tempDir, "workflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("data_dir: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data/workflow"}
	cfg.applyDefaults()

	if cfg.DatabasePath() != "/data/workflow/workflow.db" {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath())
	}
	if !strings.HasSuffix(cfg.LogPath(), filepath.Join("logs", "workflow.log")) {
		t.Errorf("LogPath = %s", cfg.LogPath())
	}
}
