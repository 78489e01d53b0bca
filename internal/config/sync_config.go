package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shockerli/cvt"
)

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	// ============ BASIC SETTINGS ============
	Enabled       bool `json:"enabled"`
	SyncOnStartup bool `json:"sync_on_startup"`

	// ============ SCHEDULING ============
	AutoSyncEnabled  bool `json:"auto_sync_enabled"`
	AutoSyncInterval int  `json:"auto_sync_interval"` // seconds
	SaveDebounceMs   int  `json:"save_debounce_ms"`

	// ============ LIMITS ============
	RemoteTimeout int `json:"remote_timeout"` // seconds
	BatchSize     int `json:"batch_size"`

	// ============ CONFLICTS ============
	ConflictResolution string `json:"conflict_resolution"` // fresh_window, last_write_wins
	FreshWindow        int    `json:"fresh_window"`        // seconds
}

// LoadSyncConfig loads sync configuration from environment or file
func LoadSyncConfig() *SyncConfig {
	// Try to load from file first
	if configPath := os.Getenv("SYNC_CONFIG_PATH"); configPath != "" {
		cfg, err := loadSyncConfigFromFile(configPath)
		if err == nil {
			return cfg
		}
		log.Printf("⚠️ Could not load sync config from %s, using defaults: %v", configPath, err)
	}

	// Otherwise use defaults
	return getDefaultSyncConfig()
}

// loadSyncConfigFromFile loads sync config from JSON file. Fields absent
// from the file keep their environment defaults.
func loadSyncConfigFromFile(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := getDefaultSyncConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// getDefaultSyncConfig returns default sync configuration
func getDefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Enabled:       getBoolEnv("SYNC_ENABLED", true),
		SyncOnStartup: getBoolEnv("SYNC_ON_STARTUP", true),

		AutoSyncEnabled:  getBoolEnv("SYNC_AUTO_ENABLED", true),
		AutoSyncInterval: getIntEnv("SYNC_AUTO_INTERVAL", 60),
		SaveDebounceMs:   getIntEnv("SYNC_SAVE_DEBOUNCE_MS", 2000),

		RemoteTimeout: getIntEnv("SYNC_TIMEOUT", 15),
		BatchSize:     getIntEnv("SYNC_BATCH_SIZE", 100),

		ConflictResolution: getEnv("SYNC_CONFLICT_RESOLUTION", "fresh_window"),
		FreshWindow:        getIntEnv("SYNC_FRESH_WINDOW", 300),
	}
}

// SaveDebounce returns the quiet period before a local change is pushed
func (c *SyncConfig) SaveDebounce() time.Duration {
	return time.Duration(c.SaveDebounceMs) * time.Millisecond
}

// Timeout returns the wall-clock bound of one remote call
func (c *SyncConfig) Timeout() time.Duration {
	return time.Duration(c.RemoteTimeout) * time.Second
}

// FreshWindowDuration returns how long a local write beats the remote copy
func (c *SyncConfig) FreshWindowDuration() time.Duration {
	return time.Duration(c.FreshWindow) * time.Second
}

// Helper functions for environment variables

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := cvt.BoolE(value); err == nil {
			return b
		}
		log.Printf("⚠️ Config: %s=%q is not a boolean, using %v", key, value, defaultValue)
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := cvt.IntE(value); err == nil {
			return n
		}
		log.Printf("⚠️ Config: %s=%q is not a number, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
