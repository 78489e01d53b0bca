package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ACCESS_KEY", "k")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ACCESS_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without ACCESS_KEY")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ACCESS_KEY", "k")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("PORT", "")
	t.Setenv("CACHE_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Port = %s", cfg.Port)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Key != "wotrack:docs_cache" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Database.Enabled {
		t.Error("database should be disabled")
	}

	t.Setenv("CACHE_BACKEND", "floppy")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown cache backend")
	}
}

func TestLoadSyncConfig(t *testing.T) {
	t.Setenv("SYNC_CONFIG_PATH", "")
	t.Setenv("SYNC_SAVE_DEBOUNCE_MS", "1500")
	for _, k := range []string{"SYNC_FRESH_WINDOW", "SYNC_CONFLICT_RESOLUTION", "SYNC_BATCH_SIZE", "SYNC_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg := LoadSyncConfig()
	if cfg.SaveDebounce() != 1500*time.Millisecond {
		t.Errorf("SaveDebounce = %v", cfg.SaveDebounce())
	}
	if cfg.FreshWindowDuration() != 5*time.Minute || cfg.ConflictResolution != "fresh_window" {
		t.Errorf("conflict defaults = %s/%v", cfg.ConflictResolution, cfg.FreshWindowDuration())
	}
	if cfg.BatchSize != 100 || cfg.Timeout() != 15*time.Second {
		t.Errorf("limits = %d/%v", cfg.BatchSize, cfg.Timeout())
	}

	path := filepath.Join(t.TempDir(), "sync.json")
	if err := os.WriteFile(path, []byte(`{"conflict_resolution":"last_write_wins","batch_size":25}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SYNC_CONFIG_PATH", path)

	cfg = LoadSyncConfig()
	if cfg.ConflictResolution != "last_write_wins" || cfg.BatchSize != 25 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	// absent keys keep the environment defaults
	if cfg.SaveDebounceMs != 1500 {
		t.Errorf("SaveDebounceMs = %d", cfg.SaveDebounceMs)
	}

	t.Setenv("SYNC_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.json"))
	if cfg := LoadSyncConfig(); cfg.BatchSize != 100 {
		t.Errorf("missing file should fall back to defaults, got batch %d", cfg.BatchSize)
	}
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("WOTRACK_TEST_INT", "abc")
	t.Setenv("WOTRACK_TEST_BOOL", "0")
	t.Setenv("WOTRACK_TEST_DUR", "soon")

	if got := getIntEnv("WOTRACK_TEST_INT", 7); got != 7 {
		t.Errorf("getIntEnv = %d, want fallback 7", got)
	}
	if got := getBoolEnv("WOTRACK_TEST_BOOL", true); got {
		t.Error("getBoolEnv(\"0\") = true")
	}
	if got := getDurationEnv("WOTRACK_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("getDurationEnv = %v", got)
	}

	t.Setenv("WOTRACK_TEST_INT", "42")
	if got := getIntEnv("WOTRACK_TEST_INT", 7); got != 42 {
		t.Errorf("getIntEnv = %d, want 42", got)
	}
}
