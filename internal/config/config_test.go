package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8787" {
		t.Errorf("Unexpected default listen addr: %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Unexpected default log level: %q", cfg.LogLevel)
	}
	if cfg.MaxTokens != 2048 || cfg.Temperature != 0.7 {
		t.Errorf("Unexpected LLM defaults: max_tokens=%d temperature=%v", cfg.MaxTokens, cfg.Temperature)
	}
	if cfg.StartingCredits != 100 {
		t.Errorf("Unexpected starting credits: %d", cfg.StartingCredits)
	}
}

func TestLoadOverlaysOnlyProvidedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"listen_addr":"0.0.0.0:9000","log_level":"debug"}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("Expected overridden listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected overridden log level, got %q", cfg.LogLevel)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("Unprovided fields must keep defaults, got max_tokens=%d", cfg.MaxTokens)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:9999"
	cfg.AuthToken = "secret-token"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ListenAddr != "127.0.0.1:9999" || loaded.AuthToken != "secret-token" {
		t.Errorf("Round trip lost fields: %+v", loaded)
	}
}

func TestDataDirEnvOverride(t *testing.T) {
	t.Setenv("PLUME_DATA_DIR", "/tmp/plume-test-data")

	cfg := DefaultConfig()
	if cfg.DataDir != "/tmp/plume-test-data" {
		t.Errorf("Expected env override for data dir, got %q", cfg.DataDir)
	}
	if cfg.CatalogPath != filepath.Join("/tmp/plume-test-data", "catalog.json") {
		t.Errorf("Catalog path must follow data dir, got %q", cfg.CatalogPath)
	}
}
