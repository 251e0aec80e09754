// Package config holds the service configuration: where state lives, which
// catalog and credentials files to use, and the LLM call defaults. A missing
// config file yields the defaults; loading overlays only the fields the
// file provides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/plumeworks/plume/internal/consts"
)

// Config represents service configuration.
type Config struct {
	ListenAddr      string  `json:"listen_addr"`
	DataDir         string  `json:"data_dir"`
	CatalogPath     string  `json:"catalog_path"`
	CredentialsPath string  `json:"credentials_path"`
	AuthToken       string  `json:"auth_token,omitempty"`
	LogLevel        string  `json:"log_level"` // debug, info, warn, error, none
	LogPath         string  `json:"log_path,omitempty"`
	Temperature     float64 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens"`
	StartingCredits int64   `json:"starting_credits"`
}

func defaultDataDir() string {
	if dir := strings.TrimSpace(os.Getenv("PLUME_DATA_DIR")); dir != "" {
		return dir
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "plume")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()

	return &Config{
		ListenAddr:      "127.0.0.1:8787",
		DataDir:         dataDir,
		CatalogPath:     filepath.Join(dataDir, "catalog.json"),
		CredentialsPath: filepath.Join(dataDir, "credentials.json"),
		LogLevel:        "info",
		LogPath:         filepath.Join(dataDir, "plume.log"),
		Temperature:     consts.DefaultTemperature,
		MaxTokens:       consts.DefaultMaxTokens,
		StartingCredits: 100,
	}
}

// Load reads configuration from path, overlaying it on the defaults. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// Backfill fields an older or hand-edited file may have blanked.
	if config.DataDir == "" {
		config.DataDir = defaultDataDir()
	}
	if config.ListenAddr == "" {
		config.ListenAddr = "127.0.0.1:8787"
	}
	if config.CatalogPath == "" {
		config.CatalogPath = filepath.Join(config.DataDir, "catalog.json")
	}
	if config.CredentialsPath == "" {
		config.CredentialsPath = filepath.Join(config.DataDir, "credentials.json")
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = consts.DefaultMaxTokens
	}
	if config.Temperature <= 0 {
		config.Temperature = consts.DefaultTemperature
	}
	if config.StartingCredits <= 0 {
		config.StartingCredits = 100
	}

	return config, nil
}

// Save writes configuration to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
