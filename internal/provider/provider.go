// Package provider manages vendor credentials and builds vendor LLM clients.
// It is the llm.ClientFactory implementation used by the chat adapter.
package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/logger"
	"github.com/plumeworks/plume/internal/secrets"
)

// Vendor identifiers understood by CreateClient.
const (
	VendorAnthropic = "anthropic"
	VendorOpenAI    = "openai"
	VendorGoogle    = "google"
)

// Vendor holds one vendor's credentials. APIKey may be stored encrypted
// (secrets.SecretPrefix) when the manager has a password.
type Vendor struct {
	Name    string `json:"name"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
}

// Config is the persisted credential file shape.
type Config struct {
	Vendors map[string]*Vendor `json:"vendors"`
}

// Manager loads and serves vendor credentials.
type Manager struct {
	configPath string
	password   string
	mu         sync.RWMutex
	config     *Config
}

// NewManager creates a manager backed by the given credentials file. The
// file may not exist yet; vendors can also come purely from environment
// variables.
func NewManager(configPath, password string) (*Manager, error) {
	m := &Manager{
		configPath: configPath,
		password:   password,
		config:     &Config{Vendors: make(map[string]*Vendor)},
	}

	if err := m.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return m, nil
}

// Load reads the credentials file from disk.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse credentials file %s: %w", m.configPath, err)
	}
	if cfg.Vendors == nil {
		cfg.Vendors = make(map[string]*Vendor)
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Save writes the credentials file, encrypting API keys when a password is set.
func (m *Manager) Save() error {
	m.mu.RLock()
	out := Config{Vendors: make(map[string]*Vendor, len(m.config.Vendors))}
	for id, vendor := range m.config.Vendors {
		copied := *vendor
		out.Vendors[id] = &copied
	}
	m.mu.RUnlock()

	if m.password != "" {
		for _, vendor := range out.Vendors {
			if strings.HasPrefix(vendor.APIKey, secrets.SecretPrefix) {
				continue
			}
			encrypted, err := secrets.EncryptString(vendor.APIKey, m.password)
			if err != nil {
				return fmt.Errorf("failed to encrypt key for %s: %w", vendor.Name, err)
			}
			vendor.APIKey = encrypted
		}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return os.WriteFile(m.configPath, data, 0600)
}

// SetVendor adds or replaces a vendor's credentials in memory.
func (m *Manager) SetVendor(id, apiKey, baseURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Vendors[id] = &Vendor{Name: id, APIKey: apiKey, BaseURL: baseURL}
}

// apiKey resolves a vendor's key: configured (decrypting if needed), then
// the conventional environment variable.
func (m *Manager) apiKey(vendorID string) (string, string, error) {
	m.mu.RLock()
	vendor, ok := m.config.Vendors[vendorID]
	m.mu.RUnlock()

	if ok && vendor.APIKey != "" {
		key, wasEncrypted, err := secrets.DecryptString(vendor.APIKey, m.password)
		if err != nil {
			if wasEncrypted && m.password == "" {
				return "", "", fmt.Errorf("credentials for %s are encrypted but no password was provided", vendorID)
			}
			return "", "", fmt.Errorf("failed to decrypt credentials for %s: %w", vendorID, err)
		}
		return key, vendor.BaseURL, nil
	}

	envVar := strings.ToUpper(vendorID) + "_API_KEY"
	if key := os.Getenv(envVar); key != "" {
		logger.Debug("provider: using %s from environment", envVar)
		return key, "", nil
	}

	return "", "", fmt.Errorf("no credentials configured for vendor %s", vendorID)
}

// CreateClient builds a vendor client for the model reference. The
// credential ref overrides which vendor entry supplies the key, so several
// models can share one vendor account or use separate ones.
func (m *Manager) CreateClient(ref llm.ModelRef) (llm.Client, error) {
	credentialID := ref.CredentialRef
	if credentialID == "" {
		credentialID = ref.VendorID
	}

	key, baseURL, err := m.apiKey(credentialID)
	if err != nil {
		return nil, err
	}

	switch ref.VendorID {
	case VendorAnthropic:
		return llm.NewAnthropicClient(key, ref.APIModelName)
	case VendorOpenAI:
		return llm.NewOpenAIClient(key, ref.APIModelName, baseURL)
	case VendorGoogle:
		return llm.NewGoogleAIClient(key, ref.APIModelName)
	default:
		return nil, fmt.Errorf("unknown vendor: %s", ref.VendorID)
	}
}
