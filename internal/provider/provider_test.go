package provider

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/secrets"
)

func TestCreateClientUnknownVendor(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "creds.json"), "")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m.SetVendor("mystery", "key", "")

	_, err = m.CreateClient(llm.ModelRef{VendorID: "mystery", APIModelName: "m"})
	if err == nil || !strings.Contains(err.Error(), "unknown vendor") {
		t.Errorf("Expected unknown vendor error, got %v", err)
	}
}

func TestCreateClientNoCredentials(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "creds.json"), "")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	_, err = m.CreateClient(llm.ModelRef{VendorID: "frobnicator", APIModelName: "m"})
	if err == nil {
		t.Error("Expected error when no credentials exist for the vendor")
	}
}

func TestCreateClientAnthropic(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "creds.json"), "")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m.SetVendor(VendorAnthropic, "sk-ant-test", "")

	client, err := m.CreateClient(llm.ModelRef{VendorID: VendorAnthropic, APIModelName: "claude-sonnet-4-20250514"})
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if client.ModelName() != "claude-sonnet-4-20250514" {
		t.Errorf("Unexpected model name %q", client.ModelName())
	}
}

func TestCredentialRefOverridesVendorEntry(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "creds.json"), "")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m.SetVendor("openai-team-b", "sk-b", "https://proxy.example.com/v1")

	client, err := m.CreateClient(llm.ModelRef{
		VendorID:      VendorOpenAI,
		APIModelName:  "gpt-4o",
		CredentialRef: "openai-team-b",
	})
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if client.ModelName() != "gpt-4o" {
		t.Errorf("Unexpected model name %q", client.ModelName())
	}
}

func TestSaveEncryptsKeysAndLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	m, err := NewManager(path, "passphrase")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m.SetVendor(VendorAnthropic, "sk-ant-plain", "")

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if strings.Contains(string(raw), "sk-ant-plain") {
		t.Error("API key must not be stored in plaintext when a password is set")
	}
	if !strings.Contains(string(raw), secrets.SecretPrefix) {
		t.Error("Stored key should carry the encryption prefix")
	}

	reloaded, err := NewManager(path, "passphrase")
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if _, err := reloaded.CreateClient(llm.ModelRef{VendorID: VendorAnthropic, APIModelName: "claude-sonnet-4-20250514"}); err != nil {
		t.Errorf("Client creation after reload failed: %v", err)
	}
}
