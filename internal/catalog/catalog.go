// Package catalog resolves a tool identifier to the concrete model
// configuration and system prompt needed to make an AI call. The catalog is
// a JSON file on disk (the durable configuration store) and is re-read on
// change so tool→model bindings can be swapped without a restart.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/logger"
	"github.com/plumeworks/plume/internal/tools"
)

// DefaultSystemPrompt is the degraded-but-functional fallback used when no
// prompt is configured for a tool's category.
const DefaultSystemPrompt = "You are a knowledgeable, supportive writing assistant helping a novelist with their manuscript. Be specific and constructive."

var (
	// ErrNotConfigured means the tool has no model binding.
	ErrNotConfigured = errors.New("no model bound to tool")
	// ErrModelMissing means the binding points at a model record that does not exist.
	ErrModelMissing = errors.New("bound model record not found")
)

// ConfigurationError is the typed failure returned by ResolveModel. It is
// reported to the user as a generic "tool unavailable" message; the wrapped
// cause stays in the logs.
type ConfigurationError struct {
	Tool tools.ID
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ModelEntry is a configured model record.
type ModelEntry struct {
	Vendor        string      `json:"vendor"`
	APIModelName  string      `json:"api_model_name"`
	CredentialRef string      `json:"credential_ref,omitempty"`
	Pricing       llm.Pricing `json:"pricing"`
}

// ModelConfig is the resolved per-call configuration for a tool.
type ModelConfig struct {
	Tool          tools.ID    `json:"tool"`
	ModelID       string      `json:"model_id"`
	VendorID      string      `json:"vendor_id"`
	APIModelName  string      `json:"api_model_name"`
	CredentialRef string      `json:"credential_ref,omitempty"`
	Pricing       llm.Pricing `json:"pricing"`
}

// Ref converts the resolved configuration into the adapter's model reference.
func (mc *ModelConfig) Ref() llm.ModelRef {
	return llm.ModelRef{
		VendorID:      mc.VendorID,
		APIModelName:  mc.APIModelName,
		CredentialRef: mc.CredentialRef,
		Pricing:       mc.Pricing,
	}
}

type fileFormat struct {
	Models   map[string]ModelEntry `json:"models"`
	Bindings map[string]string     `json:"bindings"` // tool id -> model id
	Prompts  map[string]string     `json:"prompts"`  // prompt category -> system prompt
}

// Catalog is the in-memory view of the configuration file.
type Catalog struct {
	path      string
	mu        sync.RWMutex
	models    map[string]ModelEntry
	bindings  map[tools.ID]string
	prompts   map[string]string
	watcher   *fsnotify.Watcher
	stopWatch chan struct{}
}

// Load reads the catalog file. A missing file yields an empty catalog (every
// resolve fails with ErrNotConfigured) rather than an error, so the service
// can start before it is configured.
func Load(path string) (*Catalog, error) {
	c := &Catalog{
		path:      path,
		models:    make(map[string]ModelEntry),
		bindings:  make(map[tools.ID]string),
		prompts:   make(map[string]string),
		stopWatch: make(chan struct{}),
	}

	if err := c.reload(); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("catalog: %s does not exist yet, starting empty", path)
			return c, nil
		}
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var parsed fileFormat
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", c.path, err)
	}

	models := make(map[string]ModelEntry, len(parsed.Models))
	for id, entry := range parsed.Models {
		models[id] = entry
	}
	bindings := make(map[tools.ID]string, len(parsed.Bindings))
	for tool, modelID := range parsed.Bindings {
		id := tools.ID(tool)
		if !tools.Valid(id) {
			logger.Warn("catalog: binding for unknown tool %q ignored", tool)
			continue
		}
		bindings[id] = modelID
	}
	prompts := make(map[string]string, len(parsed.Prompts))
	for category, prompt := range parsed.Prompts {
		prompts[category] = prompt
	}

	c.mu.Lock()
	c.models = models
	c.bindings = bindings
	c.prompts = prompts
	c.mu.Unlock()

	logger.Info("catalog: loaded %d models, %d bindings, %d prompts from %s",
		len(models), len(bindings), len(prompts), c.path)
	return nil
}

// Watch starts re-reading the catalog whenever the file changes. Call Close
// to stop watching.
func (c *Catalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}

	// Watch the directory: editors and atomic saves replace the file node.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}
	c.watcher = watcher

	go func() {
		for {
			select {
			case <-c.stopWatch:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(c.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := c.reload(); err != nil && !os.IsNotExist(err) {
					logger.Error("catalog: reload after change failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("catalog: watcher error: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the file watcher.
func (c *Catalog) Close() error {
	close(c.stopWatch)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// ResolveModel returns the model configuration bound to the tool. It fails
// with a *ConfigurationError when the binding or the model record is absent;
// it never panics.
func (c *Catalog) ResolveModel(tool tools.ID) (*ModelConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	modelID, ok := c.bindings[tool]
	if !ok || modelID == "" {
		return nil, &ConfigurationError{Tool: tool, Err: ErrNotConfigured}
	}

	entry, ok := c.models[modelID]
	if !ok {
		return nil, &ConfigurationError{Tool: tool, Err: fmt.Errorf("%w: %s", ErrModelMissing, modelID)}
	}

	return &ModelConfig{
		Tool:          tool,
		ModelID:       modelID,
		VendorID:      entry.Vendor,
		APIModelName:  entry.APIModelName,
		CredentialRef: entry.CredentialRef,
		Pricing:       entry.Pricing,
	}, nil
}

// ResolveSystemPrompt returns the system prompt for the tool's category,
// falling back to the generic default. A missing prompt is a degraded
// condition, not an error.
func (c *Catalog) ResolveSystemPrompt(tool tools.ID) string {
	def, ok := tools.Get(tool)
	if !ok {
		return DefaultSystemPrompt
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if prompt, ok := c.prompts[def.PromptCategory]; ok && prompt != "" {
		return prompt
	}
	logger.Debug("catalog: no prompt for category %q, using default", def.PromptCategory)
	return DefaultSystemPrompt
}
