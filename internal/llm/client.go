package llm

import (
	"context"
)

// ChatMessage is a vendor-neutral chat message sent to a model.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request represents a completion request
type Request struct {
	SystemPrompt string         `json:"system_prompt,omitempty"`
	Messages     []*ChatMessage `json:"messages"`
	Temperature  float64        `json:"temperature"`
	MaxTokens    int            `json:"max_tokens,omitempty"`
}

// Response represents a completion response before normalization
type Response struct {
	Content          string `json:"content"`
	StopReason       string `json:"stop_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Client is the interface for vendor LLM clients
type Client interface {
	// Complete sends a completion request and returns the raw response
	Complete(ctx context.Context, req *Request) (*Response, error)
	// ModelName returns the vendor-side model name
	ModelName() string
}

// Pricing holds per-million-token rates used to derive call cost.
type Pricing struct {
	PromptPerMTok     float64 `json:"prompt_per_mtok"`
	CompletionPerMTok float64 `json:"completion_per_mtok"`
}

// Cost computes the dollar cost for the given token counts.
func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return (float64(promptTokens)*p.PromptPerMTok + float64(completionTokens)*p.CompletionPerMTok) / 1e6
}

// ModelRef identifies a concrete vendor model plus the credential needed
// to call it. It is the only model description the adapter understands.
type ModelRef struct {
	VendorID      string  `json:"vendor_id"`
	APIModelName  string  `json:"api_model_name"`
	CredentialRef string  `json:"credential_ref,omitempty"`
	Pricing       Pricing `json:"pricing"`
}

// ClientFactory creates vendor clients for model references.
type ClientFactory interface {
	CreateClient(ref ModelRef) (Client, error)
}
