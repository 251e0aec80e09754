package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/plumeworks/plume/internal/consts"
	"github.com/plumeworks/plume/internal/logger"
)

// Public-safe messages returned in error turns. The real cause is kept in
// the block diagnostic and never shown to the end user.
const (
	publicErrClientUnavailable = "This tool's AI service is currently unavailable. Please try again later."
	publicErrCallFailed        = "The AI request could not be completed. Please try again."
	publicErrEmptyResponse     = "The AI service returned an empty response. Please try again."
)

// Adapter is the single seam to the underlying multi-vendor chat mechanism.
// It performs exactly one vendor call per invocation and never lets a vendor
// error escape as a raw error: every failure mode is captured as a normalized
// error turn.
type Adapter struct {
	factory     ClientFactory
	temperature float64
	maxTokens   int
}

// NewAdapter creates a chat invocation adapter backed by the given factory.
func NewAdapter(factory ClientFactory, temperature float64, maxTokens int) *Adapter {
	if temperature <= 0 {
		temperature = consts.DefaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = consts.DefaultMaxTokens
	}
	return &Adapter{
		factory:     factory,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Invoke sends the composed prompt plus prior history to the model referenced
// by ref and returns a normalized turn. The returned turn is an error turn
// when the client cannot be built, the call fails, or the vendor responds
// with nothing usable.
func (a *Adapter) Invoke(ctx context.Context, ref ModelRef, history []*Turn, composedPrompt, systemPrompt string) *Turn {
	client, err := a.factory.CreateClient(ref)
	if err != nil {
		logger.Error("adapter: failed to create %s client: %v", ref.VendorID, err)
		return NewErrorTurn(publicErrClientUnavailable, fmt.Sprintf("create client for vendor %s: %v", ref.VendorID, err))
	}

	messages := HistoryToMessages(history)
	messages = append(messages, &ChatMessage{Role: string(RoleUser), Content: composedPrompt})
	logger.Debug("adapter: calling %s model %s with %d messages (~%d tokens)",
		ref.VendorID, ref.APIModelName, len(messages), EstimateTokenCountForMessages(messages))

	resp, err := client.Complete(ctx, &Request{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
	})
	if err != nil {
		logger.Error("adapter: %s call failed for model %s: %v", ref.VendorID, ref.APIModelName, err)
		return NewErrorTurn(publicErrCallFailed, err.Error())
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		logger.Warn("adapter: empty response from %s model %s (stop=%s)", ref.VendorID, ref.APIModelName, stopReason(resp))
		return NewErrorTurn(publicErrEmptyResponse, fmt.Sprintf("empty response, stop reason %q", stopReason(resp)))
	}

	return NewAssistantTurn(resp.Content, normalizeUsage(resp, ref.Pricing), ref.APIModelName)
}

// normalizeUsage maps vendor token counts into the shared Usage shape.
// When the vendor reported no token counts at all, usage is treated as
// absent so billing can apply its flat fallback.
func normalizeUsage(resp *Response, pricing Pricing) *Usage {
	if resp == nil || (resp.PromptTokens == 0 && resp.CompletionTokens == 0) {
		return nil
	}
	return &Usage{
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.PromptTokens + resp.CompletionTokens,
		TotalCost:        pricing.Cost(resp.PromptTokens, resp.CompletionTokens),
	}
}

func stopReason(resp *Response) string {
	if resp == nil {
		return ""
	}
	return resp.StopReason
}
