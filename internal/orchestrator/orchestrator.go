// Package orchestrator coordinates one AI assist call end to end: resolve
// the tool's model and system prompt, format project context, compose the
// outbound prompt, invoke the chat adapter, then dispatch billing and audit
// to background actors. The entrypoint never returns a raw error; every
// failure mode comes back as a normalized error turn.
package orchestrator

import (
	"context"
	"encoding/json"
	"math"

	"github.com/plumeworks/plume/internal/actor"
	"github.com/plumeworks/plume/internal/audit"
	"github.com/plumeworks/plume/internal/catalog"
	"github.com/plumeworks/plume/internal/format"
	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/logger"
	"github.com/plumeworks/plume/internal/project"
	"github.com/plumeworks/plume/internal/tools"
)

const publicErrToolUnavailable = "This tool is not available right now. Please try again later."

// promptSeparator joins formatted context and the user's request. Audit
// consumers rely on this exact layout to reconstruct what was sent.
const promptSeparator = "\n\n---\n\nUser's Request:\n"

// flatFallbackCharge is billed when a call reports no usage metadata.
const flatFallbackCharge = 1

// Resolver supplies per-tool model configuration and system prompts.
type Resolver interface {
	ResolveModel(tool tools.ID) (*catalog.ModelConfig, error)
	ResolveSystemPrompt(tool tools.ID) string
}

// Invoker is the chat adapter seam.
type Invoker interface {
	Invoke(ctx context.Context, ref llm.ModelRef, history []*llm.Turn, composedPrompt, systemPrompt string) *llm.Turn
}

// Dispatcher accepts background work without blocking. Satisfied by
// actor.ActorRef.
type Dispatcher interface {
	Send(msg actor.Message) error
}

// Request carries everything needed for one send-message call. History is
// the caller-held conversation up to and including this call's user turn.
type Request struct {
	ProjectID string
	UserID    string
	Tool      tools.ID
	Prompt    string
	Context   *project.ContextData
	History   []*llm.Turn
}

// Orchestrator is stateless per call; all conversation state lives with the
// caller, so calls for different sessions may run concurrently.
type Orchestrator struct {
	resolver Resolver
	invoker  Invoker
	billing  Dispatcher
	auditor  Dispatcher
}

// New creates an orchestrator. Billing and auditor may be nil, in which
// case the corresponding side effect is skipped.
func New(resolver Resolver, invoker Invoker, billing, auditor Dispatcher) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		invoker:  invoker,
		billing:  billing,
		auditor:  auditor,
	}
}

// SendMessage runs one assist call and returns the normalized AI turn.
//
// A ConfigurationError from the resolver is terminal: the adapter is never
// invoked and no billing or audit happens. Every later failure — formatter
// panic, vendor error, billing or audit trouble — degrades rather than
// aborts, because by then the user either deserves an answer or already
// has one.
func (o *Orchestrator) SendMessage(ctx context.Context, req *Request) *llm.Turn {
	cfg, err := o.resolver.ResolveModel(req.Tool)
	if err != nil {
		logger.Warn("Orchestrator: model resolution failed for tool %s: %v", req.Tool, err)
		return llm.NewErrorTurn(publicErrToolUnavailable, err.Error())
	}

	systemPrompt := o.resolver.ResolveSystemPrompt(req.Tool)
	formattedContext := o.formatContext(req.Tool, req.Context)
	composedPrompt := ComposePrompt(formattedContext, req.Prompt)

	turn := o.invoker.Invoke(ctx, cfg.Ref(), req.History, composedPrompt, systemPrompt)

	o.dispatchBilling(req, turn)
	o.dispatchAudit(req, cfg, formattedContext, composedPrompt, turn)

	return turn
}

// ComposePrompt joins formatted context and the user's text. Empty context
// means the prompt is the user's text verbatim.
func ComposePrompt(formattedContext, userPrompt string) string {
	if formattedContext == "" {
		return userPrompt
	}
	return formattedContext + promptSeparator + userPrompt
}

// ChargeFor converts usage metadata into credit units: cents of the call
// cost, minimum one unit. Calls without usage are billed the flat fallback.
func ChargeFor(usage *llm.Usage) int64 {
	if usage == nil {
		return flatFallbackCharge
	}
	charge := int64(math.Round(usage.TotalCost * 100))
	if charge < 1 {
		return 1
	}
	return charge
}

// formatContext runs the tool's formatter. A panicking formatter degrades
// the context, never the call.
func (o *Orchestrator) formatContext(tool tools.ID, data *project.ContextData) (out string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Orchestrator: context formatter for tool %s panicked: %v", tool, r)
			out = ""
		}
	}()
	return format.Context(tool, data)
}

func (o *Orchestrator) dispatchBilling(req *Request, turn *llm.Turn) {
	if o.billing == nil {
		return
	}
	msg := actor.DebitMessage{
		UserID: req.UserID,
		Amount: ChargeFor(turn.Usage),
		Source: "assist:" + string(req.Tool),
	}
	if err := o.billing.Send(msg); err != nil {
		logger.Error("Orchestrator: failed to dispatch billing for user %s: %v", req.UserID, err)
	}
}

func (o *Orchestrator) dispatchAudit(req *Request, cfg *catalog.ModelConfig, formattedContext, composedPrompt string, turn *llm.Turn) {
	if o.auditor == nil {
		return
	}

	record := &audit.Record{
		ProjectID:        req.ProjectID,
		UserID:           req.UserID,
		Tool:             string(req.Tool),
		ModelUsed:        cfg.APIModelName,
		FormattedContext: formattedContext,
		PromptText:       composedPrompt,
	}
	if req.Context != nil {
		if raw, err := json.Marshal(req.Context); err == nil {
			record.InputContextRaw = raw
		}
	}
	if raw, err := json.Marshal(turn); err == nil {
		record.ResponseJSON = raw
	}

	if err := o.auditor.Send(actor.AuditMessage{Record: record}); err != nil {
		logger.Error("Orchestrator: failed to dispatch audit record for project %s: %v", req.ProjectID, err)
	}
}
