package actor

import (
	"context"
	"fmt"

	"github.com/plumeworks/plume/internal/audit"
	"github.com/plumeworks/plume/internal/logger"
)

// AuditMessage asks the audit actor to persist one call record.
type AuditMessage struct {
	Record *audit.Record
}

// Type returns the message type.
func (AuditMessage) Type() string { return "audit.append" }

// AuditActor writes audit records in the background. A failed write is
// logged, never surfaced to the user.
type AuditActor struct {
	id    string
	store *audit.Store
}

// NewAuditActor creates an audit actor backed by the given store.
func NewAuditActor(id string, store *audit.Store) *AuditActor {
	return &AuditActor{id: id, store: store}
}

// ID returns the actor's ID.
func (a *AuditActor) ID() string { return a.id }

// Start is a no-op.
func (a *AuditActor) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (a *AuditActor) Stop(ctx context.Context) error { return nil }

// Receive persists one record.
func (a *AuditActor) Receive(ctx context.Context, msg Message) error {
	appendMsg, ok := msg.(AuditMessage)
	if !ok {
		return fmt.Errorf("unexpected message type %T", msg)
	}

	if err := a.store.Append(ctx, appendMsg.Record); err != nil {
		logger.Error("Audit: failed to append record for project %s tool %s: %v",
			appendMsg.Record.ProjectID, appendMsg.Record.Tool, err)
	}
	return nil
}
