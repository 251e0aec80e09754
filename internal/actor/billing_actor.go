package actor

import (
	"context"
	"fmt"

	"github.com/plumeworks/plume/internal/ledger"
	"github.com/plumeworks/plume/internal/logger"
)

// CreditsNotifier is told about balance changes so connected clients can
// refresh their display. A nil notifier is valid.
type CreditsNotifier interface {
	CreditsChanged(userID string, newBalance int64)
}

// DebitMessage asks the billing actor to charge a user for one AI call.
type DebitMessage struct {
	UserID string
	Amount int64
	Source string
}

// Type returns the message type.
func (DebitMessage) Type() string { return "billing.debit" }

// BillingActor applies debits against the credit ledger. Debit failures are
// logged and swallowed: a user is never blocked on billing, and an already
// delivered AI response is never retracted.
type BillingActor struct {
	id       string
	store    *ledger.Store
	notifier CreditsNotifier
}

// NewBillingActor creates a billing actor backed by the given ledger.
func NewBillingActor(id string, store *ledger.Store, notifier CreditsNotifier) *BillingActor {
	return &BillingActor{id: id, store: store, notifier: notifier}
}

// ID returns the actor's ID.
func (a *BillingActor) ID() string { return a.id }

// Start is a no-op.
func (a *BillingActor) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (a *BillingActor) Stop(ctx context.Context) error { return nil }

// Receive processes one debit.
func (a *BillingActor) Receive(ctx context.Context, msg Message) error {
	debit, ok := msg.(DebitMessage)
	if !ok {
		return fmt.Errorf("unexpected message type %T", msg)
	}

	newBalance, err := a.store.Debit(ctx, debit.UserID, debit.Amount, debit.Source)
	if err != nil {
		logger.Error("Billing: debit of %d credits for user %s (%s) failed: %v",
			debit.Amount, debit.UserID, debit.Source, err)
		return nil
	}

	logger.Debug("Billing: debited %d credits from user %s (%s), balance now %d",
		debit.Amount, debit.UserID, debit.Source, newBalance)
	if a.notifier != nil {
		a.notifier.CreditsChanged(debit.UserID, newBalance)
	}
	return nil
}
