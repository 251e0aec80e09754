package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDebitAndBalance(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.EnsureAccount(ctx, "author-1", 100); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}

	balance, err := store.Debit(ctx, "author-1", 2, "assist:manuscript_chat")
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if balance != 98 {
		t.Errorf("Expected balance 98, got %d", balance)
	}

	got, err := store.Balance(ctx, "author-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got != 98 {
		t.Errorf("Expected stored balance 98, got %d", got)
	}
}

func TestDebitInvalidAmount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Debit(ctx, "author-1", 0, "test"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for 0, got %v", err)
	}
	if _, err := store.Debit(ctx, "author-1", -5, "test"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestDebitInsufficientCredits(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.EnsureAccount(ctx, "author-1", 1); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	if _, err := store.Debit(ctx, "author-1", 5, "test"); !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("Expected ErrInsufficientCredits, got %v", err)
	}

	// Balance must be untouched after the failed debit.
	balance, err := store.Balance(ctx, "author-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 1 {
		t.Errorf("Failed debit must not change balance, got %d", balance)
	}
}

func TestDebitNoAccount(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Debit(context.Background(), "ghost", 1, "test"); !errors.Is(err, ErrNoAccount) {
		t.Errorf("Expected ErrNoAccount, got %v", err)
	}
}

func TestCreditCreatesAccount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	balance, err := store.Credit(ctx, "new-author", 50, "signup_grant")
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if balance != 50 {
		t.Errorf("Expected balance 50, got %d", balance)
	}

	balance, err = store.Credit(ctx, "new-author", 25, "topup")
	if err != nil {
		t.Fatalf("Second credit failed: %v", err)
	}
	if balance != 75 {
		t.Errorf("Expected balance 75, got %d", balance)
	}
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.EnsureAccount(ctx, "author-1", 100); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	if _, err := store.Debit(ctx, "author-1", 10, "test"); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if err := store.EnsureAccount(ctx, "author-1", 100); err != nil {
		t.Fatalf("Second EnsureAccount failed: %v", err)
	}

	balance, err := store.Balance(ctx, "author-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 90 {
		t.Errorf("EnsureAccount must not reset balances, got %d", balance)
	}
}
