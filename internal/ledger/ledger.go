// Package ledger implements the credit accounting store. Debits are atomic
// at the database level: the balance check and the decrement happen in a
// single guarded UPDATE, so callers never need their own locking.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientCredits is returned when the balance cannot cover a debit.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrNoAccount is returned when the user has no ledger account.
	ErrNoAccount = errors.New("no account for user")
)

// Store handles SQLite operations for credit accounts.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger database.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		source TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES accounts(user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// EnsureAccount creates an account with the given starting balance if one
// does not already exist.
func (s *Store) EnsureAccount(ctx context.Context, userID string, startingBalance int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (user_id, balance) VALUES (?, ?)`,
		userID, startingBalance)
	return err
}

// Balance returns the current balance for the user.
func (s *Store) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoAccount
	}
	return balance, err
}

// Debit atomically subtracts amount from the user's balance and records a
// ledger entry. Fails with ErrInvalidAmount, ErrNoAccount or
// ErrInsufficientCredits.
func (s *Store) Debit(ctx context.Context, userID string, amount int64, source string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND balance >= ?`,
		amount, userID, amount)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM accounts WHERE user_id = ?`, userID).Scan(&exists); err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, ErrNoAccount
		}
		return 0, ErrInsufficientCredits
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, delta, source) VALUES (?, ?, ?)`,
		userID, -amount, source); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

// Credit atomically adds amount to the user's balance.
func (s *Store) Credit(ctx context.Context, userID string, amount int64, source string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP`,
		userID, amount, amount); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, delta, source) VALUES (?, ?, ?)`,
		userID, amount, source); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}
