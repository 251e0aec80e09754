// Package audit persists one append-only record per completed AI call.
// Writes are best-effort: a failed append is logged by the caller, never
// surfaced to the user.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"
)

// Record captures everything needed to reconstruct what was sent and what
// came back for one call.
type Record struct {
	ID               int64           `json:"id,omitempty"`
	ProjectID        string          `json:"project_id"`
	UserID           string          `json:"user_id"`
	Tool             string          `json:"tool"`
	ModelUsed        string          `json:"model_used"`
	InputContextRaw  json.RawMessage `json:"input_context_raw,omitempty"`
	FormattedContext string          `json:"formatted_context,omitempty"`
	PromptText       string          `json:"prompt_text"`
	PromptHash       string          `json:"prompt_hash,omitempty"`
	ResponseJSON     json.RawMessage `json:"response_json,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Store handles SQLite operations for the audit log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the audit database.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		model_used TEXT,
		input_context_raw TEXT,
		formatted_context TEXT,
		prompt_text TEXT NOT NULL,
		prompt_hash TEXT NOT NULL,
		response_json TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_project ON audit_log(project_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// PromptFingerprint returns a short stable hash of the literal prompt text,
// used to correlate audit rows without comparing full prompts.
func PromptFingerprint(promptText string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(promptText))
}

// Append writes one record. The prompt hash is derived here so callers
// cannot forget it.
func (s *Store) Append(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("audit record cannot be nil")
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log
		 (project_id, user_id, tool, model_used, input_context_raw, formatted_context, prompt_text, prompt_hash, response_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ProjectID,
		record.UserID,
		record.Tool,
		record.ModelUsed,
		nullableString(record.InputContextRaw),
		record.FormattedContext,
		record.PromptText,
		PromptFingerprint(record.PromptText),
		nullableString(record.ResponseJSON),
		createdAt,
	)
	return err
}

// RecentForProject returns the newest records for a project, newest first.
func (s *Store) RecentForProject(ctx context.Context, projectID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, user_id, tool, model_used, input_context_raw, formatted_context, prompt_text, prompt_hash, response_json, created_at
		 FROM audit_log WHERE project_id = ? ORDER BY id DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		var inputCtx, responseJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.UserID, &r.Tool, &r.ModelUsed,
			&inputCtx, &r.FormattedContext, &r.PromptText, &r.PromptHash, &responseJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		if inputCtx.Valid {
			r.InputContextRaw = json.RawMessage(inputCtx.String)
		}
		if responseJSON.Valid {
			r.ResponseJSON = json.RawMessage(responseJSON.String)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func nullableString(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
