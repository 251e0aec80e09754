package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := &Record{
		ProjectID:        "proj-1",
		UserID:           "author-1",
		Tool:             "manuscript_chat",
		ModelUsed:        "claude-sonnet-4-20250514",
		InputContextRaw:  json.RawMessage(`{"chapters":[]}`),
		FormattedContext: "MANUSCRIPT\n...",
		PromptText:       "MANUSCRIPT\n...\n\n---\n\nUser's Request:\nAny inconsistencies?",
		ResponseJSON:     json.RawMessage(`{"role":"assistant"}`),
	}
	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, err := store.RecentForProject(ctx, "proj-1", 10)
	if err != nil {
		t.Fatalf("RecentForProject failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.PromptHash != PromptFingerprint(record.PromptText) {
		t.Errorf("Prompt hash mismatch: %q", got.PromptHash)
	}
	if got.Tool != "manuscript_chat" || got.ModelUsed != "claude-sonnet-4-20250514" {
		t.Errorf("Record fields not persisted: %+v", got)
	}
	if string(got.InputContextRaw) != `{"chapters":[]}` {
		t.Errorf("Raw context not persisted: %s", got.InputContextRaw)
	}
}

func TestRecentOrderNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, prompt := range []string{"first", "second", "third"} {
		if err := store.Append(ctx, &Record{ProjectID: "p", UserID: "u", Tool: "writing_coach", PromptText: prompt}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	records, err := store.RecentForProject(ctx, "p", 2)
	if err != nil {
		t.Fatalf("RecentForProject failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].PromptText != "third" || records[1].PromptText != "second" {
		t.Errorf("Unexpected ordering: %q, %q", records[0].PromptText, records[1].PromptText)
	}
}

func TestPromptFingerprintIsStable(t *testing.T) {
	a := PromptFingerprint("same text")
	b := PromptFingerprint("same text")
	if a != b {
		t.Error("Fingerprint must be deterministic")
	}
	if a == PromptFingerprint("other text") {
		t.Error("Different prompts should not collide in tests")
	}
	if len(a) != 16 {
		t.Errorf("Expected 16 hex chars, got %q", a)
	}
}
