package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/plumeworks/plume/internal/config"
	"github.com/plumeworks/plume/internal/ledger"
	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/orchestrator"
	"github.com/plumeworks/plume/internal/session"
)

type fakeSender struct {
	lastRequest *orchestrator.Request
	turn        *llm.Turn
}

func (f *fakeSender) SendMessage(ctx context.Context, req *orchestrator.Request) *llm.Turn {
	f.lastRequest = req
	return f.turn
}

type testEnv struct {
	server  *Server
	sender  *fakeSender
	credits *ledger.Store
	cfg     *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	credits, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("ledger.Open failed: %v", err)
	}
	t.Cleanup(func() { credits.Close() })

	cfg := config.DefaultConfig()
	sender := &fakeSender{turn: llm.NewAssistantTurn("An answer.", nil, "claude-sonnet-4-20250514")}
	server := NewServer(cfg, session.NewManager(), sender, credits, NewHub())
	return &testEnv{server: server, sender: sender, credits: credits, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T, tool string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", map[string]string{
		"project_id": "proj-1",
		"user_id":    "author-1",
		"tool":       tool,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create session returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return resp.SessionID
}

func TestListTools(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tools", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Tools []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(resp.Tools) != 8 {
		t.Errorf("Expected 8 tools, got %d", len(resp.Tools))
	}
}

func TestCreateSessionValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sessions", map[string]string{
		"project_id": "proj-1", "user_id": "author-1", "tool": "not_a_tool",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown tool, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/sessions", map[string]string{"tool": "manuscript_chat"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing identity fields, got %d", rec.Code)
	}
}

func TestCreateSessionSeedsAccount(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "manuscript_chat")

	balance, err := env.credits.Balance(context.Background(), "author-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != env.cfg.StartingCredits {
		t.Errorf("Expected starting balance %d, got %d", env.cfg.StartingCredits, balance)
	}
}

func TestSendMessageFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "writing_coach")

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]interface{}{
		"prompt": "How do I write better dialogue?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Turn      *llm.Turn `json:"turn"`
		Discarded bool      `json:"discarded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if resp.Discarded {
		t.Error("Result should have been accepted")
	}
	if resp.Turn.Text() != "An answer." {
		t.Errorf("Unexpected turn text: %q", resp.Turn.Text())
	}

	// The orchestrator must see the history as it was before this call's
	// user turn; the user turn itself travels as the prompt.
	if env.sender.lastRequest == nil {
		t.Fatal("Sender was not invoked")
	}
	if len(env.sender.lastRequest.History) != 0 {
		t.Errorf("First call must carry empty history, got %d turns", len(env.sender.lastRequest.History))
	}
	if env.sender.lastRequest.Prompt != "How do I write better dialogue?" {
		t.Errorf("Unexpected prompt: %q", env.sender.lastRequest.Prompt)
	}

	// Session now holds user turn + assistant turn.
	sess, _ := env.server.sessions.Get(id)
	if got := len(sess.NativeHistory()); got != 2 {
		t.Errorf("Expected 2 turns in session, got %d", got)
	}

	// A second call carries those two turns as history.
	env.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]interface{}{
		"prompt": "And pacing?",
	})
	if got := len(env.sender.lastRequest.History); got != 2 {
		t.Errorf("Second call must carry 2 history turns, got %d", got)
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "writing_coach")

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]interface{}{"prompt": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank prompt, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/sessions/missing/messages", map[string]interface{}{"prompt": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestSwitchToolClearsConversation(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "manuscript_chat")

	env.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]interface{}{"prompt": "hello"})

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/tool", map[string]string{"tool": "character_chat"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	sess, _ := env.server.sessions.Get(id)
	if got := len(sess.NativeHistory()); got != 0 {
		t.Errorf("Tool switch must wipe native history, got %d turns", got)
	}
	ui := sess.UIMessages()
	if len(ui) != 1 || ui[0].Sender != session.SenderSystem {
		t.Errorf("Expected only the switch note, got %+v", ui)
	}
}

func TestSwitchToolRejectsUnknown(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "manuscript_chat")

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/tool", map[string]string{"tool": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestClearMessages(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "outline_chat")
	env.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]interface{}{"prompt": "hello"})

	rec := env.do(t, http.MethodDelete, "/api/sessions/"+id+"/messages", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	sess, _ := env.server.sessions.Get(id)
	if got := len(sess.UIMessages()); got != 0 {
		t.Errorf("Expected empty session after clear, got %d messages", got)
	}
}

func TestCreditsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/credits/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown account, got %d", rec.Code)
	}

	env.createSession(t, "manuscript_chat")

	rec = env.do(t, http.MethodPost, "/api/credits/author-1/grant", map[string]interface{}{"amount": 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("Grant returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if resp.Balance != env.cfg.StartingCredits+50 {
		t.Errorf("Expected balance %d, got %d", env.cfg.StartingCredits+50, resp.Balance)
	}

	rec = env.do(t, http.MethodPost, "/api/credits/author-1/grant", map[string]interface{}{"amount": -5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative grant, got %d", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.AuthToken = "secret"

	rec := env.do(t, http.MethodGet, "/api/tools", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	req.Header.Set("Authorization", "Bearer secret")
	withToken := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(withToken, req)
	if withToken.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", withToken.Code)
	}

	// Query-parameter token, as used by WebSocket upgrades.
	req = httptest.NewRequest(http.MethodGet, "/api/tools?token=secret", nil)
	viaQuery := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(viaQuery, req)
	if viaQuery.Code != http.StatusOK {
		t.Errorf("Expected 200 with query token, got %d", viaQuery.Code)
	}
}

func TestHubBroadcastsCreditsEvent(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := NewClient(hub, nil)
	hub.Register(client)

	hub.CreditsChanged("author-1", 42)

	select {
	case event := <-client.send:
		if event.Type != EventCreditsUpdated {
			t.Errorf("Unexpected event type %q", event.Type)
		}
		payload, ok := event.Payload.(CreditsPayload)
		if !ok {
			t.Fatalf("Unexpected payload type %T", event.Payload)
		}
		if payload.UserID != "author-1" || payload.Balance != 42 {
			t.Errorf("Unexpected payload: %+v", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for broadcast")
	}
}
