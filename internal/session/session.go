// Package session holds per-conversation state. Each session keeps one
// canonical ordered record list; the UI-facing message view and the
// adapter-native history are both derived from it, so the two can never
// drift apart. Tool switches and clears wipe the list unconditionally:
// history formatted for one tool has no meaning under another tool's
// system prompt.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/tools"
)

// ErrBusy is returned when a send is attempted while another is in flight.
var ErrBusy = errors.New("a message is already being processed")

// Sender identifies who a UI message is displayed as coming from.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// MessageType classifies how a UI message should be rendered.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeInfo  MessageType = "info"
	TypeError MessageType = "error"
)

// UIMessage is the display-only projection of a record. It is never sent
// back to a model.
type UIMessage struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	Sender      Sender      `json:"sender"`
	Type        MessageType `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	RawResponse *llm.Turn   `json:"raw_response,omitempty"`
}

// Record is one entry in the canonical conversation list: either a
// model-visible turn or a synthetic system note (Turn nil, Note set).
type Record struct {
	ID   string
	At   time.Time
	Turn *llm.Turn
	Note string
}

// Session is one conversation. All methods are safe for concurrent use.
type Session struct {
	ID        string
	ProjectID string
	UserID    string

	mu         sync.Mutex
	tool       tools.ID
	records    []*Record
	loading    bool
	lastError  string
	generation uint64
	createdAt  time.Time
	updatedAt  time.Time
}

// New creates an empty session bound to a tool.
func New(projectID, userID string, tool tools.ID) *Session {
	now := time.Now()
	return &Session{
		ID:        newID(),
		ProjectID: projectID,
		UserID:    userID,
		tool:      tool,
		createdAt: now,
		updatedAt: now,
	}
}

// Tool returns the currently active tool.
func (s *Session) Tool() tools.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// IsLoading reports whether a send is in flight.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the public text of the most recent error turn, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// BeginSend marks the session as busy and returns the generation token the
// eventual result must carry. At most one send may be in flight.
func (s *Session) BeginSend() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return 0, ErrBusy
	}
	s.loading = true
	return s.generation, nil
}

// EndSend clears the busy flag.
func (s *Session) EndSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

// AppendUserTurn appends the user's text as both a UI message and a native
// user turn (one record serves both views).
func (s *Session) AppendUserTurn(text string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(&Record{Turn: llm.NewUserTurn(text)})
}

// ReceiveResult appends a completed AI turn, unless the session was cleared
// or switched to another tool after the send began: a stale generation
// token means the result belongs to a conversation that no longer exists,
// and it is discarded.
func (s *Session) ReceiveResult(generation uint64, turn *llm.Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return false
	}
	s.appendLocked(&Record{Turn: turn})
	if turn.IsError() {
		s.lastError = turn.ErrorText()
	} else {
		s.lastError = ""
	}
	return true
}

// AddSystemNote appends a display-only informational message.
func (s *Session) AddSystemNote(text string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(&Record{Note: text})
}

// SwitchTool changes the active tool. Switching to a different tool wipes
// the entire conversation; switching to the already-active tool is a no-op.
func (s *Session) SwitchTool(tool tools.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tool == s.tool {
		return
	}
	s.tool = tool
	s.clearLocked()
}

// Clear discards all messages and history but keeps the active tool.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// UIMessages returns the display view of the conversation, in order.
func (s *Session) UIMessages() []*UIMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]*UIMessage, 0, len(s.records))
	for _, rec := range s.records {
		messages = append(messages, rec.uiMessage())
	}
	return messages
}

// NativeHistory returns the model-visible turns, in order. System notes
// are excluded; error turns are included and filtered at the adapter.
func (s *Session) NativeHistory() []*llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]*llm.Turn, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Turn != nil {
			history = append(history, rec.Turn)
		}
	}
	return history
}

func (s *Session) appendLocked(rec *Record) *Record {
	rec.ID = newID()
	rec.At = time.Now()
	s.records = append(s.records, rec)
	s.updatedAt = rec.At
	return rec
}

func (s *Session) clearLocked() {
	s.records = nil
	s.lastError = ""
	s.generation++
	s.updatedAt = time.Now()
}

func (rec *Record) uiMessage() *UIMessage {
	msg := &UIMessage{
		ID:        rec.ID,
		Timestamp: rec.At,
	}
	if rec.Turn == nil {
		msg.Text = rec.Note
		msg.Sender = SenderSystem
		msg.Type = TypeInfo
		return msg
	}

	switch {
	case rec.Turn.Role == llm.RoleUser:
		msg.Text = rec.Turn.Text()
		msg.Sender = SenderUser
		msg.Type = TypeText
	case rec.Turn.IsError():
		msg.Text = rec.Turn.ErrorText()
		msg.Sender = SenderAI
		msg.Type = TypeError
		msg.RawResponse = rec.Turn
	default:
		msg.Text = rec.Turn.Text()
		msg.Sender = SenderAI
		msg.Type = TypeText
		msg.RawResponse = rec.Turn
	}
	return msg
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.000000000")))[:16]
	}
	return hex.EncodeToString(b)
}

// Manager tracks live sessions for the HTTP layer.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new session.
func (m *Manager) Create(projectID, userID string, tool tools.ID) *Session {
	s := New(projectID, userID, tool)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
