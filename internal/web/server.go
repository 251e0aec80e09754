package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/plumeworks/plume/internal/config"
	"github.com/plumeworks/plume/internal/consts"
	"github.com/plumeworks/plume/internal/ledger"
	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/logger"
	"github.com/plumeworks/plume/internal/orchestrator"
	"github.com/plumeworks/plume/internal/project"
	"github.com/plumeworks/plume/internal/session"
	"github.com/plumeworks/plume/internal/tools"
)

// MessageSender is the orchestrator seam.
type MessageSender interface {
	SendMessage(ctx context.Context, req *orchestrator.Request) *llm.Turn
}

// Server provides the HTTP and WebSocket interface.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	sender   MessageSender
	credits  *ledger.Store
	hub      *Hub
	router   *httprouter.Router
	server   *http.Server
	upgrader websocket.Upgrader
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, sessions *session.Manager, sender MessageSender, credits *ledger.Store, hub *Hub) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		sender:   sender,
		credits:  credits,
		hub:      hub,
		router:   httprouter.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	logger.Info("API server listening on %s", s.cfg.ListenAddr)
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.GET("/api/tools", s.withAuth(s.handleListTools))
	s.router.POST("/api/sessions", s.withAuth(s.handleCreateSession))
	s.router.GET("/api/sessions/:id", s.withAuth(s.handleGetSession))
	s.router.POST("/api/sessions/:id/messages", s.withAuth(s.handleSendMessage))
	s.router.POST("/api/sessions/:id/tool", s.withAuth(s.handleSwitchTool))
	s.router.DELETE("/api/sessions/:id/messages", s.withAuth(s.handleClearMessages))
	s.router.GET("/api/credits/:user_id", s.withAuth(s.handleGetCredits))
	s.router.POST("/api/credits/:user_id/grant", s.withAuth(s.handleGrantCredits))

	s.router.GET("/ws", s.withAuth(s.handleWebSocket))
}

// withAuth enforces the configured bearer token. An empty token disables
// auth (local development).
func (s *Server) withAuth(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if s.cfg.AuthToken != "" && !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r, ps)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token == s.cfg.AuthToken {
		return true
	}
	// Browsers cannot set headers on WebSocket upgrades.
	return r.URL.Query().Get("token") == s.cfg.AuthToken
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools.List()})
}

type createSessionRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Tool      string `json:"tool"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProjectID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "project_id and user_id are required")
		return
	}
	tool := tools.ID(req.Tool)
	if !tools.Valid(tool) {
		writeError(w, http.StatusBadRequest, "unknown tool")
		return
	}

	if err := s.credits.EnsureAccount(r.Context(), req.UserID, s.cfg.StartingCredits); err != nil {
		logger.Error("Failed to ensure account for user %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "could not prepare account")
		return
	}

	sess := s.sessions.Create(req.ProjectID, req.UserID, tool)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sess.ID,
		"tool":       sess.Tool(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	sess, ok := s.sessions.Get(ps.ByName("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"project_id": sess.ProjectID,
		"tool":       sess.Tool(),
		"is_loading": sess.IsLoading(),
		"last_error": sess.LastError(),
		"messages":   sess.UIMessages(),
	})
}

type sendMessageRequest struct {
	Prompt  string               `json:"prompt"`
	Context *project.ContextData `json:"context,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sess, ok := s.sessions.Get(ps.ByName("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	generation, err := sess.BeginSend()
	if err != nil {
		writeError(w, http.StatusConflict, "a message is already being processed")
		return
	}
	defer sess.EndSend()

	// History for this call is everything before the new user turn; the
	// adapter appends the composed prompt itself.
	history := sess.NativeHistory()
	sess.AppendUserTurn(req.Prompt)

	turn := s.sender.SendMessage(r.Context(), &orchestrator.Request{
		ProjectID: sess.ProjectID,
		UserID:    sess.UserID,
		Tool:      sess.Tool(),
		Prompt:    req.Prompt,
		Context:   req.Context,
		History:   history,
	})

	accepted := sess.ReceiveResult(generation, turn)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"turn":      turn,
		"discarded": !accepted,
	})
}

type switchToolRequest struct {
	Tool string `json:"tool"`
}

func (s *Server) handleSwitchTool(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sess, ok := s.sessions.Get(ps.ByName("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req switchToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tool := tools.ID(req.Tool)
	def, ok := tools.Get(tool)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown tool")
		return
	}

	if tool != sess.Tool() {
		sess.SwitchTool(tool)
		sess.AddSystemNote("Switched to " + def.DisplayName)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tool": sess.Tool()})
}

func (s *Server) handleClearMessages(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	sess, ok := s.sessions.Get(ps.ByName("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	sess.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("user_id")
	balance, err := s.credits.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrNoAccount) {
			writeError(w, http.StatusNotFound, "no account for user")
			return
		}
		logger.Error("Failed to read balance for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not read balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"balance": balance,
	})
}

type grantCreditsRequest struct {
	Amount int64  `json:"amount"`
	Source string `json:"source,omitempty"`
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("user_id")

	var req grantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	source := req.Source
	if source == "" {
		source = "manual_grant"
	}

	balance, err := s.credits.Credit(r.Context(), userID, req.Amount, source)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, "amount must be positive")
			return
		}
		logger.Error("Failed to grant %d credits to user %s: %v", req.Amount, userID, err)
		writeError(w, http.StatusInternalServerError, "could not grant credits")
		return
	}

	if s.hub != nil {
		s.hub.CreditsChanged(userID, balance)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"balance": balance,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(s.hub, conn)
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
