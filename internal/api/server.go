package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mixelka/commentbot/internal/accounts"
	"github.com/mixelka/commentbot/internal/bot"
	"github.com/mixelka/commentbot/pkg/models"
)

// Registry is the account manager as the API sees it
type Registry interface {
	AddAccount(ctx context.Context, name, token, apiKey string) (*models.BotAccount, error)
	RemoveAccount(ctx context.Context, id string)
	ActivateAccount(ctx context.Context, id string) bool
	Deactivate(ctx context.Context)
	Accounts() []models.BotAccount
	ActiveAccount() *models.BotAccount
}

// Engine exposes the connection state
type Engine interface {
	IsConnected() bool
}

// StatsSource exposes the stats snapshot and the external daily-reset hook
type StatsSource interface {
	Snapshot() models.Stats
	ResetDaily()
}

// TokenValidator probes a Telegram bot token
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// KeyValidator probes an OpenAI API key
type KeyValidator interface {
	ValidateKey(ctx context.Context, key string) bool
}

// Deps dependencies for creating the panel API
type Deps struct {
	Registry Registry
	Engine   Engine
	Stats    StatsSource
	Telegram TokenValidator
	OpenAI   KeyValidator
	Logger   *slog.Logger
}

// Server serves the control panel JSON API. The panel UI polls these
// endpoints; they return snapshots, never push.
type Server struct {
	registry Registry
	engine   Engine
	stats    StatsSource
	telegram TokenValidator
	openai   KeyValidator
	logger   *slog.Logger
}

// NewServer creates the panel API server
func NewServer(deps Deps) *Server {
	return &Server{
		registry: deps.Registry,
		engine:   deps.Engine,
		stats:    deps.Stats,
		telegram: deps.Telegram,
		openai:   deps.OpenAI,
		logger:   deps.Logger.With("component", "api"),
	}
}

// Handler returns the routed API handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleAddAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleRemoveAccount)
	mux.HandleFunc("POST /api/accounts/{id}/activate", s.handleActivateAccount)
	mux.HandleFunc("POST /api/deactivate", s.handleDeactivate)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/stats/reset-daily", s.handleResetDaily)
	mux.HandleFunc("GET /api/commands", s.handleCommands)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	return mux
}

type accountView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Token     string `json:"token"` // masked
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func viewAccount(a models.BotAccount) accountView {
	view := accountView{
		ID:       a.ID,
		Name:     a.Name,
		Token:    maskToken(a.Token),
		IsActive: a.IsActive,
	}
	if !a.CreatedAt.IsZero() {
		view.CreatedAt = a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return view
}

// maskToken keeps the numeric bot id prefix and hides the secret part
func maskToken(token string) string {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i+1] + "***"
		}
	}
	if len(token) <= 4 {
		return "***"
	}
	return token[:4] + "***"
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"connected":     s.engine.IsConnected(),
		"activeAccount": nil,
	}
	if active := s.registry.ActiveAccount(); active != nil {
		resp["activeAccount"] = viewAccount(*active)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	list := s.registry.Accounts()
	views := make([]accountView, 0, len(list))
	for _, account := range list {
		views = append(views, viewAccount(account))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"accounts": views})
}

type addAccountRequest struct {
	Name         string `json:"name"`
	Token        string `json:"token"`
	OpenAIAPIKey string `json:"openaiApiKey"`
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req addAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	account, err := s.registry.AddAccount(r.Context(), req.Name, req.Token, req.OpenAIAPIKey)
	if errors.Is(err, accounts.ErrDuplicateToken) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, viewAccount(*account))
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	s.registry.RemoveAccount(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	known := false
	for _, account := range s.registry.Accounts() {
		if account.ID == id {
			known = true
			break
		}
	}
	if !known {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}

	if !s.registry.ActivateAccount(r.Context(), id) {
		s.writeError(w, http.StatusUnprocessableEntity, "failed to activate bot account")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"activated": true})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.registry.Deactivate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleResetDaily(w http.ResponseWriter, r *http.Request) {
	s.stats.ResetDaily()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"commands": bot.SupportedCommands()})
}

type validateRequest struct {
	Token        string `json:"token"`
	OpenAIAPIKey string `json:"openaiApiKey"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	telegram := map[string]any{"ok": false}
	if req.Token != "" {
		if name, err := s.telegram.ValidateToken(req.Token); err == nil {
			telegram["ok"] = true
			telegram["botName"] = name
		} else {
			telegram["error"] = "invalid Telegram bot token"
		}
	}

	openaiResult := map[string]any{"ok": false}
	if req.OpenAIAPIKey != "" {
		openaiResult["ok"] = s.openai.ValidateKey(r.Context(), req.OpenAIAPIKey)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"telegram": telegram,
		"openai":   openaiResult,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
