// Package server exposes an engine over HTTP: start and end a call, read its
// status and history, and scrape metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/haivivi/rtcall/pkg/jsontime"
	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

// Controller is the part of *openairealtime.Engine the server drives.
type Controller interface {
	Call(ctx context.Context) error
	HangUp() error
	State() openairealtime.State
	Active() bool
	History() []openairealtime.ConversationItem
	SessionID() string
}

var _ Controller = (*openairealtime.Engine)(nil)

// Server is the HTTP control surface of one engine.
type Server struct {
	engine  Controller
	tracker *Tracker
	metrics http.Handler
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithTimeout bounds POST /call negotiations. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server. tracker must be registered as an observer of the
// engine.
func New(engine Controller, tracker *Tracker, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		tracker: tracker,
		timeout: 30 * time.Second,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Post("/call", s.handleCall)
	r.Post("/hangup", s.handleHangUp)
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State     openairealtime.State `json:"state"`
	Active    bool                 `json:"active"`
	Status    string               `json:"status"`
	SessionID string               `json:"session_id,omitempty"`
	Calls     int                  `json:"calls"`
	Inbound   int                  `json:"events_inbound"`
	Outbound  int                  `json:"events_outbound"`
	StartedAt jsontime.Milli       `json:"started_at"`
	Uptime    jsontime.Duration    `json:"uptime"`
}

func (s *Server) status() StatusResponse {
	snap := s.tracker.Snapshot()
	resp := StatusResponse{
		State:     s.engine.State(),
		Active:    s.engine.Active(),
		Status:    snap.Status,
		SessionID: s.engine.SessionID(),
		Calls:     snap.Calls,
		Inbound:   snap.Inbound,
		Outbound:  snap.Outbound,
		StartedAt: jsontime.Milli(snap.StartedAt),
	}
	if !snap.ConnectedAt.IsZero() && resp.Active {
		resp.Uptime = jsontime.Duration(s.now().Sub(snap.ConnectedAt))
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if st := s.engine.State(); st != openairealtime.StateIdle {
		respondError(w, http.StatusConflict, "session_active", "a session is already "+st.String())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	err := s.engine.Call(ctx)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, s.status())
	case errors.Is(err, openairealtime.ErrSessionActive):
		// Another request won the race past the state check.
		respondError(w, http.StatusConflict, "session_active", "a session is already live")
	case errors.Is(err, openairealtime.ErrSessionClosed):
		respondError(w, http.StatusConflict, "hung_up", "call ended during negotiation")
	default:
		s.logger.Warn("call via http failed", "error", err)
		var bootErr *openairealtime.BootstrapError
		if errors.As(err, &bootErr) {
			respondError(w, http.StatusBadGateway, "bootstrap_failed", err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "negotiation_failed", err.Error())
	}
}

func (s *Server) handleHangUp(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.HangUp(); err != nil {
		respondError(w, http.StatusInternalServerError, "hangup_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.status())
}

type historyResponse struct {
	SessionID string                            `json:"session_id,omitempty"`
	Items     []openairealtime.ConversationItem `json:"items"`
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	items := s.engine.History()
	if items == nil {
		items = []openairealtime.ConversationItem{}
	}
	respondJSON(w, http.StatusOK, historyResponse{
		SessionID: s.engine.SessionID(),
		Items:     items,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
