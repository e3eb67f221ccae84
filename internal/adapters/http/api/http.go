// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/rehabchat/internal/adapters/http/swagger"
	"github.com/okian/rehabchat/internal/adapters/repository"
	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/logger"
)

// Chatter answers one chat turn.
type Chatter interface {
	Ask(ctx context.Context, message string, c model.Context) model.Envelope
}

// StatsProvider exposes table and service statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (repository.Stats, error)
	GetStats() map[string]interface{}
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigin allows a browser origin to call the API. Empty disables
// CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the chat API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	chatHandler   *ChatHandler

	corsOrigin string
	logger     logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(chat Chatter, stats StatsProvider, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(stats)
	s.chatHandler = NewChatHandler(chat, s.logger)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/chat", MetricsMiddleware(s.chatHandler.HandleChat, "chat"))
	swagger.Register(ctx, r)
}

// Handler builds the router with the global middleware stack.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger(s.logger))
	if s.corsOrigin != "" {
		r.Use(CORS(s.corsOrigin))
	}
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = errs.Message(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
