// Package api provides the HTTP REST API for the interview backend.
//
// Endpoints:
//
//	GET    /health                          liveness probe
//	GET    /ready                           readiness probe (pings Postgres)
//	GET    /api/sessions                    list sessions, newest first
//	POST   /api/sessions                    create session
//	DELETE /api/sessions/{id}               delete session and its audio
//	POST   /api/sessions/{id}/complete      mark session completed
//	GET    /api/sessions/{id}/messages      list messages, oldest first
//	POST   /api/sessions/{id}/chat          send a turn, get both messages back
//	GET    /api/sessions/{id}/audio/{key}   presigned playback URL
//
// File structure:
//   - server.go: server setup, lifecycle, handler dependencies
//   - middleware.go: logging and recovery middleware
//   - ratelimit.go: per-IP rate limiting
//   - health.go: health check endpoints
//   - session.go: session management endpoints
//   - chat.go: chat endpoint (JSON text or multipart audio)
//   - audio.go: audio URL resolution
//   - response.go: JSON response helpers and wire types
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepwise/prepwise/internal/interviewer"
	"github.com/prepwise/prepwise/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to block Slowloris attacks.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	// Multipart audio uploads dominate, hence the generous bound.
	ReadTimeout = 60 * time.Second

	// WriteTimeout is the maximum duration for writing the response. The chat
	// endpoint waits on model generation inside this window.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive idle bound.
	IdleTimeout = 120 * time.Second
)

// SessionStore is the session persistence surface the handlers need.
// Satisfied by *session.Store.
type SessionStore interface {
	CreateSession(ctx context.Context, params session.CreateParams) (*session.Session, error)
	Session(ctx context.Context, id uuid.UUID) (*session.Session, error)
	Sessions(ctx context.Context, limit, offset int) ([]*session.Session, error)
	CompleteSession(ctx context.Context, id uuid.UUID) (*session.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	AudioKeys(ctx context.Context, id uuid.UUID) ([]string, error)
	AddMessages(ctx context.Context, sessionID uuid.UUID, messages []*session.Message) ([]*session.Message, error)
	Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*session.Message, error)
}

// BlobStore is the audio blob surface the handlers need.
// Satisfied by *blob.Store.
type BlobStore interface {
	PutAudio(ctx context.Context, sessionID string, data []byte, contentType string) (string, error)
	AudioURL(ctx context.Context, key string) (string, time.Time, error)
	Remove(ctx context.Context, keys []string) error
}

// Responder generates the interviewer's reply for a turn.
// Satisfied by *interviewer.Interviewer.
type Responder interface {
	Reply(ctx context.Context, profile interviewer.Profile, history []interviewer.Turn, last interviewer.Turn) (string, error)
}

// Config tunes server behavior.
type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	TrustProxy     bool
}

// Server is the HTTP server for the interview backend.
type Server struct {
	mux     *http.ServeMux
	limiter *rateLimiter
	cfg     Config
	logger  *slog.Logger

	health  *HealthHandler
	session *SessionHandler
	chat    *ChatHandler
	audio   *AudioHandler
}

// NewServer creates the server with all routes registered. logger may be nil.
func NewServer(pool *pgxpool.Pool, store SessionStore, blobs BlobStore, responder Responder, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:     mux,
		limiter: newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		cfg:     cfg,
		logger:  logger,

		health:  NewHealthHandler(pool, logger),
		session: NewSessionHandler(store, blobs, logger),
		chat:    NewChatHandler(store, blobs, responder, logger),
		audio:   NewAudioHandler(store, blobs, logger),
	}

	s.health.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.audio.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery → logging → rate limit → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		rateLimitMiddleware(s.limiter, s.cfg.TrustProxy, s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
