// Package api provides the HTTP surface of the advising service: the
// streamed chat endpoint, session reset, and health reporting.
package api

import (
	"errors"
	"net/http"

	"github.com/nexuslab/nexus/internal/log"
	"github.com/nexuslab/nexus/internal/session"
)

// ServerConfig contains dependencies for the API server.
type ServerConfig struct {
	Logger      log.Logger
	Advisor     Responder        // Required
	Sessions    *session.Manager // Required
	Store       Pinger           // Optional: nil reports store_connected=false
	ChatChain   Configurable     // Required
	SearchChain Configurable     // Required
	CORSOrigins []string
	RateBurst   int // 0 = default 60
}

// Server is the JSON/streaming HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Advisor == nil {
		return nil, errors.New("advisor is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if cfg.ChatChain == nil || cfg.SearchChain == nil {
		return nil, errors.New("provider chains are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{
		advisor:  cfg.Advisor,
		sessions: cfg.Sessions,
		logger:   logger,
	}
	hh := &healthHandler{
		store:  cfg.Store,
		chat:   cfg.ChatChain,
		search: cfg.SearchChain,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.chat)
	mux.HandleFunc("POST /api/v1/clear", ch.clear)
	mux.HandleFunc("GET /api/v1/health", hh.status)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → Logging → CORS → RateLimit → Session → Routes
	// CORS sits before RateLimit so preflight OPTIONS gets proper headers.
	var handler http.Handler = mux
	handler = sessionMiddleware()(handler)
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Liveness probe stays outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", liveness)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
