// Package server exposes the session API over HTTP.
//
// Routes:
//
//	POST   /api/create-post            create a session
//	GET    /api/stream/{id}            advance and stream the result (SSE)
//	POST   /api/human-feedback         resume with a review response
//	GET    /api/sessions               list session IDs
//	GET    /api/session/{id}           session status
//	DELETE /api/session/{id}           delete a session
//	GET    /api/session/{id}/events    recorded engine events
//	POST   /api/linkedin/exchange      OAuth code for access token
//	GET    /metrics                    Prometheus metrics
//	GET    /healthz                    liveness
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/postgraph/graph/emit"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/publish"
	"github.com/dshills/postgraph/session"
	"github.com/dshills/postgraph/workflow"
)

// Sessions is the session API the server drives. *session.Service
// satisfies it.
type Sessions interface {
	CreateSession(ctx context.Context, in workflow.Input) (string, error)
	Advance(ctx context.Context, id string) (session.StepResult, error)
	Resume(ctx context.Context, id string, value interrupt.Resume) (session.StepResult, error)
	GetStatus(ctx context.Context, id string) (session.Status, error)
	Sessions(ctx context.Context) ([]string, error)
	DeleteSession(ctx context.Context, id string) error
}

// TokenExchanger trades an OAuth authorization code for an access token.
// *publish.LinkedInOAuth satisfies it.
type TokenExchanger interface {
	Exchange(ctx context.Context, code string) (publish.Token, error)
}

// History returns recorded engine events. *emit.BufferedEmitter satisfies
// it.
type History interface {
	GetHistoryWithFilter(sessionID string, filter emit.HistoryFilter) []emit.Event
	Clear(sessionID string)
}

// Server serves the HTTP API.
type Server struct {
	sessions Sessions
	history  History
	oauth    TokenExchanger
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	timeout  time.Duration
	origins  []string
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the events endpoint.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithTokenExchanger enables the LinkedIn code exchange endpoint.
func WithTokenExchanger(x TokenExchanger) Option {
	return func(s *Server) { s.oauth = x }
}

// WithGatherer sets the registry served at /metrics. The default is
// prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRequestTimeout bounds each request, including the workflow steps it
// runs. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a Server over sessions.
func New(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.New(slog.DiscardHandler),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}
		r.Post("/create-post", s.createPost)
		r.Get("/stream/{id}", s.stream)
		r.Post("/human-feedback", s.humanFeedback)
		r.Get("/sessions", s.listSessions)
		r.Get("/session/{id}", s.getSession)
		r.Delete("/session/{id}", s.deleteSession)
		r.Get("/session/{id}/events", s.events)
		r.Post("/linkedin/exchange", s.linkedInExchange)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
