// Package api is the HTTP boundary: start a run, query the summarization
// service status, and poll run progress.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
	"github.com/yangwenmai/mailbrief/internal/runstate"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Runner executes one summarization run.
type Runner interface {
	Run(ctx context.Context, cred model.Credential) (*model.PipelineResult, error)
}

// StatusSource reports the summarization service status.
type StatusSource interface {
	Query(ctx context.Context) engine.StatusReport
}

// ScheduleReporter reports the outcome of the latest scheduled run.
type ScheduleReporter interface {
	LastFailure() *model.RunFailure
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	runner      Runner
	status      StatusSource
	tracker     *runstate.Tracker
	schedule    ScheduleReporter
	limiter     *rate.Limiter
	corsOrigin  string
	requireCred bool
	mux         *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigin sets the allowed CORS origin (default "*").
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}

// WithRunRateLimit caps start-run requests to perSecond with a burst of one.
// Zero or less leaves runs unlimited.
func WithRunRateLimit(perSecond float64) Option {
	return func(s *Server) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRequireCredential controls whether runs without a credential are
// rejected (default true).
func WithRequireCredential(require bool) Option {
	return func(s *Server) { s.requireCred = require }
}

// WithScheduleReporter adds the latest scheduled run failure to the run
// state response.
func WithScheduleReporter(r ScheduleReporter) Option {
	return func(s *Server) { s.schedule = r }
}

// New creates a new API server. tracker may be nil.
func New(runner Runner, status StatusSource, tracker *runstate.Tracker, opts ...Option) *Server {
	srv := &Server{
		runner:      runner,
		status:      status,
		tracker:     tracker,
		corsOrigin:  "*",
		requireCred: true,
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.corsOrigin, limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/start-summarization", s.handleStartSummarization)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/run-state", s.handleRunState)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the run failure shape {success:false, error}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.NewRunFailure("", msg))
}
