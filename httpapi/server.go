// Package httpapi exposes a Registry of agents over HTTP: submitting
// events, streaming an agent's log over SSE, and reading state snapshots.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kairoslabs/agentrt/metrics"
	"github.com/kairoslabs/agentrt/registry"
)

const (
	// defaultReadHeaderTimeout prevents Slowloris attacks.
	defaultReadHeaderTimeout = 10 * time.Second

	// defaultMaxBodySize bounds a submission request body.
	defaultMaxBodySize int64 = 1 << 20

	// defaultIdleTimeout is the stale-connection guard: a streaming
	// response with no new event for this long is closed regardless of
	// endpoint-specific close conditions. Unrelated to the idle_timeout
	// query parameter, which gates POST /agent/{name}'s post-terminal
	// wait instead.
	defaultIdleTimeout = 5 * time.Minute

	// defaultRateLimitRPS and defaultRateLimitBurst bound the per-agent
	// request rate when no Option overrides them.
	defaultRateLimitRPS   = 20.0
	defaultRateLimitBurst = 40
)

// Option configures a Server.
type Option func(*Server)

// WithPort sets the TCP port for ListenAndServe.
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithMetrics attaches a Prometheus recorder, enabling GET /agent/{name}/metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxBodySize overrides the maximum allowed submission body size.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) { s.maxBodySize = n }
}

// WithRateLimit overrides the per-agent request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.rateRPS, s.rateBurst = rps, burst }
}

// Server is an HTTP server exposing a registry.Registry.
type Server struct {
	reg     *registry.Registry
	metrics *metrics.Recorder

	port        int
	maxBodySize int64

	rateRPS   float64
	rateBurst int
	limiters  *agentLimiters

	httpSrv   *http.Server
	httpSrvMu sync.Mutex
}

// NewServer creates a Server fronting reg.
func NewServer(reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		reg:         reg,
		maxBodySize: defaultMaxBodySize,
		rateRPS:     defaultRateLimitRPS,
		rateBurst:   defaultRateLimitBurst,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiters = newAgentLimiters(s.rateRPS, s.rateBurst)
	return s
}

// Handler returns an http.Handler serving the registry's HTTP surface,
// instrumented with OpenTelemetry HTTP server spans.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /agent/{name}", s.rateLimited(s.handleSubmit))
	mux.HandleFunc("GET /agent/{name}/events", s.rateLimited(s.handleEvents))
	mux.HandleFunc("GET /agent/{name}/state", s.rateLimited(s.handleState))
	if s.metrics != nil {
		mux.Handle("GET /agent/{name}/metrics", s.metrics.Handler())
	}

	return otelhttp.NewHandler(mux, "agentrt.httpapi")
}

// ListenAndServe starts the HTTP server on the configured port. It blocks
// until the server is stopped or encounters an error.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              portAddr(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	s.httpSrvMu.Lock()
	s.httpSrv = srv
	s.httpSrvMu.Unlock()

	return srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and every registered agent.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpSrvMu.Lock()
	srv := s.httpSrv
	s.httpSrvMu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.reg.ShutdownAll(ctx)
	return err
}

func portAddr(port int) string {
	if port == 0 {
		return ":8080"
	}
	return ":" + strconv.Itoa(port)
}
