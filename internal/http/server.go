// Package http exposes the income entries as a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"receitas/internal/cache"
	"receitas/internal/log"
	"receitas/internal/middleware/ratelimit"
	"receitas/internal/middleware/security"
	"receitas/internal/middleware/trace"
)

const (
	defaultMonthCacheSize = 100
	defaultMonthCacheTTL  = 5 * time.Minute
	cacheSweepInterval    = 10 * time.Minute
	limiterSweepInterval  = 5 * time.Minute
	readinessTimeout      = 2 * time.Second
)

type ServerConfig struct {
	Addr               string
	RateLimitPerMinute int
	MonthCacheSize     int
	MonthCacheTTL      time.Duration
	// TrustedProxies are CIDRs whose forwarding headers are believed.
	TrustedProxies []string
	// Registry receives the server metrics and is served on /metrics.
	// A private registry is created when nil.
	Registry *prometheus.Registry
	Logger   *log.Logger
}

type Server struct {
	http.Server
	entries  EntryService
	months   *cache.MonthCache
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(cfg ServerConfig, entries EntryService) (*Server, error) {
	if cfg.MonthCacheSize <= 0 {
		cfg.MonthCacheSize = defaultMonthCacheSize
	}
	if cfg.MonthCacheTTL <= 0 {
		cfg.MonthCacheTTL = defaultMonthCacheTTL
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		entries:  entries,
		months:   cache.NewMonthCache(cfg.MonthCacheSize, cfg.MonthCacheTTL),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: security.NewDetector(),
		logger:   cfg.Logger.WithComponent(log.ComponentHTTP),
	}
	s.caches = cache.NewManager(s.months)

	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}

	metrics, err := trace.NewMetrics(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}
	for _, c := range []prometheus.Collector{
		s.limiter.Collector(),
		s.detector.Collector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := cfg.Registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /receitas", s.handleListEntries)
	mux.HandleFunc("GET /receitas/{id}", s.handleGetEntry)
	mux.HandleFunc("GET /receitas/{year}/{month}", s.handleListMonth)
	mux.HandleFunc("POST /receitas", s.handleCreateEntry)
	mux.HandleFunc("PUT /receitas/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /receitas/{id}", s.handleDeleteEntry)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	// outermost first
	chain := []func(http.Handler) http.Handler{
		log.Middleware(cfg.Logger),
		trace.NewMiddleware(s.detector.ExtractClientIP, metrics, mux).Middleware,
		log.RequestIDMiddleware(trace.RequestID),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.flagSuspicious,
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			TooManyRequestsError("rate limit exceeded, please try again later").Write(w)
		}),
	}
	var handler http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// flagSuspicious logs requests that look like scans; they are still served.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				log.NewFields().
					WithClientIP(s.detector.ExtractClientIP(r)).
					WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
					ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}

// RunMaintenance sweeps expired cache entries and idle rate-limit clients
// until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.caches.Run(ctx, cacheSweepInterval) })
	g.Go(func() error { return s.limiter.Run(ctx, limiterSweepInterval) })
	return g.Wait()
}

// Shutdown gracefully shuts down the HTTP server. Further calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports ready once the store answers a listing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if _, err := s.entries.FindAll(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
