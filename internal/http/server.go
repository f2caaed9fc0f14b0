package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finanzas/internal/analytics"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
	appweb "finanzas/web"
)

// Options wires the server to the services and tunes its middleware.
type Options struct {
	Dashboard *services.DashboardService
	Ledger    *services.LedgerService

	RateLimit      ratelimit.Config
	Headers        security.HeadersConfig
	TrustedProxies []string
	// EnableMetrics exposes /metrics in plain text.
	EnableMetrics bool
	// DefaultWindow is the statistics window the page opens with.
	DefaultWindow analytics.Window
	Logger        *log.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	http.Server
	templates *template.Template
	dashboard *services.DashboardService
	ledger    *services.LedgerService

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	defaultWindow analytics.Window

	startedAt    time.Time
	shutdownOnce sync.Once
}

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"cop":     formatCOP,
	"copf":    formatFloatCOP,
	"percent": formatPercent,
	"kind":    kindLabel,
	"fdate":   func(t time.Time) string { return t.Format("02/01/2006") },
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, opts Options) (*Server, error) {
	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("security detector: %w", err)
	}
	if opts.RateLimit.RequestsPerMinute == 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	if !opts.DefaultWindow.Valid() {
		opts.DefaultWindow = analytics.DefaultWindow
	}
	if opts.Headers == (security.HeadersConfig{}) {
		opts.Headers = security.DefaultHeadersConfig()
	}

	s := &Server{
		dashboard: opts.Dashboard,
		ledger:    opts.Ledger,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  detector,
		tracer:    trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		startedAt: time.Now(),

		defaultWindow: opts.DefaultWindow,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	router := s.routes(opts.EnableMetrics)

	var handler http.Handler = router
	handler = s.limiter.Middleware(detector.ExtractClientIP, handleRateLimited)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(opts.Headers).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

const resourcePattern = "{resource:caja/ingresos|[a-z-]+}"

func (s *Server) routes(enableMetrics bool) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError(msgNotFound).Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowedError("").Write(w)
	})

	r.Use(log.ComponentMiddleware(log.ComponentHTTP))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	if enableMetrics {
		r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ui/summary", s.handleSummaryPartial).Methods(http.MethodGet)
	r.HandleFunc("/ui/statistics", s.handleStatisticsPartial).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	api.HandleFunc("/income/analytics", s.handleIncomeAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/debts/amortization", s.handleAmortization).Methods(http.MethodPost)
	api.HandleFunc("/debts/{id}/progress", s.handleDebtProgress).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)

	api.HandleFunc("/"+resourcePattern, s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/"+resourcePattern, s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/"+resourcePattern+"/{id}", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/"+resourcePattern+"/{id}", s.handleDelete).Methods(http.MethodDelete)

	return r
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "url", r.URL.Path)
	JSONError(http.StatusTooManyRequests, "Demasiadas solicitudes. Intenta de nuevo en un minuto").Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports ready only when the templates are loaded and the
// ledger answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ledger == nil:
		checks["ledger"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := s.ledger.Ready(ctx); err != nil {
			slog.WarnContext(ctx, "Ledger not reachable", "error", err)
			checks["ledger"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["ledger"] = "ok"
		}
	}

	if s.dashboard != nil {
		stats := s.dashboard.CacheStats()
		checks["cache"] = map[string]interface{}{
			"entries": stats.Size,
			"status":  "ok",
		}
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, cache and security counters in a
// Prometheus-like plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	var cacheHits, cacheMisses uint64
	var cacheSize int
	if s.dashboard != nil {
		stats := s.dashboard.CacheStats()
		cacheHits, cacheMisses, cacheSize = stats.Hits, stats.Misses, stats.Size
	}

	w.WriteHeader(http.StatusOK)
	metric := func(name, help, kind string, value interface{}) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_request_duration_ms_avg", "Average response time in milliseconds", "gauge", traceMetrics.AverageResponseTime.Milliseconds())
	metric("report_cache_hits_total", "Engine report cache hits", "counter", cacheHits)
	metric("report_cache_misses_total", "Engine report cache misses", "counter", cacheMisses)
	metric("report_cache_entries", "Engine reports currently cached", "gauge", cacheSize)
	metric("security_suspicious_requests_total", "Requests flagged as suspicious", "counter", securityMetrics.SuspiciousRequests)
	metric("security_blocked_requests_total", "Requests rejected by the detector", "counter", securityMetrics.BlockedRequests)
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateLimitMetrics.TotalHits)
	metric("rate_limit_active_clients", "Clients tracked by the rate limiter", "gauge", rateLimitMetrics.ClientCount)
	metric("uptime_seconds", "Seconds since the server started", "gauge", int64(time.Since(s.startedAt).Seconds()))
}

// decodeJSON reads a JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil || !p.IsJSON() {
		return fmt.Errorf("decode body: %w", errBadBody)
	}
	if err := json.Unmarshal(p.GetRaw(), v); err != nil {
		return fmt.Errorf("decode body: %w", errBadBody)
	}
	return nil
}
