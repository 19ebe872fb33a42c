package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"weddingbudget/internal/log"
	"weddingbudget/internal/middleware/ratelimit"
	"weddingbudget/internal/middleware/security"
	"weddingbudget/internal/services"
)

// Options tunes the server. Zero values pick the defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	Headers            *security.HeadersConfig
}

type Server struct {
	http.Server
	svc         *services.BudgetService
	logger      *log.Logger
	httpLog     *log.StructuredLogger
	clientIP    *security.ClientIPResolver
	rateLimiter *ratelimit.Limiter
}

// NewServer wires the budget API onto a chi router.
func NewServer(addr string, svc *services.BudgetService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limits := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limits.RequestsPerMinute = opts.RateLimitPerMinute
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	s := &Server{
		svc:         svc,
		logger:      logger,
		httpLog:     log.NewStructuredLogger(logger),
		clientIP:    security.NewClientIPResolver(),
		rateLimiter: ratelimit.NewLimiter(limits),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(headers))
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.requestLogging)
	r.Use(s.rateLimiter.Middleware(s.clientIP.ClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "too many requests").Write(w)
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1/users/{uid}", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/ledger", s.handleLedger)

		r.Get("/vendors", s.handleListVendors)
		r.Post("/vendors", s.handleCreateVendor)
		r.Get("/vendors/{id}", s.handleGetVendor)
		r.Put("/vendors/{id}", s.handleUpdateVendor)
		r.Delete("/vendors/{id}", s.handleDeleteVendor)
		r.Get("/vendors/{id}/progress", s.handleVendorProgress)
		r.Get("/vendors/{id}/ledger", s.handleVendorLedger)

		r.Get("/expenses", s.handleListExpenses)
		r.Post("/expenses", s.handleAddExpense)
		r.Put("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)

		r.Get("/contributions", s.handleListContributions)
		r.Post("/contributions", s.handleAddContribution)
		r.Put("/contributions/{id}", s.handleUpdateContribution)

		r.Get("/selections", s.handleGetSelection)
		r.Put("/selections", s.handleReplaceSelection)
		r.Post("/selections/toggle", s.handleToggleSelection)
		r.Post("/selections/cleanup", s.handleCleanupOrphans)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}

// RateLimitMetrics reports the limiter counters.
func (s *Server) RateLimitMetrics() ratelimit.Metrics {
	return s.rateLimiter.GetMetrics()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := s.clientIP.ClientIP(r)
		s.httpLog.LogHTTPStart(r.Context(), r, ip)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.httpLog.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
