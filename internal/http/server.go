package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"walleet/internal/auth"
	"walleet/internal/connectivity"
	"walleet/internal/ledger"
	"walleet/internal/log"
	"walleet/internal/middleware/ratelimit"
	"walleet/internal/middleware/security"
	"walleet/internal/services"
	"walleet/internal/taxonomy"
)

// ReadinessCheck probes one dependency for /readyz.
type ReadinessCheck func(ctx context.Context) error

// Deps are the application services the API is built on.
type Deps struct {
	Ledger   *ledger.Ledger
	Capture  *services.CaptureService
	Replay   *services.ReplayController
	Monitor  *connectivity.Monitor
	Auth     *auth.Service
	Taxonomy *taxonomy.Taxonomy
	Logger   *log.Logger

	Readiness      map[string]ReadinessCheck
	MetricsEnabled bool
	// MaxUploadBytes bounds multipart capture bodies.
	MaxUploadBytes int64
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	validate *validator.Validate

	pinLimiter     *ratelimit.Limiter
	captureLimiter *ratelimit.Limiter
	shutdownOnce   sync.Once

	// cancelRequests ends every request context, closing open event streams.
	cancelRequests context.CancelFunc
}

// NewServer configures the routes, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	if deps.Taxonomy == nil {
		deps.Taxonomy = taxonomy.Default()
	}

	s := &Server{
		deps:     deps,
		logger:   log.OrDefault(deps.Logger, log.ComponentHTTP),
		validate: newValidator(),
		pinLimiter: ratelimit.NewLimiter(ratelimit.Config{
			Name: "pin", Limit: 10, Window: time.Minute,
		}),
		captureLimiter: ratelimit.NewLimiter(ratelimit.Config{
			Name: "capture", Limit: 30, Window: time.Minute,
		}),
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancelRequests = cancel
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.deps.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "too many requests, try again later").Write(w)
	}
	clientKey := func(r *http.Request) string { return r.RemoteAddr }

	r.Route("/api", func(r chi.Router) {
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Post("/batch", s.handleCreateBatch)
			r.Get("/{id}", s.handleGetExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/summary", s.handleCategorySummary)

		r.With(s.captureLimiter.Middleware(clientKey, onLimit)).Post("/captures", s.handleCapture)
		r.Post("/voice", s.handleVoice)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", s.handleListQueue)
			r.Get("/count", s.handleQueueCount)
			r.Post("/replay", s.handleReplayAll)
			r.Get("/{id}/image", s.handleQueuedImage)
			r.Post("/{id}/replay", s.handleReplay)
			r.Delete("/{id}", s.handleDiscard)
		})

		r.Get("/connectivity", s.handleGetConnectivity)
		r.Put("/connectivity", s.handleSetConnectivity)
		r.Get("/events", s.handleEvents)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", s.handleAuthStatus)
			r.Post("/setup", s.handleAuthSetup)
			r.With(s.pinLimiter.Middleware(clientKey, onLimit)).Post("/verify", s.handleAuthVerify)
			r.Put("/biometrics", s.handleBiometrics)
		})
	})
	return r
}

// Shutdown stops the rate limiters and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.pinLimiter.Stop()
		s.captureLimiter.Stop()
		s.cancelRequests()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.deps.Readiness {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "checks", failed)
		NewJSONResponse().Status(http.StatusServiceUnavailable).
			Body(map[string]any{"status": "unavailable", "failed": failed}).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
