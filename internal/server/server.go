package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/account-api/internal/config"
	"github.com/jonathan/account-api/internal/db"
	"github.com/jonathan/account-api/internal/i18n"
	"github.com/jonathan/account-api/internal/logging"
	"github.com/jonathan/account-api/internal/server/middleware"
	"github.com/jonathan/account-api/internal/server/ratelimit"
)

// tracerName identifies spans started by this package.
const tracerName = "github.com/jonathan/account-api/internal/server"

// requestIDHeader carries the per-request correlation ID in both directions.
const requestIDHeader = "X-Request-ID"

// HealthChecker reports whether a backing service is reachable. *db.DB implements it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	db              *db.DB
	health          HealthChecker
	rateLimiter     *ratelimit.Limiter
	translator      *i18n.Translator
	logger          logging.Logger
	tracer          trace.Tracer
	respond         *responder
	jwtService      *JWTService
	userService     *UserService
	authHandler     *AuthHandler
	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	Port            int
	DatabaseURL     string
	DefaultLocale   string
	ShutdownTimeout time.Duration
	// AutoMigrate applies pending migrations before serving.
	AutoMigrate bool
	Logger      logging.Logger
}

// Dependencies are the collaborators a Server is assembled from.
type Dependencies struct {
	Store          UserStore
	Health         HealthChecker
	PasswordConfig *config.PasswordConfig
	JWTConfig      *config.JWTConfig
	Translator     *i18n.Translator
	RateLimiter    *ratelimit.Limiter
	Logger         logging.Logger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// New creates a new server instance backed by PostgreSQL.
func New(ctx context.Context, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	translator, err := i18n.NewTranslator(cfg.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}

	rateLimitConfig, err := ratelimit.LoadConfig()
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info(ctx, "migrations applied")
	}

	s := NewWithDependencies(cfg, Dependencies{
		Store:          database,
		Health:         database,
		PasswordConfig: passwordConfig,
		JWTConfig:      jwtConfig,
		Translator:     translator,
		RateLimiter:    ratelimit.NewLimiter(rateLimitConfig),
		Logger:         logger,
	})
	s.db = database
	return s, nil
}

// NewWithDependencies assembles a server from explicit collaborators.
// A nil RateLimiter disables rate limiting.
func NewWithDependencies(cfg Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}
	tp := deps.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	s := &Server{
		health:          deps.Health,
		rateLimiter:     limiter,
		translator:      deps.Translator,
		logger:          logger,
		tracer:          tp.Tracer(tracerName),
		respond:         &responder{translator: deps.Translator, logger: logger},
		jwtService:      NewJWTService(deps.JWTConfig),
		userService:     NewUserService(deps.Store, deps.PasswordConfig, logger),
		shutdownTimeout: shutdownTimeout,
	}
	s.authHandler = NewAuthHandler(s.userService, s.jwtService, s.respond)

	requireAuth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator(), s.handleUnauthorized)

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth endpoints
	mux.HandleFunc("POST /v1/auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", s.authHandler.Login)

	// Current user endpoints
	mux.Handle("GET /v1/users/me", requireAuth(http.HandlerFunc(s.handleGetMe)))
	mux.Handle("PATCH /v1/users/me", requireAuth(http.HandlerFunc(s.handleUpdateMe)))
	mux.Handle("PUT /v1/users/me/password", requireAuth(http.HandlerFunc(s.authHandler.ChangePassword)))

	// Anything else gets a typed 404 or 405 instead of the mux's plain-text replies.
	mux.HandleFunc("/", s.handleUnmatched(mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRequestID(s.withTracing(s.withLogging(s.withCORS(s.withLocale(s.withRateLimit(mux)))))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info(context.Background(), "server stopped")
	return nil
}

// Close releases the rate limiter and database pool.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.db != nil {
		s.db.Close()
	}
}

type requestIDKey struct{}

// RequestID returns the correlation ID assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID propagates an inbound X-Request-ID or assigns a new one.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// withTracing starts a server span per request, continuing any inbound trace context.
func (s *Server) withTracing(next http.Handler) http.Handler {
	propagator := otel.GetTextMapPropagator()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := s.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("request.id", RequestID(r.Context())),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		args := []any{"request_id", RequestID(r.Context())}
		if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.IsValid() {
			args = append(args, "trace_id", sc.TraceID().String())
		}
		s.logger.Info(r.Context(), "request completed", append(args,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)...)
	})
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLocale stores the caller's preferred language in the request context.
func (s *Server) withLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := s.translator.ResolveRequest(r)
		w.Header().Set("Content-Language", tag.String())
		next.ServeHTTP(w, r.WithContext(i18n.WithLocale(r.Context(), tag)))
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)

		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(info.RetryAfter.Seconds()))))
			}
			s.logger.Warn(r.Context(), "rate limit exceeded",
				"client", clientID, "method", r.Method, "path", r.URL.Path, "limit", info.Limit)
			s.respond.writeError(w, r, &ErrRateLimited{})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleUnauthorized is the rejection handler for authenticated routes.
func (s *Server) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	s.respond.writeError(w, r, &ErrUnauthorized{})
}

// routeMethods are the methods tried when deciding between 404 and 405.
var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// handleUnmatched serves requests that only match the catch-all pattern.
func (s *Server) handleUnmatched(mux *http.ServeMux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, method := range routeMethods {
			if method == r.Method {
				continue
			}
			alt := r.WithContext(r.Context())
			alt.Method = method
			if _, pattern := mux.Handler(alt); pattern != "" && pattern != "/" {
				allowed = append(allowed, method)
			}
		}

		if len(allowed) == 0 {
			s.respond.writeError(w, r, &ErrRouteNotFound{Path: r.URL.Path})
			return
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		s.respond.writeError(w, r, &ErrMethodNotAllowed{Method: r.Method, Allowed: allowed})
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			s.respond.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.respond.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// extractClientID extracts the client identifier from the request.
// Forwarded headers are ignored because they are client controlled.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}
