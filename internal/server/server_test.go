package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonathan/account-api/internal/server/ratelimit"
	"github.com/jonathan/account-api/internal/types"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "ok"}, decodeBody[map[string]string](t, rec))
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Health = pingFunc(func(context.Context) error { return errors.New("no route to host") })
	})

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decodeBody[map[string]string](t, rec)["status"])
}

func TestCORSMiddleware(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Accept-Language")
}

func TestCORSMiddleware_OPTIONS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodOptions, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	t.Run("generated", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/health", "", nil)
		assert.Len(t, rec.Header().Get(requestIDHeader), 36)
	})

	t.Run("propagated", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/health", "", http.Header{requestIDHeader: {"abc-123"}})
		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	})
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	env := newTestEnv(t)

	var recorded int
	handler := env.server.withLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		if rec, ok := w.(*statusRecorder); ok {
			recorded = rec.status
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, recorded)
}

func TestLocalizedErrors(t *testing.T) {
	env := newTestEnv(t)
	id := seedUser(t, env.store, "me@example.com", "old-password")
	seedUser(t, env.store, "taken@example.com", "password123")

	t.Run("accept-language", func(t *testing.T) {
		header := env.bearer(t, id)
		header.Set("Accept-Language", "es-MX,es;q=0.9,en;q=0.5")

		rec := env.do(t, http.MethodPatch, "/v1/users/me", `{"email":"taken@example.com"}`, header)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "es", rec.Header().Get("Content-Language"))
		resp := decodeBody[types.ErrorResponse](t, rec)
		assert.Equal(t, TypeEmailAlreadyExists, resp.Type)
		assert.Equal(t, "Ya existe un usuario con este correo electrónico.", resp.Message)
	})

	t.Run("lang query parameter wins", func(t *testing.T) {
		header := env.bearer(t, id)
		header.Set("Accept-Language", "en")

		rec := env.do(t, http.MethodPut, "/v1/users/me/password?lang=es",
			`{"old_password":"wrong","new_password":"new-password"}`, header)
		resp := decodeBody[types.ErrorResponse](t, rec)
		assert.Equal(t, TypeInvalidOldPassword, resp.Type)
		assert.Equal(t, "La contraseña anterior es incorrecta.", resp.Message)
	})

	t.Run("unsupported language falls back to default", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users/me", "", http.Header{"Accept-Language": {"ja"}})
		resp := decodeBody[types.ErrorResponse](t, rec)
		assert.Equal(t, "Authentication is required.", resp.Message)
	})

	t.Run("spanish success message", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/v1/users/me/password?lang=es",
			`{"old_password":"old-password","new_password":"new-password"}`, env.bearer(t, id))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Contraseña actualizada correctamente.", decodeBody[types.MessageResponse](t, rec).Message)
	})
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.RateLimiter = ratelimit.NewLimiter(&ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/v1/auth/login", Method: "POST", Limit: 2, Window: time.Minute, Burst: 2},
			},
		})
	})
	body := `{"email":"ghost@example.com","password":"password123"}`

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/v1/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := env.do(t, http.MethodPost, "/v1/auth/login", body, http.Header{"Accept-Language": {"es"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	resp := decodeBody[types.ErrorResponse](t, rec)
	assert.Equal(t, TypeRateLimitExceeded, resp.Type)
	assert.Equal(t, "Se superó el límite de solicitudes. Inténtalo más tarde.", resp.Message)

	// Health checks are never throttled.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil).Code)
	}
}

func TestRouting_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "GET, PATCH", rec.Header().Get("Allow"))

	resp := decodeBody[types.ErrorResponse](t, rec)
	assert.Equal(t, TypeMethodNotAllowed, resp.Type)
	assert.Equal(t, "Method DELETE is not allowed for this route.", resp.Message)
}

func TestRouting_NotFound(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/v1/nope"},
		{name: "unknown nested path", method: http.MethodPost, path: "/v1/users/me/avatar"},
		{name: "root", method: http.MethodGet, path: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			resp := decodeBody[types.ErrorResponse](t, rec)
			assert.Equal(t, TypeNotFound, resp.Type)
			assert.Equal(t, "No route matches "+tt.path+".", resp.Message)
		})
	}
}

func TestRouting_NotFoundLocalized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/nope?lang=es", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Ninguna ruta coincide con /v1/nope.", decodeBody[types.ErrorResponse](t, rec).Message)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	env.server.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestExtractClientID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	assert.Equal(t, "203.0.113.7", env.server.extractClientID(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", env.server.extractClientID(req))
}

func TestTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	env := newTestEnv(t, func(d *Dependencies) { d.TracerProvider = tp })

	rec := env.do(t, http.MethodGet, "/health", "", http.Header{requestIDHeader: {"trace-me"}})
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /health", span.Name())
	assert.Contains(t, span.Attributes(), attribute.String("request.id", "trace-me"))
	assert.Contains(t, span.Attributes(), attribute.Int("http.response.status_code", http.StatusOK))
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracingMiddleware_MarksServerErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	env := newTestEnv(t, func(d *Dependencies) { d.TracerProvider = tp })
	env.store.getErr = errors.New("connection refused")

	rec := env.do(t, http.MethodGet, "/v1/users/me", "", env.bearer(t, 1))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, decodeBody[types.ErrorResponse](t, rec).Type)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestNew_RejectsMalformedRateLimitConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only-32chars")
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("PASSWORD_PEPPER", "")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "lots")

	s, err := New(context.Background(), Config{DatabaseURL: "postgres://unused@127.0.0.1:1/none", DefaultLocale: "en"})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "invalid rate limit configuration")
}
