package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/restoraworks/reportflow/config"
	"github.com/restoraworks/reportflow/internal/ctxkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
}

func TestChain_OrdersOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), tag("first"), tag("second"), tag("third"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	h := Recovery(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestID_GeneratesAndPreserves(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-incoming")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-incoming", seen)
	assert.Equal(t, "req-incoming", rec.Header().Get("X-Request-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders()(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRateLimiter_Returns429PerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := RateLimiter(ctx, 1, 2, zaptest.NewLogger(t))(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1111"), "burst exhausted")

	assert.Equal(t, http.StatusOK, send("10.0.0.2:2222"), "each IP has its own bucket")
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/workflows": "/api/v1/workflows",
		"/api/v1/workflows/0b16dd2e-5b4c-4a4a-9266-9e7f4b0d2f6b":         "/api/v1/workflows/:id",
		"/api/v1/workflows/0b16dd2e-5b4c-4a4a-9266-9e7f4b0d2f6b/execute": "/api/v1/workflows/:id/execute",
		"/api/v1/workflows/12345/cancel":                                 "/api/v1/workflows/:id/cancel",
		"/healthz":                                                       "/healthz",
		"/api/v1/agents":                                                 "/api/v1/agents",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:     true,
		JWTSecret:   "test-secret",
		TokenIssuer: "reportflow",
	}

	var seenUser string
	h := JWTAuth(cfg, []string{"/healthz"}, zaptest.NewLogger(t))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenUser = ctxkeys.UserID(r.Context())
		}))

	send := func(path, authorization string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Skip paths bypass auth entirely.
	assert.Equal(t, http.StatusOK, send("/healthz", ""))

	// Missing and malformed headers are rejected.
	assert.Equal(t, http.StatusUnauthorized, send("/api/v1/workflows", ""))
	assert.Equal(t, http.StatusUnauthorized, send("/api/v1/workflows", "Basic abc"))

	// Wrong secret is rejected.
	bad := signToken(t, "other-secret", jwt.MapClaims{"user_id": "u1", "iss": "reportflow"})
	assert.Equal(t, http.StatusUnauthorized, send("/api/v1/workflows", "Bearer "+bad))

	// Wrong issuer is rejected.
	wrongIss := signToken(t, "test-secret", jwt.MapClaims{"user_id": "u1", "iss": "someone-else"})
	assert.Equal(t, http.StatusUnauthorized, send("/api/v1/workflows", "Bearer "+wrongIss))

	// Expired token is rejected.
	expired := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "u1",
		"iss":     "reportflow",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	assert.Equal(t, http.StatusUnauthorized, send("/api/v1/workflows", "Bearer "+expired))

	// Token without an identity is rejected.
	noUser := signToken(t, "test-secret", jwt.MapClaims{"iss": "reportflow"})
	assert.Equal(t, http.StatusUnauthorized, send("/api/v1/workflows", "Bearer "+noUser))

	// Valid token with a user_id claim passes.
	good := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "tech-42",
		"iss":     "reportflow",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	assert.Equal(t, http.StatusOK, send("/api/v1/workflows", "Bearer "+good))
	assert.Equal(t, "tech-42", seenUser)

	// Subject is the fallback identity.
	subOnly := signToken(t, "test-secret", jwt.MapClaims{
		"sub": "tech-77",
		"iss": "reportflow",
	})
	assert.Equal(t, http.StatusOK, send("/api/v1/workflows", "Bearer "+subOnly))
	assert.Equal(t, "tech-77", seenUser)
}
