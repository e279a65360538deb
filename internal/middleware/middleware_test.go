package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/movie-billboard/internal/config"
	"github.com/iliyamo/movie-billboard/internal/utils"
)

const secret = "test-secret"

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, "admin@example.com", role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(ContextSubject).(string))
	}, JWTAuth(secret), RequireRole("ADMIN"))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", bearer(t, "VIEWER"), http.StatusForbidden},
		{"admin", bearer(t, "ADMIN"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := serve(e, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "admin@example.com", rec.Body.String())
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", ok)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.NotEmpty(t, id)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(echo.HeaderXRequestID, "given-id")
	rec = serve(e, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "given-id", rec.Header().Get(echo.HeaderXRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, id, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "given-id", entries[1].ContextMap()["request_id"])
	assert.EqualValues(t, http.StatusNotFound, entries[1].ContextMap()["status"])
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/movies", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/movies")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:POST /v1/movies", buildRateKey(cfg, c))

	c.Set(ContextSubject, "admin@example.com")
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:admin@example.com", buildRateKey(cfg, c))
}

func TestNewTokenBucket_PassThrough(t *testing.T) {
	unreachable := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = unreachable.Close() })

	tests := []struct {
		name string
		cfg  config.RateLimitConfig
		rdb  *redis.Client
	}{
		{"disabled", config.RateLimitConfig{Enabled: false}, unreachable},
		{"no redis", config.RateLimitConfig{Enabled: true}, nil},
		{"redis down", config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}, unreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/x", ok, NewTokenBucket(tt.cfg, tt.rdb, nil))
			for i := 0; i < 3; i++ {
				assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
			}
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(1))
	assert.Equal(t, 2, retryAfterSeconds(1001))
	assert.Equal(t, 0, retryAfterSeconds(-50))
}
