package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go-link-redirector/cache"
	"go-link-redirector/config"
	"go-link-redirector/metrics"
	"go-link-redirector/ratelimit"
	"go-link-redirector/services"
	"go-link-redirector/shortcode"
	"go-link-redirector/storage"
	"go.uber.org/zap"
)

// newTestRouter wires the real service stack on in-memory backends. A nil
// limiter selects an in-memory one.
func newTestRouter(t *testing.T, cfg *config.Config, limiter ratelimit.Limiter) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	redirectCache := cache.NewMemoryCache(4, 0)
	t.Cleanup(func() { _ = redirectCache.Close() })

	svc := services.NewLinkService(
		storage.NewInMemoryStorage(0, nil),
		redirectCache,
		shortcode.NewGenerator(cfg.ShortCodeBytes),
		cfg.CacheTTL,
		zap.NewNop(),
		m,
	)

	var guard *ratelimit.Guard
	if !cfg.DisableRateLimit {
		if limiter == nil {
			memLimiter := ratelimit.NewMemoryLimiter(4, 0)
			t.Cleanup(func() { _ = memLimiter.Close() })
			limiter = memLimiter
		}
		guard = ratelimit.NewGuard(limiter, ratelimit.Policies(cfg), zap.NewNop(), m)
	}

	handler, err := NewURLHandler(context.Background(), svc, guard, cfg, zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router, handler, cfg, zap.NewNop(), m)
	return router, m
}

func doRequest(router http.Handler, method, target, body, remoteAddr string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}
