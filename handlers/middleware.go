package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go-link-redirector/metrics"
	"go-link-redirector/ratelimit"
	"go-link-redirector/types"
	"go.uber.org/zap"
)

const (
	CorrelationIDHeader = "X-Correlation-Id"
	correlationIDKey    = "correlation_id"
)

// CORSMiddleware adds CORS headers to the response.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Correlation-Id")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-RateLimit-Limit, X-Correlation-Id")
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// CorrelationIDMiddleware echoes the caller's X-Correlation-Id or mints one.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

func correlationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

// RequestLoggerMiddleware logs every completed request.
func RequestLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("correlation_id", correlationID(c)))
	}
}

// MetricsMiddleware records Prometheus metrics for each request. Unmatched
// paths share one label to bound cardinality.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// CreateRateLimitMiddleware limits link creation per user id, or per client
// address when the body carries none.
func (h *URLHandler) CreateRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body types.ShortenRequest
		// Malformed bodies are keyed by address; Shorten rejects them afterwards.
		_ = c.ShouldBindBodyWith(&body, binding.JSON)

		key := ratelimit.CreateKey(types.Requester{Address: c.ClientIP(), IdentityOverride: body.UserID})
		h.admit(c, ratelimit.ScopeCreate, key)
	}
}

// FollowRateLimitMiddleware limits redirects per (client address, short code).
func (h *URLHandler) FollowRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Query("short")
		if shortCode == "" {
			c.Next()
			return
		}
		h.admit(c, ratelimit.ScopeFollow, ratelimit.FollowKey(c.ClientIP(), shortCode))
	}
}

func (h *URLHandler) admit(c *gin.Context, scope ratelimit.Scope, key string) {
	res, err := h.guard.Admit(c.Request.Context(), scope, key)
	switch {
	case errors.Is(err, ratelimit.ErrRateLimited):
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
		c.Header("X-RateLimit-Limit", strconv.Itoa(h.guard.Quota(scope).Limit))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitExceeded})
	case err != nil:
		h.logger.Error("Rate limit check failed",
			zap.String("scope", string(scope)),
			zap.Error(err),
			zap.String("correlation_id", correlationID(c)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		c.Next()
	}
}

// retryAfterSeconds rounds up to whole seconds, never below one.
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
