package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go-link-redirector/config"
	"go-link-redirector/metrics"
	"go.uber.org/zap"
)

// RegisterRoutes sets up all the routes for the link redirector service and
// applies the shared middleware. m may be nil, in which case /metrics is not
// served.
func RegisterRoutes(r *gin.Engine, handler URLHandlerInterface, config *config.Config, logger *zap.Logger, m *metrics.Metrics) {
	r.Use(CorrelationIDMiddleware())
	if m != nil {
		r.Use(MetricsMiddleware(m))
	}
	r.Use(RequestLoggerMiddleware(logger), CORSMiddleware())

	create := []gin.HandlerFunc{handler.Shorten}
	follow := []gin.HandlerFunc{handler.Redirect}
	if !config.DisableRateLimit {
		create = append([]gin.HandlerFunc{handler.CreateRateLimitMiddleware()}, create...)
		follow = append([]gin.HandlerFunc{handler.FollowRateLimitMiddleware()}, follow...)
	}

	r.POST("/shorten", create...)
	r.GET("/", follow...)
	r.GET("/stats", handler.Stats)
	r.GET("/stats/", handler.Stats)
	r.GET("/health", handler.HealthCheck)

	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
