// Package handlers provides HTTP request handlers for the link redirector service.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go-link-redirector/config"
	"go-link-redirector/ratelimit"
	"go-link-redirector/services"
	"go-link-redirector/types"
	"go.uber.org/zap"
)

const (
	invalidOrMissingURL = "Invalid or missing url"
	missingShortParam   = "Missing short parameter"
	errorCreatingLink   = "Error creating short link"
	errorRetrievingLink = "Error retrieving link"
	errorRetrievingStat = "Error retrieving stats"
	errorTimeout        = "Request timed out"
	storageCapacityFull = "Storage capacity reached"
	shortCodeExists     = "Short code already exists"
	shortCodeNotFound   = "Short code not found"
	storeUnavailable    = "Link store unavailable"
	rateLimitExceeded   = "Rate limit exceeded"
)

// URLHandlerInterface defines the methods that a link handler should implement.
type URLHandlerInterface interface {
	Shorten(c *gin.Context)
	Redirect(c *gin.Context)
	Stats(c *gin.Context)
	HealthCheck(c *gin.Context)
	CreateRateLimitMiddleware() gin.HandlerFunc
	FollowRateLimitMiddleware() gin.HandlerFunc
}

// handleError maps service errors to responses. fallback is used for
// unexpected errors.
func (h *URLHandler) handleError(c *gin.Context, err error, fallback string) {
	var statusCode int
	var errorMessage string

	switch {
	case errors.Is(err, services.ErrInvalidURL):
		statusCode, errorMessage = http.StatusBadRequest, invalidOrMissingURL
	case errors.Is(err, services.ErrMissingShortCode):
		statusCode, errorMessage = http.StatusBadRequest, missingShortParam
	case errors.Is(err, services.ErrLinkNotFound):
		statusCode, errorMessage = http.StatusNotFound, shortCodeNotFound
	case errors.Is(err, services.ErrShortCodeExists):
		statusCode, errorMessage = http.StatusConflict, shortCodeExists
	case errors.Is(err, services.ErrStorageCapacityReached):
		statusCode, errorMessage = http.StatusInsufficientStorage, storageCapacityFull
	case errors.Is(err, services.ErrStoreUnavailable):
		h.logger.Error("Link store unavailable", zap.Error(err), zap.String("correlation_id", correlationID(c)))
		statusCode, errorMessage = http.StatusServiceUnavailable, storeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		statusCode, errorMessage = http.StatusRequestTimeout, errorTimeout
	default:
		h.logger.Error("Unexpected error", zap.Error(err), zap.String("correlation_id", correlationID(c)))
		statusCode, errorMessage = http.StatusInternalServerError, fallback
	}

	c.JSON(statusCode, gin.H{"error": errorMessage})
}

// URLHandler holds the dependencies for the HTTP surface.
type URLHandler struct {
	service  services.LinkService
	validate *validator.Validate
	guard    *ratelimit.Guard
	config   *config.Config
	logger   *zap.Logger
}

// NewValidator returns a validator with the weburl rule registered.
func NewValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("weburl", func(fl validator.FieldLevel) bool {
		return services.IsWebURL(fl.Field().String())
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// NewURLHandler creates a URLHandler. guard may be nil only when rate
// limiting is disabled.
func NewURLHandler(ctx context.Context, service services.LinkService, guard *ratelimit.Guard, cfg *config.Config, logger *zap.Logger) (URLHandlerInterface, error) {
	if service == nil {
		return nil, errors.New("service cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if guard == nil && !cfg.DisableRateLimit {
		return nil, errors.New("guard cannot be nil when rate limiting is enabled")
	}

	validate, err := NewValidator()
	if err != nil {
		return nil, err
	}

	handler := &URLHandler{
		service:  service,
		validate: validate,
		guard:    guard,
		config:   cfg,
		logger:   logger,
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return handler, nil
}

// Shorten creates a short link for the URL in the request body.
func (h *URLHandler) Shorten(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	var input types.ShortenRequest
	// The create rate limiter may already have consumed the body.
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		h.logger.Info("Error decoding request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidOrMissingURL})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		h.logger.Info("Invalid input", zap.String("url", input.URL), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidOrMissingURL})
		return
	}

	requester := types.Requester{Address: c.ClientIP(), IdentityOverride: input.UserID}
	link, err := h.service.Shorten(ctx, requester, input.URL)
	if err != nil {
		h.handleError(c, err, errorCreatingLink)
		return
	}

	c.JSON(http.StatusCreated, types.ShortenResponse{ShortCode: link.ShortCode})
}

// Stats returns click analytics for ?short=<code>.
func (h *URLHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	shortCode := c.Query("short")
	if shortCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": missingShortParam})
		return
	}

	stats, err := h.service.Stats(ctx, shortCode)
	if err != nil {
		h.handleError(c, err, errorRetrievingStat)
		return
	}

	c.JSON(http.StatusOK, types.StatsResponse{
		ShortCode: stats.ShortCode,
		Clicks:    stats.Clicks,
		UniqueIPs: stats.UniqueIPs,
	})
}
