package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Redirect sends the client to the original URL of ?short=<code>. The
// redirect is temporary because cached mappings are TTL-bound.
func (h *URLHandler) Redirect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	shortCode := c.Query("short")
	if shortCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": missingShortParam})
		return
	}

	originalURL, err := h.service.Follow(ctx, shortCode, c.ClientIP())
	if err != nil {
		h.handleError(c, err, errorRetrievingLink)
		return
	}

	h.logger.Info("Redirecting",
		zap.String("short_code", shortCode),
		zap.String("original_url", originalURL),
		zap.String("ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
		zap.String("correlation_id", correlationID(c)))
	c.Redirect(http.StatusFound, originalURL)
}
