package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports that the service is up.
func (h *URLHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
