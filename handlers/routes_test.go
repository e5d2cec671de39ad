package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go-link-redirector/config"
	"go-link-redirector/handlers/mocks"
	"go-link-redirector/metrics"
	"go.uber.org/zap"
)

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name             string
		disableRateLimit bool
	}{
		{name: "Rate limiting enabled"},
		{name: "Rate limiting disabled", disableRateLimit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.DisableRateLimit = tt.disableRateLimit

			var limited []string
			passThrough := func(scope string) gin.HandlerFunc {
				return func(c *gin.Context) {
					limited = append(limited, scope)
					c.Next()
				}
			}

			handler := new(mocks.MockURLHandler)
			handler.On("Shorten", mock.Anything).Run(func(args mock.Arguments) {
				args.Get(0).(*gin.Context).Status(http.StatusCreated)
			})
			handler.On("Redirect", mock.Anything).Run(func(args mock.Arguments) {
				args.Get(0).(*gin.Context).Status(http.StatusFound)
			})
			handler.On("Stats", mock.Anything).Run(func(args mock.Arguments) {
				args.Get(0).(*gin.Context).Status(http.StatusOK)
			})
			handler.On("HealthCheck", mock.Anything).Run(func(args mock.Arguments) {
				args.Get(0).(*gin.Context).Status(http.StatusOK)
			})
			if !tt.disableRateLimit {
				handler.On("CreateRateLimitMiddleware").Return(passThrough("create"))
				handler.On("FollowRateLimitMiddleware").Return(passThrough("follow"))
			}

			router := gin.New()
			RegisterRoutes(router, handler, cfg, zap.NewNop(), metrics.New())

			routes := []struct {
				method, path string
				status       int
			}{
				{http.MethodPost, "/shorten", http.StatusCreated},
				{http.MethodGet, "/?short=abc", http.StatusFound},
				{http.MethodGet, "/stats/?short=abc", http.StatusOK},
				{http.MethodGet, "/stats?short=abc", http.StatusOK},
				{http.MethodGet, "/health", http.StatusOK},
			}
			for _, route := range routes {
				resp := doRequest(router, route.method, route.path, "", "")
				assert.Equal(t, route.status, resp.Code, route.path)
			}

			if tt.disableRateLimit {
				assert.Empty(t, limited)
				handler.AssertNotCalled(t, "CreateRateLimitMiddleware")
			} else {
				assert.Equal(t, []string{"create", "follow"}, limited)
			}
			handler.AssertExpectations(t)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, config.DefaultConfig(), nil)

	resp := doRequest(router, http.MethodPost, "/shorten", `{"url":"https://example.com"}`, "10.0.0.1:1000")
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doRequest(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.True(t, strings.Contains(body, "links_created_total 1"), body)
	assert.Contains(t, body, `rate_limit_decisions_total{decision="allowed",scope="create"} 1`)
}

func TestEndToEndScenario(t *testing.T) {
	router, _ := newTestRouter(t, config.DefaultConfig(), nil)

	resp := doRequest(router, http.MethodPost, "/shorten", `{"url":"https://example.com","user_id":"u1"}`, "192.0.2.10:4000")
	require.Equal(t, http.StatusCreated, resp.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	code := created["short_code"]
	require.Len(t, code, 8)

	resp = doRequest(router, http.MethodGet, "/?short="+code, "", "192.0.2.10:4000")
	require.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "https://example.com", resp.Header().Get("Location"))

	resp = doRequest(router, http.MethodGet, "/stats/?short="+code, "", "192.0.2.10:4000")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"short_code":"`+code+`","clicks":1,"unique_ips":["192.0.2.10"]}`, resp.Body.String())

	resp = doRequest(router, http.MethodGet, "/?short=doesnotexist", "", "192.0.2.10:4000")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = doRequest(router, http.MethodGet, "/stats/?short=doesnotexist", "", "192.0.2.10:4000")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
