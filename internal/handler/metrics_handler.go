package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/service"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

type authorityPinger interface {
	Ping(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics   *service.MetricsService
	authority authorityPinger
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, authority authorityPinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, authority: authority}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the diploma authority is reachable.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.authority != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		if err := h.authority.Ping(ctx); err != nil {
			response.Error(c, appErrors.WrapAs(err, appErrors.ErrServiceUnavailable, "diploma authority is unreachable"))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
