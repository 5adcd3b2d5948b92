package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MetricsSource reports a point-in-time snapshot of counters
type MetricsSource interface {
	Snapshot() any
}

// MetricsSourceFunc adapts a plain function to MetricsSource
type MetricsSourceFunc func() any

func (f MetricsSourceFunc) Snapshot() any { return f() }

// MetricsHandler serves named metric snapshots as JSON
type MetricsHandler struct {
	sources map[string]MetricsSource
}

func NewMetricsHandler(sources map[string]MetricsSource) *MetricsHandler {
	return &MetricsHandler{sources: sources}
}

func (h *MetricsHandler) Metrics(c *gin.Context) {
	out := make(gin.H, len(h.sources))
	for name, src := range h.sources {
		out[name] = src.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "metrics": out})
}

func (h *MetricsHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/metrics", h.Metrics)
}
