package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PipelineStatus exposes the worker pool state for health checks.
type PipelineStatus interface {
	QueueDepth() int
	Running() int
	BackendName() string
}

type HealthHandler struct {
	pipeline PipelineStatus
	store    string
}

// NewHealthHandler reports on pipeline; storeKind names the command store ("memory" or "postgres").
func NewHealthHandler(pipeline PipelineStatus, storeKind string) *HealthHandler {
	return &HealthHandler{pipeline: pipeline, store: storeKind}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"pipeline": gin.H{
			"backend":     h.pipeline.BackendName(),
			"queue_depth": h.pipeline.QueueDepth(),
			"running":     h.pipeline.Running(),
		},
		"store": h.store,
		"mcp_server": gin.H{
			"status": "enabled",
			"path":   MCPPath,
		},
	})
}
