package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persys-dev/workflow-watch/internal/logging"
	"github.com/persys-dev/workflow-watch/internal/store"
)

const defaultQueryLimit = 50

var workflowsLogger = logging.C("workflows")

type WorkflowHandler struct {
	store  *store.Store
	dbPath string
}

func NewWorkflowHandler(st *store.Store, dbPath string) *WorkflowHandler {
	return &WorkflowHandler{store: st, dbPath: dbPath}
}

// GET /api/v1/workflows
func (h *WorkflowHandler) List(c *gin.Context) {
	limit := defaultQueryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.store.Recent(limit, c.Query("repository"))
	if err != nil {
		workflowsLogger.WithError(err).Error("failed to fetch workflows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workflows": runs,
		"count":     len(runs),
	})
}

// GET /api/v1/health
func (h *WorkflowHandler) Health(c *gin.Context) {
	if err := h.store.Ping(); err != nil {
		workflowsLogger.WithError(err).Error("health check failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /api/v1/
func (h *WorkflowHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Workflow Watch Webhook Server",
		"version": "1.0.0",
		"endpoints": gin.H{
			"webhook":   "/api/v1/webhook (POST)",
			"health":    "/api/v1/health (GET)",
			"workflows": "/api/v1/workflows (GET)",
		},
		"database": h.dbPath,
	})
}
