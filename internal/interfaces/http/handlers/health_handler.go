package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/pkg/constants"
)

// DependencyChecker reports whether a backing dependency is reachable.
type DependencyChecker func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	startedAt time.Time
	checks    map[string]DependencyChecker
}

// NewHealthHandler creates a HealthHandler with named dependency checks.
func NewHealthHandler(checks map[string]DependencyChecker) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now(),
		checks:    checks,
	}
}

// Liveness handles GET /live. It answers OK as long as the process serves.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"service": constants.ServiceName,
	})
}

// Readiness handles GET /ready. It fails when any dependency check fails.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{
		"status":       statusWord(status),
		"service":      constants.ServiceName,
		"uptime":       time.Since(h.startedAt).String(),
		"dependencies": results,
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ready"
	}
	return "degraded"
}
