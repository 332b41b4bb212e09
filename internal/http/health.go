package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
	"github.com/guttosm/sunday-edge/internal/domain/dto"
	"github.com/guttosm/sunday-edge/internal/live"
)

// HealthChecker defines the interface for health check operations.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Check calls f(ctx).
func (f HealthCheckFunc) Check(ctx context.Context) error { return f(ctx) }

const healthCheckTimeout = 2 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checkers        map[string]HealthChecker
	circuitBreakers map[string]*circuitbreaker.CircuitBreaker
	database        HealthChecker
	liveStatus      func() live.Status
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checkers:        make(map[string]HealthChecker),
		circuitBreakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// RegisterChecker adds a readiness dependency.
func (h *HealthHandler) RegisterChecker(name string, checker HealthChecker) {
	h.checkers[name] = checker
}

// RegisterCircuitBreaker registers a circuit breaker for health monitoring.
func (h *HealthHandler) RegisterCircuitBreaker(name string, cb *circuitbreaker.CircuitBreaker) {
	if cb != nil {
		h.circuitBreakers[name] = cb
	}
}

// SetDatabase sets the durable mirror check. Without one the mirror is
// reported as in-memory.
func (h *HealthHandler) SetDatabase(checker HealthChecker) {
	h.database = checker
}

// SetLiveStatus reports the live channel in readiness.
func (h *HealthHandler) SetLiveStatus(status func() live.Status) {
	h.liveStatus = status
}

// Register registers health endpoints on the router.
func (h *HealthHandler) Register(router gin.IRoutes) {
	router.GET("/healthz", h.Liveness)
	router.GET("/readyz", h.Readiness)
	router.GET("/health", h.Health)
}

// Liveness handles the liveness probe endpoint.
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200 {object} map[string]string "Service is alive"
// @Router      /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles the readiness probe endpoint. Open breakers and failing
// checkers make the service not ready. The live channel is reported but never
// fails readiness since cached data is still served while it reconnects.
// @Summary     Readiness probe
// @Tags        Health
// @Produce     json
// @Success     200 {object} map[string]interface{} "Service is ready"
// @Failure     503 {object} map[string]interface{} "Service is not ready"
// @Router      /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]any)

	for name, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	for name, cb := range h.circuitBreakers {
		stats := cb.GetStats()
		checks[name+"_circuit"] = stats.State
		if cb.IsOpen() {
			status = http.StatusServiceUnavailable
		}
	}

	if h.liveStatus != nil {
		checks["live"] = h.liveStatus().State.String()
	}

	if len(checks) == 0 {
		checks["service"] = "ok"
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"checks": checks,
	})
}

// Health reports service status in the same shape as the Team/Roster Data
// Service so the dashboard can probe either one.
// @Summary     Service health
// @Tags        Health
// @Produce     json
// @Success     200 {object} dto.HealthStatus
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := dto.HealthStatus{
		Status:    "ok",
		Database:  "in-memory",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.database.Check(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "disconnected"
		} else {
			resp.Database = "connected"
		}
	}
	c.JSON(http.StatusOK, resp)
}
