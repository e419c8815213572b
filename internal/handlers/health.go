package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kosarica/rule-resolver/internal/database"
	"github.com/kosarica/rule-resolver/internal/resilience"
	"github.com/kosarica/rule-resolver/internal/resolver"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string     `json:"status"`
	Backend string     `json:"backend"`
	Breaker string     `json:"breaker,omitempty"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

// PoolStats summarizes the SQL connection pool.
type PoolStats struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
	Max      int32 `json:"max"`
}

// NewPoolStats copies the counters of a pgx pool snapshot.
func NewPoolStats(stat *pgxpool.Stat) *PoolStats {
	if stat == nil {
		return nil
	}
	return &PoolStats{
		Total:    stat.TotalConns(),
		Idle:     stat.IdleConns(),
		Acquired: stat.AcquiredConns(),
		Max:      stat.MaxConns(),
	}
}

// breakerReporter is implemented by backends guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() resilience.State
}

var backendPinger resolver.Pinger

// InitHealth sets the backend checked by HealthCheck.
func InitHealth(p resolver.Pinger) {
	backendPinger = p
}

// HealthCheck handles the health check endpoint
// @Summary Service health
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse "Backend unreachable"
// @Router /internal/health [get]
func HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status: "ok",
		Pool:   NewPoolStats(database.Stats()),
	}

	if backendPinger == nil {
		response.Backend = "not configured"
		c.JSON(http.StatusOK, response)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	err := backendPinger.Ping(ctx)
	if r, ok := backendPinger.(breakerReporter); ok {
		response.Breaker = r.BreakerState().String()
	}
	if err != nil {
		response.Status = "degraded"
		response.Backend = "disconnected"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response.Backend = "connected"
	c.JSON(http.StatusOK, response)
}
