package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wonny/stockwatch/internal/api/response"
	"github.com/wonny/stockwatch/internal/infra/database/postgres"
)

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status       string                 `json:"status"` // healthy, degraded, unhealthy
	ResponseTime string                 `json:"response_time,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

// HealthCheck probes one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) ComponentHealth
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks    []HealthCheck
	stats     map[string]func() interface{}
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		stats:     make(map[string]func() interface{}),
		startTime: time.Now(),
		version:   version,
	}
}

// AddStats registers a stats source reported by Detailed
func (h *HealthHandler) AddStats(name string, fn func() interface{}) {
	h.stats[name] = fn
}

// SimpleHealthResponse represents a simple health check response
type SimpleHealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents a readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// DetailedHealthResponse represents detailed health information
type DetailedHealthResponse struct {
	Status        string                     `json:"status"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Timestamp     time.Time                  `json:"timestamp"`
	Components    map[string]ComponentHealth `json:"components"`
	Stats         map[string]interface{}     `json:"stats,omitempty"`
}

// Health returns simple liveness check
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, SimpleHealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// Ready reports 503 while any check is unhealthy
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := make(map[string]string, len(h.checks))
	ready := true

	for _, hc := range h.checks {
		res := hc.Check(c.Request.Context())
		if res.Status == "unhealthy" {
			checks[hc.Name] = "error"
			ready = false
			continue
		}
		checks[hc.Name] = "ok"
	}

	resp := ReadyResponse{Status: "ready", Timestamp: time.Now(), Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detailed returns every check plus runtime stats
// GET /api/v1/health/detailed
func (h *HealthHandler) Detailed(c *gin.Context) {
	components := make(map[string]ComponentHealth, len(h.checks))
	overall := "healthy"

	for _, hc := range h.checks {
		res := hc.Check(c.Request.Context())
		components[hc.Name] = res

		switch res.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall != "unhealthy" {
				overall = "degraded"
			}
		}
	}

	stats := make(map[string]interface{}, len(h.stats))
	for name, fn := range h.stats {
		stats[name] = fn()
	}

	response.Success(c, DetailedHealthResponse{
		Status:        overall,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now(),
		Components:    components,
		Stats:         stats,
	})
}

// PostgresCheck reports pool health
func PostgresCheck(pool *postgres.Pool) HealthCheck {
	return HealthCheck{
		Name: "database",
		Check: func(ctx context.Context) ComponentHealth {
			st := pool.Health(ctx)
			return ComponentHealth{
				Status:       st.Status,
				ResponseTime: st.ResponseTime,
				Message:      st.Error,
				Details: map[string]interface{}{
					"active_conns": st.ActiveConns,
					"idle_conns":   st.IdleConns,
					"total_conns":  st.TotalConns,
					"max_conns":    st.MaxConns,
				},
			}
		},
	}
}

// RedisCheck pings redis
func RedisCheck(client redis.UniversalClient) HealthCheck {
	return HealthCheck{
		Name: "redis",
		Check: func(ctx context.Context) ComponentHealth {
			start := time.Now()
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()

			res := ComponentHealth{Status: "healthy"}
			if err := client.Ping(ctx).Err(); err != nil {
				res.Status = "unhealthy"
				res.Message = err.Error()
			}
			res.ResponseTime = time.Since(start).String()
			return res
		},
	}
}

// ManagerCheck is unhealthy while the watchlist manager is stopped
func ManagerCheck(running func() bool) HealthCheck {
	return HealthCheck{
		Name: "watchlist",
		Check: func(ctx context.Context) ComponentHealth {
			if running() {
				return ComponentHealth{Status: "healthy"}
			}
			return ComponentHealth{Status: "unhealthy", Message: "watchlist manager not running"}
		},
	}
}
