package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/api/v1/health/detailed", h.Detailed)
	return r
}

func staticCheck(name, status string) HealthCheck {
	return HealthCheck{Name: name, Check: func(context.Context) ComponentHealth {
		return ComponentHealth{Status: status}
	}}
}

func TestHealthHandler_Health(t *testing.T) {
	w := do(healthRouter(NewHealthHandler("test")), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_Ready(t *testing.T) {
	w := do(healthRouter(NewHealthHandler("test", staticCheck("db", "degraded"))), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(healthRouter(NewHealthHandler("test", staticCheck("db", "unhealthy"))), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"db":"error"`)
}

func TestHealthHandler_Detailed(t *testing.T) {
	running := true
	h := NewHealthHandler("1.2.3", staticCheck("db", "degraded"), ManagerCheck(func() bool { return running }))
	h.AddStats("search_cache", func() interface{} { return map[string]int{"size": 2} })
	r := healthRouter(h)

	var got DetailedHealthResponse
	decodeData(t, do(r, http.MethodGet, "/api/v1/health/detailed", ""), &got)
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "1.2.3", got.Version)
	assert.Equal(t, "healthy", got.Components["watchlist"].Status)
	assert.Contains(t, got.Stats, "search_cache")

	running = false
	decodeData(t, do(r, http.MethodGet, "/api/v1/health/detailed", ""), &got)
	assert.Equal(t, "unhealthy", got.Status)
}

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	check := RedisCheck(client)
	require.Equal(t, "redis", check.Name)
	assert.Equal(t, "healthy", check.Check(context.Background()).Status)

	mr.Close()
	assert.Equal(t, "unhealthy", check.Check(context.Background()).Status)
}
