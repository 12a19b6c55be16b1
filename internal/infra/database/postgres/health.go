package postgres

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus reports reachability, pool usage and whether the watchlist
// table exists
type HealthStatus struct {
	Status       string    `json:"status"` // healthy, degraded, unhealthy
	ResponseTime string    `json:"response_time"`
	SchemaReady  bool      `json:"schema_ready"`
	ActiveConns  int32     `json:"active_conns"`
	IdleConns    int32     `json:"idle_conns"`
	TotalConns   int32     `json:"total_conns"`
	MaxConns     int32     `json:"max_conns"`
	CheckedAt    time.Time `json:"checked_at"`
	Error        string    `json:"error,omitempty"`
}

// Health checks the watchlist table is reachable.
// A missing table or a pool with no spare connection is degraded, not down.
func (p *Pool) Health(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{CheckedAt: start, Status: "healthy"}
	defer func() { status.ResponseTime = time.Since(start).String() }()

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ready, err := schemaReady(checkCtx, p)
	if err != nil {
		status.Status = "unhealthy"
		status.Error = fmt.Sprintf("query failed: %v", err)
		return status
	}
	status.SchemaReady = ready

	stats := p.Stat()
	status.ActiveConns = stats.AcquiredConns()
	status.IdleConns = stats.IdleConns()
	status.TotalConns = stats.TotalConns()
	status.MaxConns = stats.MaxConns()

	switch {
	case !ready:
		status.Status = "degraded"
		status.Error = "watchlist.stocks missing, run stockwatch migrate"
	case stats.AcquiredConns() >= stats.MaxConns()-1:
		// the LISTEN loop holds one connection for the life of the store
		status.Status = "degraded"
		status.Error = "connection pool nearly exhausted"
	}

	return status
}

func schemaReady(ctx context.Context, p *Pool) (bool, error) {
	var ready bool
	err := p.QueryRow(ctx, `SELECT to_regclass('watchlist.stocks') IS NOT NULL`).Scan(&ready)
	return ready, err
}
