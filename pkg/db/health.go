package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoPool is returned when a health check runs without a database.
var ErrNoPool = errors.New("pool is nil")

// HealthStatus is the /healthz view of the report database.
type HealthStatus struct {
	Healthy       bool    `json:"healthy"`
	LatencyMS     float64 `json:"latency_ms"`
	TotalConns    int32   `json:"total_conns"`
	IdleConns     int32   `json:"idle_conns"`
	AcquiredConns int32   `json:"acquired_conns"`
	Error         string  `json:"error,omitempty"`
}

// Ping checks if the database is reachable within timeout. A zero timeout
// relies on ctx alone.
func Ping(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if pool == nil {
		return ErrNoPool
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

// Check pings the pool and reports latency and connection counts.
func Check(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) *HealthStatus {
	start := time.Now()
	err := Ping(ctx, pool, timeout)
	status := &HealthStatus{LatencyMS: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		status.Error = "ping failed: " + err.Error()
		return status
	}

	stats := pool.Stat()
	status.Healthy = true
	status.TotalConns = stats.TotalConns()
	status.IdleConns = stats.IdleConns()
	status.AcquiredConns = stats.AcquiredConns()
	return status
}
