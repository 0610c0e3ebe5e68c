package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPing_NilPool(t *testing.T) {
	err := Ping(context.Background(), nil, time.Second)
	if !errors.Is(err, ErrNoPool) {
		t.Errorf("expected ErrNoPool, got %v", err)
	}
}

func TestCheck_NilPool(t *testing.T) {
	status := Check(context.Background(), nil, time.Second)

	if status.Healthy {
		t.Error("expected unhealthy status for nil pool")
	}
	if !strings.Contains(status.Error, ErrNoPool.Error()) {
		t.Errorf("expected error to mention the missing pool, got %q", status.Error)
	}
	if status.TotalConns != 0 {
		t.Errorf("expected no connection stats, got %d", status.TotalConns)
	}
}
