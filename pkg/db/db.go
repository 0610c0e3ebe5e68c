// Package db provides the PostgreSQL connection pool used for report history.
package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection configuration. When URL is set it is
// used as-is and the individual connection fields are ignored.
type Config struct {
	URL             string
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	// ConnectAttempts bounds ConnectWithRetry; 1 means no retry.
	ConnectAttempts int
	// RetryDelay is the first backoff, doubled per attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// ErrInvalidConfig is returned by Connect when the configuration cannot
// describe a database. Retrying does not help.
var ErrInvalidConfig = errors.New("invalid database config")

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "focusflow",
		User:            "focusflow",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		ConnectAttempts: 1,
		RetryDelay:      time.Second,
		MaxRetryDelay:   30 * time.Second,
	}
}

// ConfigFromEnv creates a Config from environment variables.
// Environment variables:
//   - FOCUSFLOW_DATABASE_URL: full connection URL (overrides the rest)
//   - FOCUSFLOW_DB_HOST: Database host (default: localhost)
//   - FOCUSFLOW_DB_PORT: Database port (default: 5432)
//   - FOCUSFLOW_DB_NAME: Database name (default: focusflow)
//   - FOCUSFLOW_DB_USER: Database user (default: focusflow)
//   - FOCUSFLOW_DB_PASSWORD: Database password
//   - FOCUSFLOW_DB_SSLMODE: SSL mode (default: disable)
//   - FOCUSFLOW_DB_MAX_CONNS: Maximum connections (default: 10)
//   - FOCUSFLOW_DB_CONNECT_ATTEMPTS: Connection attempts before giving up (default: 1)
//   - FOCUSFLOW_DB_RETRY_DELAY: First retry delay, e.g. 2s (default: 1s)
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if u := os.Getenv("FOCUSFLOW_DATABASE_URL"); u != "" {
		cfg.URL = u
	}
	if host := os.Getenv("FOCUSFLOW_DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("FOCUSFLOW_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if database := os.Getenv("FOCUSFLOW_DB_NAME"); database != "" {
		cfg.Database = database
	}
	if user := os.Getenv("FOCUSFLOW_DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("FOCUSFLOW_DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if sslmode := os.Getenv("FOCUSFLOW_DB_SSLMODE"); sslmode != "" {
		cfg.SSLMode = sslmode
	}
	if maxConns := os.Getenv("FOCUSFLOW_DB_MAX_CONNS"); maxConns != "" {
		if mc, err := strconv.ParseInt(maxConns, 10, 32); err == nil {
			cfg.MaxConns = int32(mc)
		}
	}
	if attempts := os.Getenv("FOCUSFLOW_DB_CONNECT_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil && n > 0 {
			cfg.ConnectAttempts = n
		}
	}
	if delay := os.Getenv("FOCUSFLOW_DB_RETRY_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d > 0 {
			cfg.RetryDelay = d
		}
	}

	return cfg
}

// ConnectionString builds a PostgreSQL connection string from the config.
func (c *Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// Validate checks if the config has required fields set.
func (c *Config) Validate() error {
	if c.MaxConns < c.MinConns {
		return fmt.Errorf("max connections (%d) must be >= min connections (%d)", c.MaxConns, c.MinConns)
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("invalid database url: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("database url must use postgres://, got %q", u.Scheme)
		}
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	return nil
}

// Connect creates a new connection pool with the given configuration.
// The caller is responsible for calling pool.Close() when done.
func Connect(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify the connection works
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RetryFunc is told about each failed attempt before ConnectWithRetry waits.
type RetryFunc func(attempt int, wait time.Duration, err error)

// ConnectWithRetry connects like Connect, retrying up to cfg.ConnectAttempts
// times with exponential backoff. Invalid configuration fails immediately.
// onRetry may be nil.
func ConnectWithRetry(ctx context.Context, cfg *Config, onRetry RetryFunc) (*pgxpool.Pool, error) {
	return connectWithRetry(ctx, cfg, Connect, onRetry)
}

func connectWithRetry(ctx context.Context, cfg *Config, connect func(context.Context, *Config) (*pgxpool.Pool, error), onRetry RetryFunc) (*pgxpool.Pool, error) {
	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	wait := cfg.RetryDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		pool, err := connect(ctx, cfg)
		if err == nil {
			return pool, nil
		}
		if errors.Is(err, ErrInvalidConfig) || attempt >= attempts {
			lastErr = err
			break
		}
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-timer.C:
		}
		wait *= 2
		if cfg.MaxRetryDelay > 0 && wait > cfg.MaxRetryDelay {
			wait = cfg.MaxRetryDelay
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, lastErr)
}

// Close gracefully closes a connection pool if it is not nil.
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
