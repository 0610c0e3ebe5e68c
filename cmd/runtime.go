// Package cmd provides CLI commands for the focusflow tool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/focusflow/config"
	"github.com/otherjamesbrown/focusflow/credentials"
	"github.com/otherjamesbrown/focusflow/pkg/ai"
	"github.com/otherjamesbrown/focusflow/pkg/ai/embedcache"
	"github.com/otherjamesbrown/focusflow/pkg/ai/gemini"
	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/asr/whisper"
	"github.com/otherjamesbrown/focusflow/pkg/db"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/observability"
	"github.com/otherjamesbrown/focusflow/pkg/reports"
)

// MetricsNamespace prefixes the database pool metrics.
const MetricsNamespace = "focusflow"

// Feature names reported by /version.
const (
	FeatureEmbeddingCache = "embedding_cache"
	FeaturePostgresStore  = "report_store_postgres"
	FeatureMemoryStore    = "report_store_memory"
	FeatureTranscription  = "transcription"
)

// RuntimeOptions selects the optional services a command needs.
type RuntimeOptions struct {
	// ServiceName labels pool metrics.
	ServiceName string
	// Store connects the Postgres report store when a database is configured.
	Store bool
	// RequireStore fails when Store is set and no database is configured.
	RequireStore bool
	// MemoryStore falls back to an in-memory store when no database is configured.
	MemoryStore bool
	// WaitForDatabase retries the first connection for long-running commands.
	WaitForDatabase bool
}

// longRunningConnectAttempts is the minimum number of connection attempts
// for serve and watch, so they outlast a database that is still starting.
const longRunningConnectAttempts = 8

// Runtime is the set of services behind an analysis command.
type Runtime struct {
	Analyzer *analysis.Analyzer
	Store    reports.Store
	Pool     *pgxpool.Pool
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Features []string

	closers []func()
}

// Close releases connections in reverse order of creation.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// Deps holds the dependencies shared by the analysis commands.
type Deps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	Credentials func() (*credentials.Credentials, error)
	NewRuntime  func(ctx context.Context, cfg *config.CLIConfig, creds *credentials.Credentials, logger logging.Logger, opts RuntimeOptions) (*Runtime, error)
	Logger      func() logging.Logger
}

// DefaultDeps returns the default dependencies for production use.
func DefaultDeps() *Deps {
	return &Deps{
		LoadConfig:  config.LoadConfig,
		Credentials: loadCredentials,
		NewRuntime:  NewRuntime,
		Logger:      logging.MustGlobal,
	}
}

func (d *Deps) withDefaults() *Deps {
	out := *DefaultDeps()
	if d == nil {
		return &out
	}
	if d.LoadConfig != nil {
		out.LoadConfig = d.LoadConfig
	}
	if d.Credentials != nil {
		out.Credentials = d.Credentials
	}
	if d.NewRuntime != nil {
		out.NewRuntime = d.NewRuntime
	}
	if d.Logger != nil {
		out.Logger = d.Logger
	}
	return &out
}

// runtime loads config and credentials and builds the services.
func (d *Deps) runtime(ctx context.Context, opts RuntimeOptions) (*config.CLIConfig, *Runtime, error) {
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	creds, err := d.Credentials()
	if err != nil {
		return nil, nil, fmt.Errorf("loading credentials: %w", err)
	}
	rt, err := d.NewRuntime(ctx, cfg, creds, d.Logger(), opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rt, nil
}

// loadCredentials prefers environment keys so that CI hosts without a
// keyring never touch the credential store.
func loadCredentials() (*credentials.Credentials, error) {
	if env := credentials.FromEnv(nil); len(env.GeminiAPIKeys) > 0 {
		return env, nil
	}
	store, err := credentials.NewStore()
	if err != nil {
		return nil, err
	}
	return store.Active()
}

// NewRuntime wires the Gemini client, the optional Redis embedding cache, the
// Whisper transcriber and the optional report store into an analyzer.
func NewRuntime(ctx context.Context, cfg *config.CLIConfig, creds *credentials.Credentials, logger logging.Logger, opts RuntimeOptions) (*Runtime, error) {
	if creds == nil {
		creds = &credentials.Credentials{}
	}
	registry := prometheus.NewRegistry()
	rt := &Runtime{
		Registry: registry,
		Metrics:  observability.NewMetrics(registry),
	}

	gem, err := gemini.New(gemini.Config{
		APIKeys:        creds.GeminiAPIKeys,
		EmbeddingModel: cfg.Gemini.EmbeddingModel,
		ChatModel:      cfg.Gemini.ChatModel,
		Temperature:    cfg.Gemini.Temperature,
		BaseURL:        cfg.Gemini.BaseURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'focusflow auth login' or set %s)", err, credentials.EnvGeminiAPIKey)
	}

	var embedder ai.Embedder = gem
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { client.Close() })
		embedder = embedcache.New(client, gem, gem.EmbeddingModel(),
			embedcache.WithTTL(cfg.Redis.TTL),
			embedcache.WithLogger(logger),
			embedcache.WithMetrics(rt.Metrics))
		rt.Features = append(rt.Features, FeatureEmbeddingCache)
	}

	transcriber := whisper.NewClient(whisper.Config{
		BaseURL:  cfg.Whisper.URL,
		APIKey:   creds.WhisperAPIKey,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
		Timeout:  cfg.Whisper.Timeout,
		Retries:  cfg.Whisper.Retries,
	}, logger)
	rt.Features = append(rt.Features, FeatureTranscription)

	rt.Analyzer = analysis.NewAnalyzer(embedder, gem,
		analysis.WithTranscriber(transcriber),
		analysis.WithConfig(cfg.Analysis),
		analysis.WithTimeout(cfg.Timeout),
		analysis.WithLogger(logger),
		analysis.WithMetrics(rt.Metrics))

	switch {
	case opts.Store && cfg.Database.Enabled():
		if err := rt.openPostgres(ctx, cfg, logger, opts); err != nil {
			rt.Close()
			return nil, err
		}
	case opts.MemoryStore:
		rt.Store = reports.NewMemoryStore()
		rt.Features = append(rt.Features, FeatureMemoryStore)
	case opts.Store && opts.RequireStore:
		rt.Close()
		return nil, errors.New("report storage needs database.url (set FOCUSFLOW_DATABASE_URL or 'focusflow config set database.url ...')")
	}

	return rt, nil
}

func (r *Runtime) openPostgres(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger, opts RuntimeOptions) error {
	pool, err := dialDatabase(ctx, databaseConfig(cfg, opts.WaitForDatabase), logger)
	if err != nil {
		return err
	}
	r.closers = append(r.closers, func() { db.Close(pool) })

	store := reports.NewPostgresStore(pool, cfg.Database.Table, logger)
	if _, err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating report table %s: %w", store.Table(), err)
	}
	if opts.ServiceName != "" {
		if _, err := db.RegisterPoolStatsCollector(pool, MetricsNamespace, opts.ServiceName, r.Registry); err != nil {
			return fmt.Errorf("registering pool metrics: %w", err)
		}
	}

	r.Pool = pool
	r.Store = store
	r.Features = append(r.Features, FeaturePostgresStore)
	return nil
}

// connectToDatabase opens a pool for the configured database URL.
func connectToDatabase(ctx context.Context, cfg *config.CLIConfig) (*pgxpool.Pool, error) {
	return dialDatabase(ctx, databaseConfig(cfg, false), logging.NewNopLogger())
}

// databaseConfig merges the config file's database URL over the
// FOCUSFLOW_DB_* environment. wait raises the connection attempts for
// long-running commands.
func databaseConfig(cfg *config.CLIConfig, wait bool) *db.Config {
	dbCfg := db.ConfigFromEnv()
	if cfg.Database.URL != "" {
		dbCfg.URL = cfg.Database.URL
	}
	if wait && dbCfg.ConnectAttempts < longRunningConnectAttempts {
		dbCfg.ConnectAttempts = longRunningConnectAttempts
	}
	return dbCfg
}

func dialDatabase(ctx context.Context, dbCfg *db.Config, logger logging.Logger) (*pgxpool.Pool, error) {
	pool, err := db.ConnectWithRetry(ctx, dbCfg, func(attempt int, wait time.Duration, err error) {
		logger.Warn("Database not reachable, retrying",
			logging.F("attempt", attempt),
			logging.F("max_attempts", dbCfg.ConnectAttempts),
			logging.F("retry_in", wait.String()),
			logging.Err(err))
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}
