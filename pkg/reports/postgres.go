package reports

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/db"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
)

// DefaultTable is the report table name.
const DefaultTable = "meeting_reports"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// PostgresStore keeps reports in a Postgres table with the full report as JSONB.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	quoted string
	logger logging.Logger
}

// NewPostgresStore creates a store over table (DefaultTable when empty).
func NewPostgresStore(pool *pgxpool.Pool, table string, logger logging.Logger) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = logging.MustGlobal()
	}
	return &PostgresStore{
		pool:   pool,
		table:  table,
		quoted: pq.QuoteIdentifier(table),
		logger: logger.With(logging.F("component", "report_store"), logging.F("table", table)),
	}
}

// Table returns the unquoted table name.
func (s *PostgresStore) Table() string {
	return s.table
}

// Migrate creates the report table and its indexes.
func (s *PostgresStore) Migrate(ctx context.Context) (*db.MigrationResult, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	result, err := db.RunMigrations(ctx, s.pool, src)
	if err != nil {
		return result, err
	}
	if len(result.Applied) > 0 {
		s.logger.Info("Report schema migrated", logging.F("applied", result.Applied))
	}
	return result, nil
}

// MigrationStatus lists applied and pending schema migrations for the table.
func (s *PostgresStore) MigrationStatus(ctx context.Context) (*db.MigrationStatus, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	return db.GetMigrationStatus(ctx, s.pool, src)
}

func (s *PostgresStore) source() (db.Source, error) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return db.Source{}, err
	}
	return db.Source{FS: sub, Namespace: s.table, Expand: s.expand}, nil
}

// expand substitutes the quoted table and index names into migration SQL.
func (s *PostgresStore) expand(sql string) string {
	return strings.NewReplacer(
		"{{table}}", s.quoted,
		"{{index_created_at}}", pq.QuoteIdentifier(s.table+"_created_at_idx"),
	).Replace(sql)
}

// Save inserts or replaces a report.
func (s *PostgresStore) Save(ctx context.Context, r *analysis.Report) error {
	if r == nil || r.ID == "" {
		return fferrors.Input(fferrors.ErrMissingInput, "report id is required")
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO ` + s.quoted + ` (id, title, score, timed, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			score = EXCLUDED.score,
			timed = EXCLUDED.timed,
			report = EXCLUDED.report
	`
	if _, err := s.pool.Exec(ctx, query, r.ID, r.Title, r.Score, r.Timed, body, r.CreatedAt); err != nil {
		s.logger.Error("Failed to save report", logging.Err(err), logging.F("report_id", r.ID))
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Get loads one report by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*analysis.Report, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM `+s.quoted+` WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var r analysis.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &r, nil
}

// List returns the newest reports first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, score, timed, created_at
		FROM `+s.quoted+`
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Score, &e.Timed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
