package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/focusflow/config"
	"github.com/otherjamesbrown/focusflow/pkg/db"
	"github.com/otherjamesbrown/focusflow/pkg/reports"
)

// DbCommandDeps holds the dependencies for database commands.
type DbCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	ConnectToDB func(context.Context, *config.CLIConfig) (*pgxpool.Pool, error)
}

// DefaultDbDeps returns the default dependencies for production use.
func DefaultDbDeps() *DbCommandDeps {
	return &DbCommandDeps{
		LoadConfig:  config.LoadConfig,
		ConnectToDB: connectToDatabase,
	}
}

// migrationStatusOutput is the machine-readable view of db status.
type migrationStatusOutput struct {
	Table   string                 `json:"table" yaml:"table"`
	Applied []migrationStatusEntry `json:"applied" yaml:"applied"`
	Pending []migrationStatusEntry `json:"pending" yaml:"pending"`
}

type migrationStatusEntry struct {
	Version   string `json:"version" yaml:"version"`
	Name      string `json:"name" yaml:"name"`
	AppliedAt string `json:"applied_at,omitempty" yaml:"applied_at,omitempty"`
}

// NewDbCommand creates the root db command with all subcommands.
func NewDbCommand(deps *DbCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDbDeps()
	}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Report database management",
		Long: `Manage the Postgres table that keeps report history.

The table name comes from database.table (default meeting_reports). Applied
migrations are tracked per table in schema_migrations, so several tables can
share one database.

'focusflow serve' and 'focusflow analyze --store' migrate automatically; these
commands are for inspecting or preparing a database ahead of time.`,
		Aliases: []string{"database"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the report table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDbMigrate(cmd.Context(), cmd.OutOrStdout(), deps)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show report table migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDbStatus(cmd.Context(), cmd.OutOrStdout(), deps)
		},
	})
	return cmd
}

func (d *DbCommandDeps) openStore(ctx context.Context) (*config.CLIConfig, *pgxpool.Pool, *reports.PostgresStore, error) {
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	pool, err := d.ConnectToDB(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, pool, reports.NewPostgresStore(pool, cfg.Database.Table, nil), nil
}

func runDbMigrate(ctx context.Context, out io.Writer, deps *DbCommandDeps) error {
	_, pool, store, err := deps.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close(pool)

	result, err := store.Migrate(ctx)
	if err != nil {
		fmt.Fprintf(out, "%sMigration failed:%s %v\n", colorRed, colorReset, err)
		if result != nil {
			for _, v := range result.Applied {
				fmt.Fprintf(out, "  %s✓%s %s\n", colorGreen, colorReset, v)
			}
		}
		return err
	}

	if len(result.Applied) == 0 {
		fmt.Fprintf(out, "Table %s is up to date.\n", store.Table())
		return nil
	}
	fmt.Fprintf(out, "%sApplied %d migration(s) to %s:%s\n", colorGreen, len(result.Applied), store.Table(), colorReset)
	for _, v := range result.Applied {
		fmt.Fprintf(out, "  %s✓%s %s\n", colorGreen, colorReset, v)
	}
	return nil
}

func runDbStatus(ctx context.Context, out io.Writer, deps *DbCommandDeps) error {
	cfg, pool, store, err := deps.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close(pool)

	status, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("getting migration status: %w", err)
	}

	view := migrationStatusOutput{
		Table:   store.Table(),
		Applied: statusEntries(status.Applied),
		Pending: statusEntries(status.Pending),
	}
	return writeOutput(out, cfg.OutputFormat, view, func(w io.Writer) error {
		fmt.Fprintf(w, "Report table: %s\n\n", view.Table)
		fmt.Fprintf(w, "Applied (%d):\n", len(view.Applied))
		for _, e := range view.Applied {
			fmt.Fprintf(w, "  %s✓%s %s %s  %s%s%s\n", colorGreen, colorReset, e.Version, e.Name, colorDim, e.AppliedAt, colorReset)
		}
		fmt.Fprintf(w, "Pending (%d):\n", len(view.Pending))
		for _, e := range view.Pending {
			fmt.Fprintf(w, "  %s•%s %s %s\n", colorYellow, colorReset, e.Version, e.Name)
		}
		if len(view.Pending) > 0 {
			fmt.Fprintln(w, "\nRun 'focusflow db migrate' to apply.")
		}
		return nil
	})
}

func statusEntries(in []db.MigrationStatusEntry) []migrationStatusEntry {
	out := make([]migrationStatusEntry, 0, len(in))
	for _, e := range in {
		entry := migrationStatusEntry{Version: e.Version, Name: e.Name}
		if e.AppliedAt != nil {
			entry.AppliedAt = e.AppliedAt.Format("2006-01-02 15:04:05")
		}
		out = append(out, entry)
	}
	return out
}
