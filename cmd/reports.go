package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/focusflow/pkg/db"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
	"github.com/otherjamesbrown/focusflow/pkg/reports"
)

// NewReportsCommand creates the reports command for browsing stored reports.
func NewReportsCommand(deps *DbCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDbDeps()
	}

	cmd := &cobra.Command{
		Use:     "reports",
		Short:   "Browse stored reports",
		Long:    `List and show reports saved with 'focusflow analyze --store', 'focusflow watch' or 'focusflow serve'.`,
		Aliases: []string{"report"},
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReportStore(cmd.Context(), deps, func(store reports.Store, format func(v any, text func(io.Writer) error) error) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return format(entries, func(w io.Writer) error { return printEntries(w, entries) })
			}, cmd.OutOrStdout())
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", reports.DefaultListLimit, "Maximum number of reports")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReportStore(cmd.Context(), deps, func(store reports.Store, format func(v any, text func(io.Writer) error) error) error {
				report, err := store.Get(cmd.Context(), args[0])
				if fferrors.IsNotFound(err) {
					return fmt.Errorf("report %s not found", args[0])
				}
				if err != nil {
					return err
				}
				return format(report, func(w io.Writer) error { return printReport(w, report) })
			}, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

// withReportStore connects to the configured report table and runs fn with
// an output helper bound to the configured format.
func withReportStore(ctx context.Context, deps *DbCommandDeps, fn func(reports.Store, func(any, func(io.Writer) error) error) error, out io.Writer) error {
	cfg, pool, store, err := deps.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close(pool)

	return fn(store, func(v any, text func(io.Writer) error) error {
		return writeOutput(out, cfg.OutputFormat, v, text)
	})
}
