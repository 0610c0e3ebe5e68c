package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/focusflow/config"
	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/watcher"
)

// watchOptions holds the watch command flags.
type watchOptions struct {
	workers       int
	noInitialScan bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Analyze transcripts as they appear in a directory",
		Long: `Watch a directory and analyze every transcript that has an agenda sidecar.

A transcript named <name>.srt, .vtt, .txt or .json (or a recording such as
<name>.m4a) is analyzed when <name>.agenda.txt exists next to it. The agenda
may arrive before or after the transcript. Editing either file re-runs the
analysis.

Each result is printed as one line. Reports are stored when database.url is
configured.`,
		Example: `  focusflow watch ~/Meetings
  focusflow watch ./inbox --workers 4 --no-initial-scan`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), deps, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent analyses (default: watch.workers from config)")
	cmd.Flags().BoolVar(&opts.noInitialScan, "no-initial-scan", false, "Skip transcripts already in the directory")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, deps *Deps, opts *watchOptions, dir string) error {
	dir, err := expandDir(dir)
	if err != nil {
		return err
	}

	cfg, rt, err := deps.runtime(ctx, RuntimeOptions{Store: true, WaitForDatabase: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	workers := cfg.Watch.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	logger := deps.Logger()
	handler := newJobHandler(rt, out, logger)
	w, err := watcher.New(dir, handler,
		watcher.WithLogger(logger),
		watcher.WithMetrics(rt.Metrics),
		watcher.WithMaxConcurrent(workers),
		watcher.WithInitialScan(!opts.noInitialScan))
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	logger.Info("Watching directory",
		logging.F("dir", dir),
		logging.F("workers", workers),
		logging.F("store", rt.Store != nil))
	return w.Run(ctx)
}

// newJobHandler analyzes a job, stores the report when a store is
// configured and prints one result line.
func newJobHandler(rt *Runtime, out io.Writer, logger logging.Logger) watcher.Handler {
	var mu sync.Mutex
	return func(ctx context.Context, job *meeting.Job) error {
		agendaText, in, err := jobInput(job)
		if err != nil {
			return err
		}

		report, err := rt.Analyzer.Analyze(ctx, agendaText, in)
		if err != nil {
			mu.Lock()
			fmt.Fprintf(out, "%s✗%s %s: %v\n", colorRed, colorReset, job.Title, err)
			mu.Unlock()
			return err
		}

		if rt.Store != nil {
			if err := rt.Store.Save(ctx, report); err != nil {
				logger.Error("Failed to store report", logging.Err(err), logging.F("report_id", report.ID))
			}
		}

		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, resultLine(report))
		return nil
	}
}

// jobInput reads the agenda and transcript of a job.
func jobInput(job *meeting.Job) (string, meeting.TranscriptInput, error) {
	agendaText, err := os.ReadFile(job.AgendaPath)
	if err != nil {
		return "", meeting.TranscriptInput{}, fmt.Errorf("reading agenda: %w", err)
	}

	if job.AudioPath != "" {
		return string(agendaText), meeting.TranscriptInput{
			Kind:      meeting.KindSpeech,
			Name:      job.Title,
			AudioPath: job.AudioPath,
		}, nil
	}

	data, err := os.ReadFile(job.TranscriptPath)
	if err != nil {
		return "", meeting.TranscriptInput{}, fmt.Errorf("reading transcript: %w", err)
	}
	kind := job.Kind
	if kind == "" || kind == meeting.KindAuto {
		kind = meeting.DetectKind(job.TranscriptPath, data)
	}
	return string(agendaText), meeting.TranscriptInput{Kind: kind, Name: job.Title, Data: data}, nil
}

// resultLine is the one-line summary printed for each analyzed meeting.
func resultLine(r *analysis.Report) string {
	line := fmt.Sprintf("%s✓%s %s  score %s%d%s  tangents %d",
		colorGreen, colorReset, r.Title, scoreColor(r.Score), r.Score, colorReset, len(r.Tangents))
	if r.Timed {
		line += fmt.Sprintf(" (%.1f min)", r.TangentMinutes())
	}
	if n := len(r.Actions); n > 0 {
		line += fmt.Sprintf("  actions %d", n)
	}
	return line + "  " + r.ID
}

func expandDir(dir string) (string, error) {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", expanded)
	}
	return expanded, nil
}
