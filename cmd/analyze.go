package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
)

// analyzeOptions holds the analyze command flags.
type analyzeOptions struct {
	agendaPath     string
	transcriptPath string
	audioPath      string
	mode           string
	title          string
	store          bool
}

// agendaExample is shown in the analyze help.
const agendaExample = `  Roadmap review (15m)
  Hiring update - 5m
  Open questions
`

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a meeting against its agenda",
		Long: `Analyze a meeting transcript against its agenda.

The agenda is one item per line, optionally annotated with planned minutes:

` + agendaExample + `
The transcript can be transcription JSON, SRT/WebVTT subtitles or plain text.
With --audio the recording is transcribed first using the configured Whisper
service.

The report contains per-item coverage, off-topic spans, a focus score from 0
to 100 and an AI summary with decisions and action items.`,
		Example: `  # Subtitles with a sibling agenda file
  focusflow analyze --agenda standup.agenda.txt --transcript standup.vtt

  # Read the agenda from stdin and print JSON
  cat agenda.txt | focusflow analyze --agenda - --transcript notes.txt -o json

  # Transcribe a recording and keep the report in the history table
  focusflow analyze --agenda plan.txt --audio weekly.m4a --store`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, deps, opts)
		},
	}

	cmd.Flags().StringVar(&opts.agendaPath, "agenda", "", "Agenda file, or - for stdin (required)")
	cmd.Flags().StringVar(&opts.transcriptPath, "transcript", "", "Transcript file (.json, .srt, .vtt, .txt)")
	cmd.Flags().StringVar(&opts.audioPath, "audio", "", "Audio recording to transcribe")
	cmd.Flags().StringVar(&opts.mode, "mode", "auto", "Transcript mode: auto, speech, cue, plain")
	cmd.Flags().StringVar(&opts.title, "title", "", "Meeting title (default: derived from the file name)")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Save the report to the configured database")
	cmd.MarkFlagRequired("agenda")
	cmd.MarkFlagsMutuallyExclusive("transcript", "audio")
	cmd.MarkFlagsOneRequired("transcript", "audio")

	return cmd
}

func runAnalyze(cmd *cobra.Command, deps *Deps, opts *analyzeOptions) error {
	ctx := cmd.Context()

	agendaText, err := readAgenda(opts.agendaPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	in, err := opts.transcriptInput()
	if err != nil {
		return err
	}

	cfg, rt, err := deps.runtime(ctx, RuntimeOptions{Store: opts.store, RequireStore: opts.store})
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.Analyzer.Analyze(ctx, agendaText, in)
	if err != nil {
		return describeAnalysisError(err)
	}

	if opts.store && rt.Store != nil {
		if err := rt.Store.Save(ctx, report); err != nil {
			return fmt.Errorf("storing report %s: %w", report.ID, err)
		}
		deps.Logger().Info("Report stored", logging.F("report_id", report.ID))
	}

	return writeOutput(cmd.OutOrStdout(), cfg.OutputFormat, report, func(w io.Writer) error {
		return printReport(w, report)
	})
}

// transcriptInput reads the transcript file, or points at the recording
// when --audio is given.
func (o *analyzeOptions) transcriptInput() (meeting.TranscriptInput, error) {
	kind, ok := meeting.ParseKind(o.mode)
	if !ok {
		return meeting.TranscriptInput{}, fferrors.Input(fferrors.ErrUnsupportedMode, "%q (use auto, speech, cue or plain)", o.mode)
	}

	source := o.transcriptPath
	if o.audioPath != "" {
		source = o.audioPath
	}
	title := o.title
	if title == "" {
		base := filepath.Base(source)
		title = meeting.NormalizeTitle(strings.TrimSuffix(base, filepath.Ext(base)))
	}

	if o.audioPath != "" {
		if _, err := os.Stat(o.audioPath); err != nil {
			return meeting.TranscriptInput{}, fferrors.Input(fferrors.ErrMissingInput, "audio: %v", err)
		}
		return meeting.TranscriptInput{Kind: meeting.KindSpeech, Name: title, AudioPath: o.audioPath}, nil
	}

	data, err := os.ReadFile(o.transcriptPath)
	if err != nil {
		return meeting.TranscriptInput{}, fferrors.Input(fferrors.ErrMissingInput, "transcript: %v", err)
	}
	if kind == meeting.KindAuto {
		kind = meeting.DetectKind(o.transcriptPath, data)
	}
	return meeting.TranscriptInput{Kind: kind, Name: title, Data: data}, nil
}

// readAgenda reads the agenda file, or stdin when path is "-".
func readAgenda(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		var b strings.Builder
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			b.WriteString(scanner.Text())
			b.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading agenda from stdin: %w", err)
		}
		return b.String(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fferrors.Input(fferrors.ErrMissingInput, "agenda: %v", err)
	}
	return string(data), nil
}

// describeAnalysisError appends the registry's suggested action to
// classified service failures.
func describeAnalysisError(err error) error {
	var ae *fferrors.AnalysisError
	if !errors.As(err, &ae) {
		return err
	}
	if action := fferrors.GetSuggestedAction(ae.Code); action != "" {
		return fmt.Errorf("%w\n  hint: %s", err, action)
	}
	return err
}
