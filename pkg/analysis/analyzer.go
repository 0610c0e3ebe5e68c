package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/otherjamesbrown/focusflow/pkg/agenda"
	"github.com/otherjamesbrown/focusflow/pkg/ai"
	"github.com/otherjamesbrown/focusflow/pkg/asr"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/observability"
)

// Analysis outcome labels.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// Analyzer runs the external stages (transcription, embedding and
// summarization) around the pure Compute core.
type Analyzer struct {
	embedder    ai.Embedder
	summarizer  ai.Summarizer
	transcriber asr.Transcriber
	config      Config
	timeout     time.Duration
	logger      logging.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	now         func() time.Time
	newID       func() string
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithTranscriber enables audio inputs.
func WithTranscriber(t asr.Transcriber) Option {
	return func(a *Analyzer) {
		a.transcriber = t
	}
}

// WithConfig sets the analysis constants. Zero fields take defaults.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) {
		a.config = cfg.WithDefaults()
	}
}

// WithTimeout bounds a whole Analyze call. Zero means no limit beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		a.timeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithTracer sets the span tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(a *Analyzer) {
		a.tracer = t
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithIDGenerator overrides report ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(a *Analyzer) {
		a.newID = newID
	}
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(embedder ai.Embedder, summarizer ai.Summarizer, opts ...Option) *Analyzer {
	a := &Analyzer{
		embedder:   embedder,
		summarizer: summarizer,
		config:     DefaultConfig(),
		logger:     logging.MustGlobal(),
		tracer:     observability.NewTracer(),
		now:        time.Now,
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.logger = a.logger.With(logging.F("component", "analyzer"))
	return a
}

// Config returns the effective analysis constants.
func (a *Analyzer) Config() Config {
	return a.config
}

// Analyze parses the agenda, normalizes the transcript (transcribing audio
// first when needed), embeds and summarizes it and computes the report.
//
// Input problems return errors wrapping ErrValidation and one of
// ErrEmptyAgenda, ErrEmptyTranscript, ErrMissingInput or ErrUnsupportedMode.
// Transcription and embedding failures return a classified
// *errors.AnalysisError. Summarization failures never fail the analysis.
func (a *Analyzer) Analyze(ctx context.Context, agendaText string, in meeting.TranscriptInput) (*Report, error) {
	start := time.Now()
	id := a.newID()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	ctx, span := a.tracer.StartAnalysisSpan(ctx, id, string(in.Kind))
	defer span.End()
	sh := observability.NewSpanHelper(span)
	log := a.logger.WithContext(ctx).With(logging.F("report_id", id))

	report, err := a.analyze(ctx, log, sh, id, agendaText, in)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		status := StatusFailed
		if fferrors.IsValidation(err) {
			status = StatusInvalid
		}
		code := fferrors.CodeOf(err)
		sh.SetError(err, string(code), fferrors.IsErrorRetryable(err))
		a.metrics.RecordAnalysis(status, false, elapsed)
		log.Warn("Analysis failed", logging.Err(err), logging.F("status", status))
		return nil, err
	}

	sh.SetResult(report.ChunkCount, len(report.Tangents), report.Score)
	sh.SetSuccess()
	a.metrics.RecordAnalysis(StatusOK, report.Timed, elapsed)
	a.metrics.RecordReport(report.Score, report.ChunkCount, len(report.Tangents))
	log.Info("Analysis completed",
		logging.F("score", report.Score),
		logging.F("chunks", report.ChunkCount),
		logging.F("tangents", len(report.Tangents)),
		logging.F("timed", report.Timed),
		logging.F("duration_ms", time.Since(start).Milliseconds()))
	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, log logging.Logger, sh *observability.SpanHelper, id, agendaText string, in meeting.TranscriptInput) (*Report, error) {
	items, err := agenda.Parse(agendaText)
	if err != nil {
		return nil, err
	}

	if in.NeedsTranscription() {
		in, err = a.transcribe(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	transcript, err := meeting.Normalize(in)
	if err != nil {
		return nil, err
	}
	sh.SetInputs(len(items), len(transcript.Segments), transcript.Timed)

	chunks := BuildChunks(transcript, a.config)
	log.Debug("Transcript chunked",
		logging.F("segments", len(transcript.Segments)),
		logging.F("chunks", len(chunks)),
		logging.F("timed", transcript.Timed))

	var (
		agendaVecs, chunkVecs [][]float32
		summary               ai.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agendaVecs, chunkVecs, err = a.embed(gctx, agenda.Titles(items), Texts(chunks))
		return err
	})
	g.Go(func() error {
		summary = a.summarize(gctx, log, transcriptText(transcript))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	_, span := a.tracer.StartComputeSpan(ctx)
	defer span.End()
	return Compute(Input{
		ID:            id,
		Title:         in.Name,
		Agenda:        items,
		Transcript:    transcript,
		Chunks:        chunks,
		ChunkVectors:  chunkVecs,
		AgendaVectors: agendaVecs,
		Summary:       summary,
		CreatedAt:     a.now().UTC(),
	}, a.config)
}

func (a *Analyzer) transcribe(ctx context.Context, in meeting.TranscriptInput) (meeting.TranscriptInput, error) {
	if a.transcriber == nil {
		return in, fferrors.Input(fferrors.ErrMissingInput, "audio %s given but no transcription service is configured", in.AudioPath)
	}

	var result *asr.Result
	err := a.stage(ctx, fferrors.StageTranscribe, func(ctx context.Context) error {
		var err error
		result, err = a.transcriber.Transcribe(ctx, in.AudioPath)
		return err
	})
	if err != nil {
		return in, err
	}

	name := in.Name
	if name == "" {
		name = in.AudioPath
	}
	return result.Input(name), nil
}

// embed sends agenda titles and chunk texts in one request and splits the
// result back into the two lists.
func (a *Analyzer) embed(ctx context.Context, titles, texts []string) ([][]float32, [][]float32, error) {
	inputs := make([]string, 0, len(titles)+len(texts))
	inputs = append(inputs, titles...)
	inputs = append(inputs, texts...)

	var vecs [][]float32
	err := a.stage(ctx, fferrors.StageEmbed, func(ctx context.Context) error {
		var err error
		vecs, err = a.embedder.Embed(ctx, inputs)
		if err != nil {
			return err
		}
		if len(vecs) != len(inputs) {
			return fmt.Errorf("embedding count mismatch: got %d vectors for %d inputs", len(vecs), len(inputs))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return vecs[:len(titles)], vecs[len(titles):], nil
}

// summarize never fails: errors and unparsable output produce an empty summary.
func (a *Analyzer) summarize(ctx context.Context, log logging.Logger, text string) ai.Summary {
	if a.summarizer == nil {
		return ai.EmptySummary()
	}

	var raw string
	err := a.stage(ctx, fferrors.StageSummarize, func(ctx context.Context) error {
		var err error
		raw, err = a.summarizer.Summarize(ctx, text)
		return err
	})
	if err != nil {
		a.metrics.RecordSummaryFallback()
		log.Warn("Summarization failed, using empty summary", logging.Err(err))
		return ai.EmptySummary()
	}

	summary, ok := ai.ParseSummary(raw)
	if !ok {
		a.metrics.RecordSummaryFallback()
		log.Warn("Summary output not parseable, using empty summary", logging.F("output_len", len(raw)))
	}
	return summary
}

// stage runs one external call under its own span and records its outcome.
// Failures come back as *errors.AnalysisError.
func (a *Analyzer) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := a.tracer.StartStageSpan(ctx, name)
	defer span.End()
	sh := observability.NewSpanHelper(span)

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err == nil {
		sh.SetSuccess()
		a.metrics.RecordStage(name, StatusOK, elapsed.Seconds())
		a.logger.WithContext(ctx).Debug("Stage completed",
			logging.F("stage", name),
			logging.F("duration_ms", elapsed.Milliseconds()))
		return nil
	}

	ae := fferrors.ClassifyError(err, name)
	if ae.Code == fferrors.ErrTimeout {
		ae.Duration = elapsed
		ae.Timeout = a.timeout
	}
	sh.SetError(ae, string(ae.Code), fferrors.IsRetryable(ae.Code))
	a.metrics.RecordStage(name, string(ae.Code), elapsed.Seconds())
	return ae
}

func transcriptText(t *meeting.Transcript) string {
	if strings.TrimSpace(t.FullText) != "" {
		return t.FullText
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
