package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for focusflow spans.
const TracerName = "github.com/otherjamesbrown/focusflow"

// Span attribute keys
const (
	AttrReportID     = "focusflow.report_id"
	AttrStage        = "focusflow.stage"
	AttrModel        = "focusflow.model"
	AttrTranscript   = "focusflow.transcript_kind"
	AttrAgendaItems  = "focusflow.agenda_items"
	AttrSegments     = "focusflow.segments"
	AttrChunks       = "focusflow.chunks"
	AttrTangents     = "focusflow.tangents"
	AttrScore        = "focusflow.score"
	AttrTimed        = "focusflow.timed"
	AttrErrorCode    = "focusflow.error_code"
	AttrRetryable    = "focusflow.retryable"
	AttrInputStrings = "focusflow.input_strings"
)

// Span names
const (
	SpanAnalyze = "focusflow.analyze"
	SpanCompute = "focusflow.compute"
)

// Tracer starts spans for analysis and its external stages.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer backed by the global OpenTelemetry provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// NewTracerWithProvider creates a tracer from an explicit provider.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartAnalysisSpan starts the root span for one analysis request.
func (t *Tracer) StartAnalysisSpan(ctx context.Context, reportID, kind string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanAnalyze,
		trace.WithAttributes(
			attribute.String(AttrReportID, reportID),
			attribute.String(AttrTranscript, kind),
		),
	)
}

// StartStageSpan starts a span for an external stage (transcribe, embed, summarize, store).
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "focusflow.stage."+stage,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(AttrStage, stage)),
	)
}

// StartComputeSpan starts a span around the pure alignment and scoring step.
func (t *Tracer) StartComputeSpan(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanCompute)
}

// SpanHelper provides convenient methods for working with the current span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper creates a new span helper for the given span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetInputs records the size of the analysis inputs.
func (h *SpanHelper) SetInputs(agendaItems, segments int, timed bool) {
	h.span.SetAttributes(
		attribute.Int(AttrAgendaItems, agendaItems),
		attribute.Int(AttrSegments, segments),
		attribute.Bool(AttrTimed, timed),
	)
}

// SetResult records the shape of the produced report.
func (h *SpanHelper) SetResult(chunks, tangents, score int) {
	h.span.SetAttributes(
		attribute.Int(AttrChunks, chunks),
		attribute.Int(AttrTangents, tangents),
		attribute.Int(AttrScore, score),
	)
}

// SetModel sets the model attribute.
func (h *SpanHelper) SetModel(model string) {
	h.span.SetAttributes(attribute.String(AttrModel, model))
}

// SetError records an error on the span.
func (h *SpanHelper) SetError(err error, code string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span.
func (h *SpanHelper) AddEvent(name string, attrs ...attribute.KeyValue) {
	h.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
