// Package observability holds the Prometheus metrics and OpenTelemetry spans
// recorded around meeting analysis.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for focusflow.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal      *prometheus.CounterVec
	AnalysisSeconds    prometheus.Histogram
	Score              prometheus.Histogram
	ChunksPerMeeting   prometheus.Histogram
	TangentsPerMeeting prometheus.Histogram

	// External service metrics
	StageCallsTotal       *prometheus.CounterVec
	StageSeconds          *prometheus.HistogramVec
	SummaryFallbacksTotal prometheus.Counter
	EmbeddingCacheTotal   *prometheus.CounterVec

	// Surface metrics
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPSeconds       *prometheus.HistogramVec
	WatchJobsTotal    *prometheus.CounterVec
}

// DefaultMetrics creates metrics registered on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of metrics registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusflow_analyses_total",
				Help: "Total analyses by outcome and transcript timing",
			},
			[]string{"status", "timed"},
		),
		AnalysisSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "focusflow_analysis_seconds",
				Help:    "End-to-end analysis latency including external calls",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		Score: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "focusflow_meeting_score",
				Help:    "Distribution of composite meeting scores",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		ChunksPerMeeting: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "focusflow_chunks_per_meeting",
				Help:    "Number of analysis chunks per meeting",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		TangentsPerMeeting: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "focusflow_tangents_per_meeting",
				Help:    "Number of tangent spans per meeting",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
		),

		StageCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusflow_stage_calls_total",
				Help: "External stage calls by stage and result code",
			},
			[]string{"stage", "code"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "focusflow_stage_seconds",
				Help:    "External stage latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60, 120},
			},
			[]string{"stage"},
		),
		SummaryFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "focusflow_summary_fallbacks_total",
				Help: "Summaries replaced by empty output after a failed or unparsable response",
			},
		),
		EmbeddingCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusflow_embedding_cache_total",
				Help: "Embedding cache lookups by result",
			},
			[]string{"result"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusflow_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "focusflow_http_request_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		WatchJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusflow_watch_jobs_total",
				Help: "Watched-directory analyses by outcome",
			},
			[]string{"status"},
		),
	}
}

// RecordAnalysis records a finished analysis.
func (m *Metrics) RecordAnalysis(status string, timed bool, seconds float64) {
	if m == nil {
		return
	}
	t := "false"
	if timed {
		t = "true"
	}
	m.AnalysesTotal.WithLabelValues(status, t).Inc()
	m.AnalysisSeconds.Observe(seconds)
}

// RecordReport records the shape of a produced report.
func (m *Metrics) RecordReport(score, chunks, tangents int) {
	if m == nil {
		return
	}
	m.Score.Observe(float64(score))
	m.ChunksPerMeeting.Observe(float64(chunks))
	m.TangentsPerMeeting.Observe(float64(tangents))
}

// RecordStage records one external stage call. code is "ok" on success or an
// error code otherwise.
func (m *Metrics) RecordStage(stage, code string, seconds float64) {
	if m == nil {
		return
	}
	m.StageCallsTotal.WithLabelValues(stage, code).Inc()
	m.StageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordSummaryFallback records a summary replaced by empty output.
func (m *Metrics) RecordSummaryFallback() {
	if m == nil {
		return
	}
	m.SummaryFallbacksTotal.Inc()
}

// RecordCacheLookup records embedding cache hits and misses.
func (m *Metrics) RecordCacheLookup(hits, misses int) {
	if m == nil {
		return
	}
	m.EmbeddingCacheTotal.WithLabelValues("hit").Add(float64(hits))
	m.EmbeddingCacheTotal.WithLabelValues("miss").Add(float64(misses))
}

// RecordHTTP records a served HTTP request.
func (m *Metrics) RecordHTTP(route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
	m.HTTPSeconds.WithLabelValues(route).Observe(seconds)
}

// RecordWatchJob records a watched-directory analysis.
func (m *Metrics) RecordWatchJob(status string) {
	if m == nil {
		return
	}
	m.WatchJobsTotal.WithLabelValues(status).Inc()
}
