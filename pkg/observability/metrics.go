// Package observability provides Prometheus metrics and OpenTelemetry spans
// for document normalization, parsing and analysis.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "mta"

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	DocumentsNormalized *prometheus.CounterVec
	UtterancesParsed    prometheus.Counter
	ParseFailures       *prometheus.CounterVec
	AnalysisTotal       *prometheus.CounterVec
	AnalysisSeconds     *prometheus.HistogramVec
	LLMRequests         *prometheus.CounterVec
	LLMTokens           *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsNormalized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "documents_normalized_total",
				Help:      "Raw documents normalized, by schema and how the date was resolved",
			},
			[]string{"schema", "date_kind"},
		),
		UtterancesParsed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "utterances_parsed_total",
				Help:      "Utterances produced by the transcript parser",
			},
		),
		ParseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "parse_failures_total",
				Help:      "Transcripts that yielded no utterances, by diagnosed reason",
			},
			[]string{"reason"},
		),
		AnalysisTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "analysis_total",
				Help:      "Analysis results produced, by status and template",
			},
			[]string{"status", "template"},
		),
		AnalysisSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "analysis_duration_seconds",
				Help:      "End-to-end analysis latency including the model call",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"provider"},
		),
		LLMRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "llm_requests_total",
				Help:      "Model requests, by provider and outcome code",
			},
			[]string{"provider", "status"},
		),
		LLMTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "llm_tokens_total",
				Help:      "Tokens reported by the provider, by kind (input or output)",
			},
			[]string{"provider", "kind"},
		),
		gatherer: reg,
	}
}

// RecordNormalized counts one normalized document.
func (m *Metrics) RecordNormalized(schema, dateKind string) {
	if m == nil {
		return
	}
	m.DocumentsNormalized.WithLabelValues(schema, dateKind).Inc()
}

// RecordParse counts utterances, or a failure when reason is non-empty.
func (m *Metrics) RecordParse(utterances int, reason string) {
	if m == nil {
		return
	}
	m.UtterancesParsed.Add(float64(utterances))
	if reason != "" {
		m.ParseFailures.WithLabelValues(reason).Inc()
	}
}

// RecordAnalysis counts one analysis result and its latency.
func (m *Metrics) RecordAnalysis(status, template, provider string, seconds float64) {
	if m == nil {
		return
	}
	m.AnalysisTotal.WithLabelValues(status, template).Inc()
	m.AnalysisSeconds.WithLabelValues(provider).Observe(seconds)
}

// RecordLLMCall counts one provider request and its token usage.
func (m *Metrics) RecordLLMCall(provider, status string, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(provider, status).Inc()
	if inputTokens > 0 {
		m.LLMTokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.LLMTokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
