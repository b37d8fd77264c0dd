package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies this module's spans.
const TracerName = "github.com/ggs134/meeting-transcript-analyzer"

// Span attribute keys
const (
	AttrMeetingID    = "meeting_id"
	AttrMeetingTitle = "meeting_title"
	AttrSchema       = "schema"
	AttrDateKind     = "date_kind"
	AttrUtterances   = "utterances"
	AttrParticipants = "participants"
	AttrTemplate     = "template"
	AttrTemplateVer  = "template_version"
	AttrModel        = "model"
	AttrProvider     = "provider"
	AttrMeetingCount = "meeting_count"
	AttrPromptChars  = "prompt_chars"
	AttrInputTokens  = "input_tokens"
	AttrOutputTokens = "output_tokens"
	AttrDurationMs   = "duration_ms"
	AttrErrorCode    = "error_code"
	AttrRetryable    = "retryable"
)

// Span names
const (
	SpanNormalize = "mta.normalize"
	SpanParse     = "mta.parse"
	SpanAnalyze   = "mta.analyze"
	SpanLLMCall   = "mta.llm_call"
)

// Tracer starts the pipeline's spans on the global provider.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartNormalizeSpan starts the span around document normalization.
func (t *Tracer) StartNormalizeSpan(ctx context.Context, meetingID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanNormalize,
		trace.WithAttributes(attribute.String(AttrMeetingID, meetingID)))
}

// StartParseSpan starts the span around transcript parsing.
func (t *Tracer) StartParseSpan(ctx context.Context, meetingID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanParse,
		trace.WithAttributes(attribute.String(AttrMeetingID, meetingID)))
}

// StartAnalyzeSpan starts the root span of one analysis (single or aggregated).
func (t *Tracer) StartAnalyzeSpan(ctx context.Context, template string, meetingCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanAnalyze,
		trace.WithAttributes(
			attribute.String(AttrTemplate, template),
			attribute.Int(AttrMeetingCount, meetingCount),
		))
}

// StartLLMSpan starts the span around one provider call.
func (t *Tracer) StartLLMSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanLLMCall,
		trace.WithAttributes(
			attribute.String(AttrProvider, provider),
			attribute.String(AttrModel, model),
		))
}

// SpanHelper sets attributes on a span.
type SpanHelper struct {
	span trace.Span
}

func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

func (h *SpanHelper) SetMeeting(id, title string) {
	h.span.SetAttributes(
		attribute.String(AttrMeetingID, id),
		attribute.String(AttrMeetingTitle, title),
	)
}

func (h *SpanHelper) SetNormalized(schema, dateKind string) {
	h.span.SetAttributes(
		attribute.String(AttrSchema, schema),
		attribute.String(AttrDateKind, dateKind),
	)
}

func (h *SpanHelper) SetParseResult(utterances, participants int) {
	h.span.SetAttributes(
		attribute.Int(AttrUtterances, utterances),
		attribute.Int(AttrParticipants, participants),
	)
}

func (h *SpanHelper) SetTemplate(name string, version *string) {
	h.span.SetAttributes(attribute.String(AttrTemplate, name))
	if version != nil {
		h.span.SetAttributes(attribute.String(AttrTemplateVer, *version))
	}
}

func (h *SpanHelper) SetPrompt(chars int) {
	h.span.SetAttributes(attribute.Int(AttrPromptChars, chars))
}

func (h *SpanHelper) SetLLMResult(inputTokens, outputTokens int, latencyMs int64) {
	h.span.SetAttributes(
		attribute.Int(AttrInputTokens, inputTokens),
		attribute.Int(AttrOutputTokens, outputTokens),
		attribute.Int64(AttrDurationMs, latencyMs),
	)
}

// SetError records err with its classification.
func (h *SpanHelper) SetError(err error, code string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from ctx, or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
