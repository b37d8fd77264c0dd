package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/events"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/observability"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// ErrWeekend is returned by DailyReport for Saturday and Sunday targets.
var ErrWeekend = errors.New("no daily report for weekend dates")

// EventPublisher receives analysis lifecycle events.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, ev events.AnalysisCompletedEvent) error
	PublishAnalysisFailed(ctx context.Context, ev events.AnalysisFailedEvent) error
	PublishReportCompleted(ctx context.Context, ev events.ReportCompletedEvent) error
}

// Options select meetings and templates for an Analyzer.
type Options struct {
	Collection         string `json:"collection" validate:"required"`
	AnalysisCollection string `json:"analysis_collection" validate:"required"`
	DailyCollection    string `json:"daily_collection" validate:"required"`

	// Template and Version apply to every analysis. An empty Template means
	// "default" for single meetings and "comprehensive_review" for aggregates.
	Template string `json:"template"`
	Version  string `json:"version"`
	// CustomTemplate replaces the registry template when set.
	CustomTemplate string `json:"custom_template" validate:"omitempty,min=50"`
	Instructions   string `json:"instructions"`

	Limit int                   `json:"limit" validate:"gte=0"`
	Post  transcript.PostFilter `json:"-"`
}

// Analyzer runs the fetch, normalize, parse, prompt and generate pipeline.
type Analyzer struct {
	store      store.DocumentStore
	generator  Generator
	templates  *TemplateRegistry
	parser     *transcript.Parser
	normalizer *transcript.DocumentNormalizer
	opts       Options

	events  EventPublisher
	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  logging.Logger
	now     func() time.Time
	runID   string
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithTemplates replaces the built-in template registry.
func WithTemplates(reg *TemplateRegistry) AnalyzerOption {
	return func(a *Analyzer) { a.templates = reg }
}

// WithParser sets the transcript parser (and the normalizer built on it).
func WithParser(p *transcript.Parser) AnalyzerOption {
	return func(a *Analyzer) { a.parser = p }
}

// WithEvents publishes lifecycle events to p.
func WithEvents(p EventPublisher) AnalyzerOption {
	return func(a *Analyzer) { a.events = p }
}

// WithMetrics records pipeline metrics to m.
func WithMetrics(m *observability.Metrics) AnalyzerOption {
	return func(a *Analyzer) { a.metrics = m }
}

// WithTracer sets the span tracer.
func WithTracer(t *observability.Tracer) AnalyzerOption {
	return func(a *Analyzer) { a.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// WithClock overrides time.Now for timestamps and date fallbacks.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// WithRunID sets the correlation ID attached to events and logs.
func WithRunID(id string) AnalyzerOption {
	return func(a *Analyzer) { a.runID = id }
}

// NewAnalyzer creates an Analyzer. st may be store.NullStore for documents
// supplied directly.
func NewAnalyzer(st store.DocumentStore, gen Generator, opts Options, options ...AnalyzerOption) (*Analyzer, error) {
	if st == nil {
		return nil, fmt.Errorf("analyzer: store: %w", mtaerrors.ErrNotConfigured)
	}
	if gen == nil {
		return nil, fmt.Errorf("analyzer: generator: %w", mtaerrors.ErrNotConfigured)
	}
	if err := validateStruct(opts); err != nil {
		return nil, fmt.Errorf("analyzer options: %w", err)
	}

	a := &Analyzer{
		store:     st,
		generator: gen,
		opts:      opts,
		now:       time.Now,
		runID:     uuid.New().String(),
	}
	for _, o := range options {
		o(a)
	}
	if a.templates == nil {
		a.templates = BuiltinTemplates()
	}
	if a.parser == nil {
		a.parser = transcript.NewParser()
	}
	if a.tracer == nil {
		a.tracer = observability.NewTracer()
	}
	if a.logger == nil {
		a.logger = logging.Global()
	}
	a.logger = a.logger.With(logging.F("component", "analyzer"), logging.F("run_id", a.runID))
	a.normalizer = transcript.NewDocumentNormalizer(a.parser, transcript.WithClock(a.now))
	return a, nil
}

// RunID returns the correlation ID of this analyzer's run.
func (a *Analyzer) RunID() string {
	return a.runID
}

// Templates returns the template registry in use.
func (a *Analyzer) Templates() *TemplateRegistry {
	return a.templates
}

// Parser returns the transcript parser in use.
func (a *Analyzer) Parser() *transcript.Parser {
	return a.parser
}

// Fetch loads and normalizes the meetings selected by f, then re-applies the
// date range to the normalized dates and the post filter.
func (a *Analyzer) Fetch(ctx context.Context, f store.Filter) ([]*transcript.CanonicalDocument, error) {
	if f.Collection == "" {
		f.Collection = a.opts.Collection
	}
	if f.Limit == 0 {
		f.Limit = a.opts.Limit
	}

	docs, err := a.store.Find(ctx, f)
	if err != nil {
		return nil, mtaerrors.ClassifyError(fmt.Errorf("finding meetings in %s: %w", f.Collection, err), mtaerrors.StageFetch)
	}

	meetings := a.NormalizeAll(ctx, docs)
	meetings = transcript.FilterByDate(meetings, f.Date)
	if a.opts.Post.IsZero() {
		return meetings, nil
	}

	out := meetings[:0]
	for _, m := range meetings {
		if a.opts.Post.Match(m, transcript.Diagnose(m, a.parser)) {
			out = append(out, m)
		}
	}
	return out, nil
}

// NormalizeAll normalizes raw documents, logging guessed dates.
func (a *Analyzer) NormalizeAll(ctx context.Context, docs []store.Document) []*transcript.CanonicalDocument {
	out := make([]*transcript.CanonicalDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, a.normalize(ctx, doc))
	}
	return out
}

func (a *Analyzer) normalize(ctx context.Context, doc store.Document) *transcript.CanonicalDocument {
	_, span := a.tracer.StartNormalizeSpan(ctx, store.IDKey(doc[transcript.FieldID]))
	defer span.End()

	schema := "drive_export"
	if transcript.IsNative(doc) {
		schema = "native"
	}
	c := a.normalizer.Normalize(doc)

	h := observability.NewSpanHelper(span)
	h.SetMeeting(c.IDString(), c.Title)
	h.SetNormalized(schema, c.Date.Kind.String())
	a.metrics.RecordNormalized(schema, c.Date.Kind.String())

	if c.Date.Kind == transcript.DateFallbackNow {
		a.logger.Warn("createdTime unparseable, using current time",
			logging.F("meeting_id", c.IDString()),
			logging.F("created_time", c.Date.Original),
			logging.Err(c.Date.Err))
	}
	return c
}

// selection resolves the template for one analysis.
func (a *Analyzer) selection(fallbackName string) Selection {
	if a.opts.CustomTemplate != "" {
		return Selection{Name: TemplateCustom, Content: a.opts.CustomTemplate}
	}
	name := a.opts.Template
	if name == "" {
		name = fallbackName
	}
	return a.templates.Select(name, a.opts.Version)
}

// AnalyzeMeetings analyzes every meeting selected by f, one at a time.
// Per-meeting failures become error results; only cancellation stops the run.
func (a *Analyzer) AnalyzeMeetings(ctx context.Context, f store.Filter) ([]*MeetingResult, error) {
	meetings, err := a.Fetch(ctx, f)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeAll(ctx, meetings)
}

// AnalyzeDocuments normalizes and analyzes raw documents.
func (a *Analyzer) AnalyzeDocuments(ctx context.Context, docs []store.Document) ([]*MeetingResult, error) {
	return a.AnalyzeAll(ctx, a.NormalizeAll(ctx, docs))
}

// AnalyzeAll analyzes already normalized meetings in order.
func (a *Analyzer) AnalyzeAll(ctx context.Context, meetings []*transcript.CanonicalDocument) ([]*MeetingResult, error) {
	results := make([]*MeetingResult, 0, len(meetings))
	for i, m := range meetings {
		if err := ctx.Err(); err != nil {
			return results, mtaerrors.ClassifyError(err, mtaerrors.StageGenerate)
		}
		a.logger.Info("analyzing meeting",
			logging.F("index", i+1),
			logging.F("total", len(meetings)),
			logging.F("meeting_id", m.IDString()),
			logging.F("title", m.Title))
		results = append(results, a.AnalyzeMeeting(ctx, m))
	}
	return results, nil
}

// AnalyzeMeeting parses one meeting and asks the generator for its
// analysis. It always returns a result; failures are recorded in it.
func (a *Analyzer) AnalyzeMeeting(ctx context.Context, m *transcript.CanonicalDocument) *MeetingResult {
	start := a.now()
	sel := a.selection(TemplateDefault)

	ctx, span := a.tracer.StartAnalyzeSpan(ctx, sel.Name, 1)
	defer span.End()
	h := observability.NewSpanHelper(span)
	h.SetMeeting(m.IDString(), m.Title)
	h.SetTemplate(sel.Name, sel.Version)

	title := m.Title
	if title == "" {
		title = notAvailable
	}
	res := &MeetingResult{
		MeetingID:    m.IDString(),
		MeetingTitle: title,
		MeetingDate:  m.Date,
		Analysis: MeetingAnalysis{
			TemplateUsed:    sel.Name,
			TemplateVersion: sel.Version,
			ModelUsed:       a.generator.Name(),
		},
	}

	if strings.TrimSpace(m.Transcript) == "" {
		a.metrics.RecordParse(0, string(transcript.FailureEmpty))
		a.fail(ctx, h, res, start, mtaerrors.ClassifyError(mtaerrors.ErrEmptyTranscript, mtaerrors.StageParse))
		return res
	}

	utterances := a.parse(ctx, m)
	res.Analysis.TotalStatements = len(utterances)
	if len(utterances) == 0 {
		err := fmt.Errorf("%s: %w", transcript.ClassifyFailure(m.Transcript, nil).Description(), mtaerrors.ErrNoUtterances)
		a.fail(ctx, h, res, start, mtaerrors.ClassifyError(err, mtaerrors.StageParse))
		return res
	}

	stats := transcript.ExtractParticipantStats(utterances)
	res.Participants = stats.Speakers()
	h.SetParseResult(len(utterances), stats.Len())

	prompt := BuildPrompt(sel.Content, PromptData{
		Formatted:    transcript.FormatForAnalysis(m, utterances, stats),
		Participants: res.Participants,
		Instructions: a.opts.Instructions,
	})
	h.SetPrompt(len(prompt))

	text, err := a.generate(ctx, prompt)
	if err != nil {
		a.fail(ctx, h, res, start, mtaerrors.ClassifyError(err, mtaerrors.StageGenerate))
		return res
	}

	res.Analysis.Status = StatusSuccess
	res.Analysis.Analysis = text
	res.Analysis.ParticipantStats = stats
	res.Analysis.Timestamp = a.now()
	h.SetSuccess()

	elapsed := a.now().Sub(start)
	a.metrics.RecordAnalysis(StatusSuccess, sel.Name, a.providerName(), elapsed.Seconds())
	a.logger.Info("meeting analyzed",
		logging.F("meeting_id", res.MeetingID),
		logging.F("utterances", len(utterances)),
		logging.F("participants", len(res.Participants)),
		logging.F("duration_ms", elapsed.Milliseconds()))

	a.publishCompleted(ctx, m, res, elapsed)
	return res
}

func (a *Analyzer) parse(ctx context.Context, m *transcript.CanonicalDocument) []transcript.Utterance {
	_, span := a.tracer.StartParseSpan(ctx, m.IDString())
	defer span.End()

	utterances := a.parser.Parse(m.Transcript)
	reason := ""
	if len(utterances) == 0 {
		reason = string(transcript.ClassifyFailure(m.Transcript, utterances))
	}
	a.metrics.RecordParse(len(utterances), reason)
	observability.NewSpanHelper(span).SetParseResult(len(utterances), len(transcript.SpeakersOf(utterances)))
	return utterances
}

// fail records ae in res and reports it.
func (a *Analyzer) fail(ctx context.Context, h *observability.SpanHelper, res *MeetingResult, start time.Time, ae *mtaerrors.AnalysisError) {
	ae.MeetingID = res.MeetingID
	res.Analysis.Status = StatusError
	res.Analysis.Error = ae.Message
	res.Analysis.ErrorCode = string(ae.Code)
	res.Analysis.Timestamp = a.now()

	elapsed := a.now().Sub(start)
	h.SetError(ae, string(ae.Code), mtaerrors.IsRetryable(ae.Code))
	a.metrics.RecordAnalysis(StatusError, res.Analysis.TemplateUsed, a.providerName(), elapsed.Seconds())
	a.logger.Warn("meeting analysis failed",
		logging.F("meeting_id", res.MeetingID),
		logging.F("title", res.MeetingTitle),
		logging.F("error_code", ae.Code),
		logging.F("stage", ae.Stage),
		logging.F("suggested_action", mtaerrors.GetSuggestedAction(ae.Code)),
		logging.Err(ae))

	if a.events == nil {
		return
	}
	ev := events.AnalysisFailedEvent{
		BaseEvent:       events.NewBaseEvent(events.ChannelAnalysisFailed, a.runID),
		MeetingID:       res.MeetingID,
		MeetingTitle:    res.MeetingTitle,
		MeetingDate:     res.DateLabel(),
		DateIsFallback:  res.MeetingDate.Kind == transcript.DateFallbackNow,
		Template:        res.Analysis.TemplateUsed,
		Model:           res.Analysis.ModelUsed,
		ErrorCode:       string(ae.Code),
		Stage:           ae.Stage,
		Message:         ae.Message,
		DurationSeconds: elapsed.Seconds(),
	}
	if err := a.events.PublishAnalysisFailed(ctx, ev); err != nil {
		a.logger.Warn("publishing analysis.failed", logging.Err(err))
	}
}

func (a *Analyzer) publishCompleted(ctx context.Context, m *transcript.CanonicalDocument, res *MeetingResult, elapsed time.Duration) {
	if a.events == nil {
		return
	}
	ev := events.AnalysisCompletedEvent{
		BaseEvent:        events.NewBaseEvent(events.ChannelAnalysisCompleted, a.runID),
		MeetingID:        res.MeetingID,
		MeetingTitle:     res.MeetingTitle,
		MeetingDate:      res.DateLabel(),
		DateIsFallback:   m.Date.Kind == transcript.DateFallbackNow,
		Template:         res.Analysis.TemplateUsed,
		TemplateVersion:  res.Analysis.TemplateVersion,
		Model:            res.Analysis.ModelUsed,
		Status:           res.Analysis.Status,
		ParticipantCount: len(res.Participants),
		UtteranceCount:   res.Analysis.TotalStatements,
		DurationSeconds:  elapsed.Seconds(),
	}
	if err := a.events.PublishAnalysisCompleted(ctx, ev); err != nil {
		a.logger.Warn("publishing analysis.completed", logging.Err(err))
	}
}

// generate calls the generator inside an LLM span, recording token usage
// when the generator reports it.
func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	provider := a.providerName()
	ctx, span := a.tracer.StartLLMSpan(ctx, provider, a.generator.Name())
	defer span.End()
	h := observability.NewSpanHelper(span)
	h.SetPrompt(len(prompt))

	var (
		text  string
		usage TokenUsage
		err   error
	)
	start := a.now()
	if p, ok := a.generator.(interface {
		GenerateCompletion(context.Context, string) (*CompletionResponse, error)
	}); ok {
		var resp *CompletionResponse
		resp, err = p.GenerateCompletion(ctx, prompt)
		if resp != nil {
			text, usage = resp.Content, resp.TokensUsed
		}
	} else {
		text, err = a.generator.Generate(ctx, prompt)
	}

	if err != nil {
		code := mtaerrors.CodeOf(err)
		h.SetError(err, string(code), mtaerrors.IsRetryable(code))
		a.metrics.RecordLLMCall(provider, string(code), 0, 0)
		return "", err
	}
	h.SetLLMResult(usage.Prompt, usage.Completion, a.now().Sub(start).Milliseconds())
	h.SetSuccess()
	a.metrics.RecordLLMCall(provider, StatusSuccess, usage.Prompt, usage.Completion)
	return text, nil
}

func (a *Analyzer) providerName() string {
	if p, ok := a.generator.(interface{ ProviderName() string }); ok {
		return p.ProviderName()
	}
	return "custom"
}

// AnalyzeAggregated analyzes every meeting selected by f as one combined
// transcript.
func (a *Analyzer) AnalyzeAggregated(ctx context.Context, f store.Filter) (*AggregatedResult, error) {
	meetings, err := a.Fetch(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(meetings) == 0 {
		return nil, fmt.Errorf("no meetings matched: %w", mtaerrors.ErrNotFound)
	}
	return a.Aggregate(ctx, meetings, a.opts.Instructions)
}

// Aggregate analyzes meetings as one combined transcript. The daily_report
// template gets the real meeting count appended to instructions.
func (a *Analyzer) Aggregate(ctx context.Context, meetings []*transcript.CanonicalDocument, instructions string) (*AggregatedResult, error) {
	if len(meetings) == 0 {
		return nil, fmt.Errorf("no meetings to aggregate: %w", mtaerrors.ErrNotFound)
	}
	start := a.now()
	sel := a.selection(TemplateComprehensiveReview)

	ctx, span := a.tracer.StartAnalyzeSpan(ctx, sel.Name, len(meetings))
	defer span.End()
	h := observability.NewSpanHelper(span)
	h.SetTemplate(sel.Name, sel.Version)

	agg := transcript.NewAggregator(a.parser).Aggregate(meetings)
	first, last := agg.DateRange(notAvailable)
	res := &AggregatedResult{
		MeetingCount:          len(meetings),
		MeetingTitles:         agg.Titles(),
		DateRange:             DateSpan{Start: first, End: last},
		Participants:          agg.Shares,
		ParticipantsFormatted: agg.FormattedShares(),
		TemplateUsed:          sel.Name,
		TemplateVersion:       sel.Version,
		ModelUsed:             a.generator.Name(),
	}
	utterances := 0
	for _, e := range agg.Stats.Entries() {
		utterances += e.Stats.SpeakCount
	}
	h.SetParseResult(utterances, len(agg.Participants))

	var date *string
	if d := agg.Meetings[0].Date; d.HasTime() || d.Kind == transcript.DateUnrecognized {
		label := d.Label(notAvailable)
		date = &label
	} else if day := dateFromInstructions(instructions); day != "" {
		date = &day
	}

	if sel.Name == TemplateDailyReport {
		instructions += meetingCountInstruction(len(meetings))
	}

	prompt := BuildPrompt(sel.Content, PromptData{
		Formatted:    agg.Text,
		Participants: agg.Participants,
		Instructions: instructions,
		Date:         date,
		MeetingsData: &agg.Text,
	})
	h.SetPrompt(len(prompt))

	text, err := a.generate(ctx, prompt)
	res.Timestamp = a.now()
	elapsed := res.Timestamp.Sub(start)
	if err != nil {
		ae := mtaerrors.ClassifyError(err, mtaerrors.StageGenerate)
		res.Status = StatusError
		res.Error = ae.Message
		res.ErrorCode = string(ae.Code)
		h.SetError(ae, string(ae.Code), mtaerrors.IsRetryable(ae.Code))
		a.metrics.RecordAnalysis(StatusError, sel.Name, a.providerName(), elapsed.Seconds())
		a.logger.Warn("aggregated analysis failed",
			logging.F("meetings", len(meetings)),
			logging.F("error_code", ae.Code),
			logging.Err(ae))
		a.publishReport(ctx, res, elapsed)
		return res, nil
	}

	res.Status = StatusSuccess
	res.Analysis = text
	if sel.Name == TemplateDailyReport && VersionAtLeast(sel.Version, 2.0) {
		if report, ok := ParseDailyReportJSON(text); ok {
			MergeParticipantShares(report, agg.Shares)
			res.Structured = report
		} else {
			a.logger.Warn("daily report output is not structured JSON, keeping raw text")
		}
	}
	h.SetSuccess()
	a.metrics.RecordAnalysis(StatusSuccess, sel.Name, a.providerName(), elapsed.Seconds())
	a.logger.Info("aggregated analysis complete",
		logging.F("meetings", len(meetings)),
		logging.F("participants", len(agg.Participants)),
		logging.F("duration_ms", elapsed.Milliseconds()))
	a.publishReport(ctx, res, elapsed)
	return res, nil
}

func (a *Analyzer) publishReport(ctx context.Context, res *AggregatedResult, elapsed time.Duration) {
	if a.events == nil {
		return
	}
	kind := "aggregated"
	if res.IsDaily() || res.TemplateUsed == TemplateDailyReport {
		kind = "daily"
	}
	names := make([]string, 0, len(res.Participants))
	for _, p := range res.Participants {
		names = append(names, p.Name)
	}
	ev := events.ReportCompletedEvent{
		BaseEvent:       events.NewBaseEvent(events.ChannelReportCompleted, a.runID),
		Kind:            kind,
		Status:          res.Status,
		MeetingCount:    res.MeetingCount,
		DateStart:       res.DateRange.Start,
		DateEnd:         res.DateRange.End,
		Participants:    names,
		Template:        res.TemplateUsed,
		Model:           res.ModelUsed,
		DurationSeconds: elapsed.Seconds(),
	}
	if err := a.events.PublishReportCompleted(ctx, ev); err != nil {
		a.logger.Warn("publishing report.completed", logging.Err(err))
	}
}

// DailyReport analyzes the meetings of one weekday with the daily_report
// template. Monday reports include the preceding weekend.
func (a *Analyzer) DailyReport(ctx context.Context, day time.Time) (*AggregatedResult, error) {
	if !transcript.IsWeekday(day) {
		return nil, fmt.Errorf("%s: %w", day.Format("2006-01-02"), ErrWeekend)
	}
	window := transcript.ReportWindow(day)
	meetings, err := a.Fetch(ctx, store.Filter{Collection: a.opts.Collection, Date: &window})
	if err != nil {
		return nil, err
	}
	target := day.Format("2006-01-02")
	if len(meetings) == 0 {
		return nil, fmt.Errorf("no meetings on %s: %w", target, mtaerrors.ErrNotFound)
	}

	daily := *a
	daily.opts.Template = TemplateDailyReport
	daily.opts.CustomTemplate = ""
	if daily.opts.Version == "" {
		daily.opts.Version = VersionLatest
	}

	instructions := targetDateInstruction(target)
	if a.opts.Instructions != "" {
		instructions = a.opts.Instructions + "\n" + instructions
	}
	res, err := daily.Aggregate(ctx, meetings, instructions)
	if err != nil {
		return nil, err
	}
	res.TargetDate = target
	for _, m := range meetings {
		res.TargetMeetings = append(res.TargetMeetings, TargetMeeting{
			MeetingID:    m.IDString(),
			MeetingTitle: m.Title,
			CreatedTime:  createdTime(m),
		})
	}
	return res, nil
}

// Save stores meeting results in the analysis collection.
func (a *Analyzer) Save(ctx context.Context, results []*MeetingResult) (int, error) {
	docs := make([]store.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Document())
	}
	return a.insert(ctx, a.opts.AnalysisCollection, docs)
}

// SaveReport stores an aggregated result; daily reports go to the daily collection.
func (a *Analyzer) SaveReport(ctx context.Context, res *AggregatedResult) (int, error) {
	collection := a.opts.AnalysisCollection
	if res.IsDaily() {
		collection = a.opts.DailyCollection
	}
	return a.insert(ctx, collection, []store.Document{res.Document()})
}

func (a *Analyzer) insert(ctx context.Context, collection string, docs []store.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	n, err := a.store.Insert(ctx, collection, docs)
	if err != nil {
		return n, mtaerrors.ClassifyError(fmt.Errorf("saving to %s: %w", collection, err), mtaerrors.StageSave)
	}
	a.logger.Info("results saved", logging.F("collection", collection), logging.F("count", n))
	return n, nil
}

func createdTime(m *transcript.CanonicalDocument) string {
	if s, ok := m.Source[transcript.FieldCreatedTime].(string); ok && s != "" {
		return s
	}
	return m.Date.Display(notAvailable)
}

// dateFromInstructions finds "분석 대상 날짜: YYYY-MM-DD" in instructions.
func dateFromInstructions(s string) string {
	const marker = "분석 대상 날짜:"
	i := strings.Index(s, marker)
	if i < 0 {
		return ""
	}
	rest := strings.TrimSpace(s[i+len(marker):])
	if len(rest) < 10 {
		return ""
	}
	if _, err := time.Parse("2006-01-02", rest[:10]); err != nil {
		return ""
	}
	return rest[:10]
}
