package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/events"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/observability"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

const standup = "[00:00:01] Alice: Hello team.\n[00:00:05] Bob: Morning, status is green."

var testClock = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (g *fakeGenerator) Name() string { return "fake-model" }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.reply == nil {
		return "analysis text", nil
	}
	return g.reply(prompt)
}

func (g *fakeGenerator) lastPrompt(t *testing.T) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.prompts)
	return g.prompts[len(g.prompts)-1]
}

type recordingPublisher struct {
	completed []events.AnalysisCompletedEvent
	failed    []events.AnalysisFailedEvent
	reports   []events.ReportCompletedEvent
}

func (p *recordingPublisher) PublishAnalysisCompleted(_ context.Context, ev events.AnalysisCompletedEvent) error {
	p.completed = append(p.completed, ev)
	return nil
}

func (p *recordingPublisher) PublishAnalysisFailed(_ context.Context, ev events.AnalysisFailedEvent) error {
	p.failed = append(p.failed, ev)
	return nil
}

func (p *recordingPublisher) PublishReportCompleted(_ context.Context, ev events.ReportCompletedEvent) error {
	p.reports = append(p.reports, ev)
	return nil
}

func testOptions() Options {
	return Options{
		Collection:         "meetings",
		AnalysisCollection: "meeting_analysis",
		DailyCollection:    "daily_reports",
	}
}

func newTestAnalyzer(t *testing.T, st store.DocumentStore, gen Generator, opts Options, extra ...AnalyzerOption) *Analyzer {
	t.Helper()
	options := append([]AnalyzerOption{WithClock(func() time.Time { return testClock }), WithRunID("run-1")}, extra...)
	a, err := NewAnalyzer(st, gen, opts, options...)
	require.NoError(t, err)
	return a
}

func seedMeetings(t *testing.T, docs ...store.Document) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	_, err := st.Insert(context.Background(), "meetings", docs)
	require.NoError(t, err)
	return st
}

func TestNewAnalyzer_Validation(t *testing.T) {
	gen := &fakeGenerator{}

	_, err := NewAnalyzer(nil, gen, testOptions())
	assert.True(t, mtaerrors.IsNotConfigured(err))

	_, err = NewAnalyzer(store.NullStore{}, nil, testOptions())
	assert.True(t, mtaerrors.IsNotConfigured(err))

	opts := testOptions()
	opts.Collection = ""
	_, err = NewAnalyzer(store.NullStore{}, gen, opts)
	assert.True(t, mtaerrors.IsValidation(err))

	opts = testOptions()
	opts.CustomTemplate = "short"
	_, err = NewAnalyzer(store.NullStore{}, gen, opts)
	assert.True(t, mtaerrors.IsValidation(err))

	a := newTestAnalyzer(t, store.NullStore{}, gen, testOptions())
	assert.Equal(t, "run-1", a.RunID())
	assert.NotNil(t, a.Templates())
	assert.NotNil(t, a.Parser())
}

func TestAnalyzeMeetings_Success(t *testing.T) {
	st := seedMeetings(t, store.Document{
		"title":      "Standup",
		"transcript": standup,
		"date":       time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC),
	})
	gen := &fakeGenerator{}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	pub := &recordingPublisher{}
	a := newTestAnalyzer(t, st, gen, testOptions(), WithMetrics(metrics), WithEvents(pub))

	results, err := a.AnalyzeMeetings(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.True(t, res.OK())
	assert.Equal(t, "Standup", res.MeetingTitle)
	assert.Equal(t, []string{"Alice", "Bob"}, res.Participants)
	assert.Equal(t, "analysis text", res.Analysis.Analysis)
	assert.Equal(t, TemplateDefault, res.Analysis.TemplateUsed)
	require.NotNil(t, res.Analysis.TemplateVersion)
	assert.Equal(t, "1.1", *res.Analysis.TemplateVersion)
	assert.Equal(t, "fake-model", res.Analysis.ModelUsed)
	assert.Equal(t, 2, res.Analysis.TotalStatements)
	assert.Equal(t, testClock, res.Analysis.Timestamp)

	prompt := gen.lastPrompt(t)
	assert.Contains(t, prompt, "제목: Standup")
	assert.Contains(t, prompt, "참여자 목록: Alice, Bob")
	assert.Contains(t, prompt, "[00:00:05] Bob: Morning, status is green.")

	require.Len(t, pub.completed, 1)
	require.NotNil(t, pub.completed[0].CorrelationID)
	assert.Equal(t, "run-1", *pub.completed[0].CorrelationID)
	assert.Equal(t, 2, pub.completed[0].UtteranceCount)
	assert.Empty(t, pub.failed)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AnalysisTotal.WithLabelValues("success", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DocumentsNormalized.WithLabelValues("native", "provided")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("custom", "success")))
}

func TestAnalyzeMeeting_Failures(t *testing.T) {
	tests := []struct {
		name       string
		doc        store.Document
		reply      func(string) (string, error)
		wantCode   mtaerrors.ErrorCode
		wantPrompt bool
	}{
		{
			name:     "empty transcript",
			doc:      store.Document{"name": "Empty", "content": "   "},
			wantCode: mtaerrors.ErrEmptyTranscriptCode,
		},
		{
			name:     "no speakers",
			doc:      store.Document{"title": "Notes", "transcript": "just some notes without any speaker labels"},
			wantCode: mtaerrors.ErrParseFailed,
		},
		{
			name: "rate limited",
			doc:  store.Document{"title": "Standup", "transcript": standup},
			reply: func(string) (string, error) {
				return "", &LLMError{Code: mtaerrors.ErrRateLimit, StatusCode: 429, Message: "HTTP 429"}
			},
			wantCode:   mtaerrors.ErrRateLimit,
			wantPrompt: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: tt.reply}
			pub := &recordingPublisher{}
			a := newTestAnalyzer(t, store.NullStore{}, gen, testOptions(), WithEvents(pub))

			results, err := a.AnalyzeDocuments(context.Background(), []store.Document{tt.doc})
			require.NoError(t, err)
			require.Len(t, results, 1)

			res := results[0]
			assert.False(t, res.OK())
			assert.Equal(t, StatusError, res.Analysis.Status)
			assert.Equal(t, string(tt.wantCode), res.Analysis.ErrorCode)
			assert.NotEmpty(t, res.Analysis.Error)
			assert.Equal(t, tt.wantPrompt, len(gen.prompts) > 0)

			require.Len(t, pub.failed, 1)
			assert.Equal(t, string(tt.wantCode), pub.failed[0].ErrorCode)

			doc := res.Document()
			analysis := doc["analysis"].(map[string]any)
			assert.Equal(t, string(tt.wantCode), analysis["error_code"])
			assert.NotContains(t, analysis, "participant_stats")
		})
	}
}

func TestAnalyzeMeetings_ContinuesAfterFailure(t *testing.T) {
	calls := 0
	gen := &fakeGenerator{reply: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection reset by peer")
		}
		return "ok", nil
	}}
	a := newTestAnalyzer(t, store.NullStore{}, gen, testOptions())

	results, err := a.AnalyzeDocuments(context.Background(), []store.Document{
		{"title": "One", "transcript": standup},
		{"title": "Two", "transcript": standup},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].OK())
	assert.True(t, results[1].OK())
}

func TestAnalyzeAll_Cancelled(t *testing.T) {
	a := newTestAnalyzer(t, store.NullStore{}, &fakeGenerator{}, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := a.AnalyzeDocuments(ctx, []store.Document{{"title": "One", "transcript": standup}})
	require.Error(t, err)
	assert.Empty(t, results)
	assert.Equal(t, mtaerrors.ErrContextCancelled, mtaerrors.CodeOf(err))
}

func TestAnalyzeMeeting_TemplateSelection(t *testing.T) {
	doc := store.Document{"title": "Standup", "transcript": standup}

	t.Run("custom", func(t *testing.T) {
		opts := testOptions()
		opts.CustomTemplate = "Summarize each participant's commitments in three bullet points please."
		gen := &fakeGenerator{}
		a := newTestAnalyzer(t, store.NullStore{}, gen, opts)

		results, err := a.AnalyzeDocuments(context.Background(), []store.Document{doc})
		require.NoError(t, err)
		assert.Equal(t, TemplateCustom, results[0].Analysis.TemplateUsed)
		assert.Nil(t, results[0].Analysis.TemplateVersion)
		assert.Contains(t, gen.lastPrompt(t), "three bullet points")
	})

	t.Run("unknown name falls back", func(t *testing.T) {
		opts := testOptions()
		opts.Template = "does_not_exist"
		gen := &fakeGenerator{}
		a := newTestAnalyzer(t, store.NullStore{}, gen, opts)

		results, err := a.AnalyzeDocuments(context.Background(), []store.Document{doc})
		require.NoError(t, err)
		assert.Equal(t, "does_not_exist", results[0].Analysis.TemplateUsed)
		assert.Nil(t, results[0].Analysis.TemplateVersion)
		assert.Contains(t, gen.lastPrompt(t), "각 참여자가 무엇을 했는지")
	})

	t.Run("pinned version", func(t *testing.T) {
		opts := testOptions()
		opts.Version = "1.0"
		a := newTestAnalyzer(t, store.NullStore{}, &fakeGenerator{}, opts)

		results, err := a.AnalyzeDocuments(context.Background(), []store.Document{doc})
		require.NoError(t, err)
		require.NotNil(t, results[0].Analysis.TemplateVersion)
		assert.Equal(t, "1.0", *results[0].Analysis.TemplateVersion)
	})

	t.Run("instructions", func(t *testing.T) {
		opts := testOptions()
		opts.Instructions = "Focus on blockers"
		gen := &fakeGenerator{}
		a := newTestAnalyzer(t, store.NullStore{}, gen, opts)

		_, err := a.AnalyzeDocuments(context.Background(), []store.Document{doc})
		require.NoError(t, err)
		assert.Contains(t, gen.lastPrompt(t), "**추가 지시사항:**\nFocus on blockers")
	})
}

func TestFetch_PostFilter(t *testing.T) {
	st := seedMeetings(t,
		store.Document{"title": "Good", "transcript": standup},
		store.Document{"title": "Bad", "transcript": "no speakers here"},
	)
	opts := testOptions()
	opts.Post = transcript.PostFilter{MinParticipants: 2}
	a := newTestAnalyzer(t, st, &fakeGenerator{}, opts)

	meetings, err := a.Fetch(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Good", meetings[0].Title)
}

func TestSave(t *testing.T) {
	st := seedMeetings(t, store.Document{"title": "Standup", "transcript": standup})
	a := newTestAnalyzer(t, st, &fakeGenerator{}, testOptions())

	results, err := a.AnalyzeMeetings(context.Background(), store.Filter{})
	require.NoError(t, err)

	n, err := a.Save(context.Background(), results)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	saved, err := st.All(context.Background(), "meeting_analysis")
	require.NoError(t, err)
	require.Len(t, saved, 1)

	analysis := saved[0]["analysis"].(map[string]any)
	assert.Equal(t, StatusSuccess, analysis["status"])
	assert.Equal(t, "1.1", analysis["template_version"])
	stats := analysis["participant_stats"].(map[string]any)
	assert.Contains(t, stats, "Alice")
	assert.Equal(t, "N/A", saved[0]["meeting_date"])

	n, err = a.Save(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAnalyzeAggregated(t *testing.T) {
	st := seedMeetings(t,
		store.Document{"title": "Monday sync", "transcript": standup, "date": time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)},
		store.Document{"title": "Tuesday sync", "transcript": "[00:00:01] Alice: Shipped the release notes today.", "date": time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)},
	)
	gen := &fakeGenerator{reply: func(string) (string, error) { return "combined review", nil }}
	pub := &recordingPublisher{}
	a := newTestAnalyzer(t, st, gen, testOptions(), WithEvents(pub))

	res, err := a.AnalyzeAggregated(context.Background(), store.Filter{})
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.False(t, res.IsDaily())
	assert.Equal(t, "combined review", res.Analysis)
	assert.Equal(t, TemplateComprehensiveReview, res.TemplateUsed)
	assert.Equal(t, 2, res.MeetingCount)
	assert.ElementsMatch(t, []string{"Monday sync", "Tuesday sync"}, res.MeetingTitles)
	require.Len(t, res.Participants, 2)
	assert.Nil(t, res.Structured)

	prompt := gen.lastPrompt(t)
	assert.Contains(t, prompt, "Alice, Bob")
	assert.NotContains(t, prompt, "실제로 분석된 회의 수")

	require.Len(t, pub.reports, 1)
	assert.Equal(t, "aggregated", pub.reports[0].Kind)

	doc := res.Document()
	assert.Equal(t, "combined review", doc["analysis"])
	assert.Len(t, doc["participants_data"], 2)
	assert.NotContains(t, doc, "target_date")

	n, err := a.SaveReport(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, st.Count("meeting_analysis"))
}

func TestAnalyzeAggregated_NoMeetings(t *testing.T) {
	a := newTestAnalyzer(t, store.NewMemoryStore(), &fakeGenerator{}, testOptions())
	_, err := a.AnalyzeAggregated(context.Background(), store.Filter{})
	assert.True(t, mtaerrors.IsNotFound(err))
}

func TestAggregate_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{reply: func(string) (string, error) {
		return "", &LLMError{Code: mtaerrors.ErrAuthFailed, StatusCode: 401, Message: "HTTP 401"}
	}}
	a := newTestAnalyzer(t, store.NullStore{}, gen, testOptions())
	meetings := a.NormalizeAll(context.Background(), []store.Document{{"title": "Standup", "transcript": standup}})

	res, err := a.Aggregate(context.Background(), meetings, "")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, string(mtaerrors.ErrAuthFailed), res.ErrorCode)
	assert.Equal(t, string(mtaerrors.ErrAuthFailed), res.Document()["error_code"])
}

const dailyJSON = "```json\n" + `{
  "summary": {"overview": {"meeting_count": 1}, "topics": [{"title": "Release"}]},
  "participants": [
    {"name": "Alice", "summary": "opened the meeting", "speaking_percentage": 90},
    {"name": "Alice", "summary": "duplicate"},
    {"name": "Mallory", "summary": "was not there"}
  ]
}` + "\n```"

func TestDailyReport(t *testing.T) {
	st := seedMeetings(t,
		store.Document{"name": "Standup", "content": standup, "createdTime": "2025-01-08T10:00:00.000Z"},
		store.Document{"name": "Yesterday", "content": standup, "createdTime": "2025-01-07T10:00:00.000Z"},
	)
	gen := &fakeGenerator{reply: func(string) (string, error) { return dailyJSON, nil }}
	pub := &recordingPublisher{}
	opts := testOptions()
	opts.Template = TemplateDefault
	a := newTestAnalyzer(t, st, gen, opts, WithEvents(pub))

	res, err := a.DailyReport(context.Background(), time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.True(t, res.IsDaily())
	assert.Equal(t, "2025-01-08", res.TargetDate)
	assert.Equal(t, TemplateDailyReport, res.TemplateUsed)
	require.NotNil(t, res.TemplateVersion)
	assert.Equal(t, "2.0", *res.TemplateVersion)
	assert.Equal(t, 1, res.MeetingCount)
	require.Len(t, res.TargetMeetings, 1)
	assert.Equal(t, "Standup", res.TargetMeetings[0].MeetingTitle)
	assert.Equal(t, "2025-01-08T10:00:00.000Z", res.TargetMeetings[0].CreatedTime)

	prompt := gen.lastPrompt(t)
	assert.Contains(t, prompt, "분석 대상 날짜: 2025-01-08")
	assert.Contains(t, prompt, "실제로 분석된 회의 수는 1개입니다")
	assert.NotContains(t, prompt, "{date}")

	require.NotNil(t, res.Structured)
	participants := res.Structured["participants"].([]any)
	require.Len(t, participants, 1)
	alice := participants[0].(map[string]any)
	assert.Equal(t, "opened the meeting", alice["summary"])
	assert.Equal(t, 1, alice["speak_count"])
	assert.Equal(t, 2, alice["word_count"])
	assert.Equal(t, 33.3, alice["speaking_percentage"])

	require.Len(t, pub.reports, 1)
	assert.Equal(t, "daily", pub.reports[0].Kind)

	res.FullText = "# Daily Work Report"
	n, err := a.SaveReport(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	saved, err := st.All(context.Background(), "daily_reports")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "2025-01-08", saved[0]["target_date"])
	analysis := saved[0]["analysis"].(map[string]any)
	assert.Equal(t, "# Daily Work Report", analysis["full_analysis_text"])
	assert.Contains(t, analysis, "summary")
	assert.NotContains(t, saved[0], "participants_data")
}

func TestDailyReport_MondayIncludesWeekend(t *testing.T) {
	st := seedMeetings(t,
		store.Document{"name": "Saturday hack", "content": standup, "createdTime": "2025-01-04T15:00:00Z"},
		store.Document{"name": "Monday standup", "content": standup, "createdTime": "2025-01-06T09:00:00Z"},
		store.Document{"name": "Last Friday", "content": standup, "createdTime": "2025-01-03T09:00:00Z"},
	)
	gen := &fakeGenerator{reply: func(string) (string, error) { return "plain text report", nil }}
	a := newTestAnalyzer(t, st, gen, testOptions())

	res, err := a.DailyReport(context.Background(), time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, res.MeetingCount)
	assert.ElementsMatch(t, []string{"Saturday hack", "Monday standup"}, res.MeetingTitles)

	// Unstructured output is kept raw.
	assert.Nil(t, res.Structured)
	analysis := res.Document()["analysis"].(map[string]any)
	assert.Equal(t, "plain text report", analysis["_raw"])
}

func TestDailyReport_Errors(t *testing.T) {
	a := newTestAnalyzer(t, store.NewMemoryStore(), &fakeGenerator{}, testOptions())

	_, err := a.DailyReport(context.Background(), time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrWeekend)

	_, err = a.DailyReport(context.Background(), time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	assert.True(t, mtaerrors.IsNotFound(err))
}

func TestMeetingResult_JSON(t *testing.T) {
	a := newTestAnalyzer(t, store.NullStore{}, &fakeGenerator{}, testOptions())
	results, err := a.AnalyzeDocuments(context.Background(), []store.Document{
		{"title": "Standup", "transcript": standup, "date": time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	data, err := results[0].MarshalJSON()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"meeting_date":"2025-01-08`))
	assert.Contains(t, string(data), `"template_version":"1.1"`)
}

func TestDateFromInstructions(t *testing.T) {
	assert.Equal(t, "2025-01-08", dateFromInstructions("be brief\n분석 대상 날짜: 2025-01-08"))
	assert.Empty(t, dateFromInstructions("분석 대상 날짜: soon"))
	assert.Empty(t, dateFromInstructions("nothing"))
}
