package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggs134/meeting-transcript-analyzer/config"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

const sampleVTT = `WEBVTT

1 "Alice" (1)
00:00:01.000 --> 00:00:04.000
Let's review the release checklist.

2 "Bob" (2)
00:00:04.000 --> 00:00:09.000
The deployment scripts are ready.
`

func TestLoadTranscriptFile(t *testing.T) {
	dir := t.TempDir()

	vtt := filepath.Join(dir, "Release Review.vtt")
	require.NoError(t, os.WriteFile(vtt, []byte(sampleVTT), 0o644))
	docs, err := loadTranscriptFile(vtt, testNow)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Release Review", docs[0][transcript.FieldTitle])
	assert.Contains(t, docs[0][transcript.FieldTranscript], "Alice: Let's review the release checklist.")
	assert.Equal(t, testNow, docs[0][transcript.FieldDate])

	txt := filepath.Join(dir, "standup.txt")
	require.NoError(t, os.WriteFile(txt, []byte(standup), 0o644))
	docs, err = loadTranscriptFile(txt, testNow)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, standup, docs[0][transcript.FieldTranscript])

	js := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(js, []byte(`[{"title": "A", "transcript": "x"}, {"name": "B", "content": "y"}]`), 0o644))
	docs, err = loadTranscriptFile(js, testNow)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = loadTranscriptFile(filepath.Join(dir, "missing.txt"), testNow)
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "standup.txt")
	require.NoError(t, os.WriteFile(path, []byte(standup), 0o644))

	require.NoError(t, env.run(NewParseCommand(env.deps), path))
	out := env.out.String()
	assert.Contains(t, out, "Title:      standup")
	assert.Contains(t, out, "Statements: 2")
	assert.Contains(t, out, "Speakers:   Alice, Bob")
	assert.Contains(t, out, "[00:00:05] Bob: Morning, status is green.")

	env.cfg.OutputFormat = config.OutputFormatJSON
	env.out.Reset()
	require.NoError(t, env.run(NewParseCommand(env.deps), path))
	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &parsed))
	require.Len(t, parsed, 1)
	assert.Len(t, parsed[0]["parsed_transcript"], 2)
}

func TestParseCommand_Formatted(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "standup.txt")
	require.NoError(t, os.WriteFile(path, []byte(standup), 0o644))

	require.NoError(t, env.run(NewParseCommand(env.deps), path, "--formatted"))
	out := env.out.String()
	assert.Contains(t, out, "standup")
	assert.Contains(t, out, "Alice")
	assert.NotContains(t, out, "Statements:")
}

func TestParseMeetings(t *testing.T) {
	env := newTestEnv(t)
	parser := transcript.NewParser()
	normalizer := transcript.NewDocumentNormalizer(parser)
	meetings := []*transcript.CanonicalDocument{
		normalizer.Normalize(transcript.Document{"_id": "ok", "title": "Standup", "transcript": standup}),
		normalizer.Normalize(transcript.Document{"_id": "one", "title": "1:1", "transcript": "[00:00:01] Carol: Quick one."}),
		normalizer.Normalize(transcript.Document{"_id": "empty", "title": "Empty", "transcript": ""}),
	}

	out := parseMeetings(meetings, parser, env.deps)

	s := out.Summary
	assert.Equal(t, 3, s.TotalMeetings)
	assert.Equal(t, 2, s.SuccessCount)
	assert.Equal(t, 1, s.FailCount)
	assert.Equal(t, 3, s.TotalStatements)
	assert.Equal(t, 3, s.UniqueParticipants)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, s.ParticipantsList)
	assert.Equal(t, 1, s.MinParticipants)
	assert.Equal(t, 2, s.MaxParticipants)
	assert.InDelta(t, 1.5, s.AvgParticipants, 0.001)

	require.Len(t, out.FailedMeetings, 1)
	failed := out.FailedMeetings[0]
	assert.Equal(t, "empty", failed.ID)
	assert.Equal(t, string(transcript.FailureEmpty), failed.FailureCode)
	assert.Equal(t, transcript.FailureEmpty.Description(), failed.FailureReason)

	m := env.deps.Metrics
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UtterancesParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseFailures.WithLabelValues(string(transcript.FailureEmpty))))
}

func TestParseTestCommand_WritesFailedFile(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		store.Document{"_id": "ok", "title": "Standup", "transcript": standup, "date": time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)},
		store.Document{"_id": "ended", "title": "Cut short", "transcript": "Transcription ended after 00:10:00", "date": time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)},
	)
	failedPath := filepath.Join(t.TempDir(), "failed.json")

	require.NoError(t, env.run(NewParseTestCommand(env.deps), "--failed-file", failedPath))
	out := env.out.String()
	assert.Contains(t, out, "Meetings:     2")
	assert.Contains(t, out, "Failed:       1")
	assert.Contains(t, out, "Success rate: 50.0%")
	assert.Equal(t, 0, env.gen.calls())

	data, err := os.ReadFile(failedPath)
	require.NoError(t, err)
	var ff failedFile
	require.NoError(t, json.Unmarshal(data, &ff))
	assert.Equal(t, 1, ff.TotalFailed)
	require.Len(t, ff.FailedMeetings, 1)
	assert.Equal(t, "ended", ff.FailedMeetings[0].ID)
	assert.Equal(t, string(transcript.FailureTranscriptionEnded), ff.FailedMeetings[0].FailureCode)

	ids, err := loadFailedIDs(failedPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"ended"}, ids)
}

func TestParseTestCommand_NoFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, store.Document{"_id": "ok", "title": "Standup", "transcript": standup})
	failedPath := filepath.Join(t.TempDir(), "failed.json")

	require.NoError(t, env.run(NewParseTestCommand(env.deps), "--failed-file", failedPath))
	_, err := os.Stat(failedPath)
	assert.True(t, os.IsNotExist(err), "no file is written when everything parses")
}
