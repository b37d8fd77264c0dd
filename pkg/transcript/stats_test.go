package transcript

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractParticipantStats(t *testing.T) {
	utterances := []Utterance{
		{Timestamp: "00:00:01", Speaker: "Bob", Text: "hello there everyone"},
		{Timestamp: "00:00:05", Speaker: "Alice", Text: "hi"},
		{Timestamp: "00:00:09", Speaker: "Bob", Text: "let's   start"},
	}

	stats := ExtractParticipantStats(utterances)
	require.Equal(t, 2, stats.Len())
	assert.Equal(t, []string{"Bob", "Alice"}, stats.Speakers())

	bob, ok := stats.Get("Bob")
	require.True(t, ok)
	assert.Equal(t, 2, bob.SpeakCount)
	assert.Equal(t, 5, bob.TotalWords)
	assert.Equal(t, []string{"00:00:01", "00:00:09"}, bob.Timestamps)
	assert.Equal(t, []string{"hello there everyone", "let's   start"}, bob.Statements)
	assert.Equal(t, "00:00:01", bob.FirstTimestamp())
	assert.Equal(t, "00:00:09", bob.LastTimestamp())
}

func TestExtractParticipantStats_SpeakCountsSumToUtterances(t *testing.T) {
	utterances := NewParser().Parse("Alice: a b\nBob: c\nAlice: d\n[00:01] Carol: e f g")

	total := 0
	for _, e := range ExtractParticipantStats(utterances).Entries() {
		total += e.Stats.SpeakCount
	}
	assert.Equal(t, len(utterances), total)
}

func TestExtractParticipantStats_NoiseNeverBecomesSpeaker(t *testing.T) {
	text := "[00:00:01] Alice: wrapping up\nTranscription ended after 00:45:00\n00:45:00 Transcription ended after 00:45:00"

	stats := ExtractParticipantStats(NewParser().Parse(text))
	assert.Equal(t, []string{"Alice"}, stats.Speakers())
	for _, name := range stats.Speakers() {
		assert.NotContains(t, name, "Transcription")
	}
}

func TestExtractParticipantStats_AliasesShareOneEntry(t *testing.T) {
	text := "[00:00:01] Nam: hi there\n[00:00:05] Alice: ok\n[00:00:09] Nam Pham [TRH]: one two three"

	stats := ExtractParticipantStats(NewParser().Parse(text))
	require.Equal(t, 2, stats.Len())

	nam, ok := stats.Get("Nam Pham")
	require.True(t, ok)
	assert.Equal(t, 2, nam.SpeakCount)
	assert.Equal(t, 5, nam.TotalWords)
	assert.Equal(t, []string{"00:00:01", "00:00:09"}, nam.Timestamps)

	_, ok = stats.Get("Nam")
	assert.False(t, ok)
}

func TestStatsMap_MarshalJSONKeepsOrder(t *testing.T) {
	stats := ExtractParticipantStats([]Utterance{
		{Timestamp: "00:00:01", Speaker: "Zed", Text: "one"},
		{Timestamp: "00:00:02", Speaker: "Amy", Text: "two words"},
	})

	data, err := json.Marshal(stats)
	require.NoError(t, err)

	out := string(data)
	assert.Less(t, strings.Index(out, `"Zed"`), strings.Index(out, `"Amy"`))
	assert.Contains(t, out, `"Amy":{"speak_count":1,"total_words":2,"timestamps":["00:00:02"],"statements":["two words"]}`)
}

func TestStatsMap_Empty(t *testing.T) {
	data, err := json.Marshal(ExtractParticipantStats(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 3, CountWords("  one\ttwo\nthree "))
	assert.Equal(t, 2, CountWords("안녕하세요 여러분"))
}
