package meeting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVTT_WebexHeaders(t *testing.T) {
	vttContent := `WEBVTT

1 "" (0)
00:00:00.000 --> 00:00:05.579
Okay, that sounds good. Thanks. All right, 321.

2 "Alan Dickens" (1262511360)
00:00:05.579 --> 00:00:06.858
Go.

3 "Mitul Mehta" (3330436864)
00:00:06.858 --> 00:00:34.950
Alright, thanks everyone for joining today.
Note: this is the agenda.
`

	result, err := ParseVTT(strings.NewReader(vttContent))
	require.NoError(t, err)

	require.Len(t, result.Segments, 3)
	assert.Equal(t, []string{"Alan Dickens", "Mitul Mehta"}, result.Speakers)
	assert.Equal(t, "", result.Segments[0].Speaker)
	assert.Equal(t, Segment{Speaker: "Alan Dickens", Text: "Go.", StartMs: 5579, EndMs: 6858}, result.Segments[1])
	// A colon inside a speaker's cue is not a new speaker.
	assert.Equal(t, "Alright, thanks everyone for joining today. Note: this is the agenda.", result.Segments[2].Text)
	assert.Equal(t, 34, result.DurationSeconds)
	assert.Equal(t, FormatVTT, result.Format)
}

func TestParseVTT_VoiceTags(t *testing.T) {
	vttContent := `WEBVTT

NOTE generated by Teams
still part of the note

intro
00:00:01.000 --> 00:00:04.000
<v Alice Kim>Hello everyone.</v>

00:00:04.000 --> 00:00:09.500
<v.loud Bob>Hi <b>Alice</b>.</v>
`

	result, err := ParseVTT(strings.NewReader(vttContent))
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Alice Kim", result.Segments[0].Speaker)
	assert.Equal(t, "Hello everyone.", result.Segments[0].Text)
	assert.Equal(t, "Bob", result.Segments[1].Speaker)
	assert.Equal(t, "Hi Alice.", result.Segments[1].Text)
	assert.Equal(t, 9, result.DurationSeconds)
}

func TestParseVTT_SpeakerPrefix(t *testing.T) {
	vttContent := `WEBVTT

1
00:01.000 --> 00:03.000
김철수: 안녕하세요.

2
01:02:03.000 --> 01:02:05,250
Lee: 네, 시작하죠.
`

	result, err := ParseVTT(strings.NewReader(vttContent))
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	assert.Equal(t, "김철수", result.Segments[0].Speaker)
	assert.Equal(t, "안녕하세요.", result.Segments[0].Text)
	assert.Equal(t, 1000, result.Segments[0].StartMs)
	assert.Equal(t, 3723000, result.Segments[1].StartMs)
	assert.Equal(t, 3725250, result.Segments[1].EndMs)
	assert.Equal(t, []string{"김철수", "Lee"}, result.Speakers)
}

func TestParseVTT_Empty(t *testing.T) {
	result, err := ParseVTT(strings.NewReader("WEBVTT\n\n"))
	require.NoError(t, err)
	assert.Empty(t, result.Segments)
	assert.Empty(t, result.Speakers)
	assert.Equal(t, 0, result.DurationSeconds)
}

func TestParseVTTTimestamp(t *testing.T) {
	tests := map[string]int{
		"00:00:05.579": 5579,
		"01:30:00.000": 5400000,
		"02:03.004":    123004,
		"00:00:01,500": 1500,
		"garbage":      0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseVTTTimestamp(in), in)
	}
}
