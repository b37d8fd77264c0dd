package meeting

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/contentid"
	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
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

func newTestImporter(t *testing.T, st store.DocumentStore, opts ...ImporterOption) *Importer {
	t.Helper()
	opts = append([]ImporterOption{
		WithImportLogger(logging.NewNopLogger()),
		WithImportClock(func() time.Time { return time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC) }),
	}, opts...)
	im, err := NewImporter(st, "meetings", opts...)
	require.NoError(t, err)
	return im
}

func TestNewImporter_Validation(t *testing.T) {
	_, err := NewImporter(nil, "meetings")
	assert.True(t, mtaerrors.IsNotConfigured(err))

	_, err = NewImporter(store.NewMemoryStore(), "")
	assert.True(t, mtaerrors.IsValidation(err))
}

func TestImport_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Release Review-20250108 1000-1.vtt"), sampleVTT)
	writeFile(t, filepath.Join(dir, "drive.json"), `[{"name": "Drive", "createdTime": "2025-01-08T01:00:00Z", "content": "x"}]`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{oops`)

	st := store.NewMemoryStore()
	res, err := newTestImporter(t, st).Import(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, filepath.Join(dir, "broken.json"), res.Skipped[0].Path)
	assert.Equal(t, 2, st.Count("meetings"))

	var native transcript.Document
	for _, d := range res.Documents {
		if transcript.IsNative(d) {
			native = d
		}
	}
	require.NotNil(t, native)
	assert.Equal(t, contentid.TypeMeeting, contentid.TypeOf(native["_id"].(string)))
	assert.Equal(t, "Release Review", native["title"])
	assert.Equal(t, "release-review-20250108", native[FieldMeetingID])

	// The imported transcript parses with the core parser.
	canon := transcript.NewDocumentNormalizer(transcript.NewParser()).Normalize(native)
	d := transcript.Diagnose(canon, nil)
	assert.True(t, d.OK)
	assert.Equal(t, 2, d.UtteranceCount)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, d.Participants)
}

func TestImport_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.vtt"), sampleVTT)

	st := store.NewMemoryStore()
	res, err := newTestImporter(t, st, WithDryRun(true)).Import(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 1)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 0, st.Count("meetings"))
}

func TestImport_StrictSkipsUnparseable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ended.txt"), "Transcription ended after 00:00:05")
	writeFile(t, filepath.Join(dir, "good.vtt"), sampleVTT)

	st := store.NewMemoryStore()
	res, err := newTestImporter(t, st, WithStrictParse(true)).Import(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, string(transcript.FailureTranscriptionEnded), res.Skipped[0].Reason)
}

func TestImport_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.vtt"), sampleVTT)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestImporter(t, store.NewMemoryStore()).Import(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
