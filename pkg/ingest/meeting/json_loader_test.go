package meeting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

func TestLoadJSONDocuments_Array(t *testing.T) {
	input := `[
	  {"_id": {"$oid": "65a1b2c3d4e5f60718293a4b"}, "title": "Sync", "date": {"$date": "2025-01-08T09:00:00Z"}, "transcript": "A: hi"},
	  {"name": "Drive doc", "createdTime": "2025-01-08T10:00:00.000Z", "content": "body", "meta": {"ts": {"$date": {"$numberLong": "1736330400000"}}}},
	  null
	]`

	docs, err := LoadJSONDocuments(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	oid, ok := docs[0]["_id"].(primitive.ObjectID)
	require.True(t, ok)
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", oid.Hex())
	assert.Equal(t, time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC), docs[0]["date"])

	assert.Equal(t, "2025-01-08T10:00:00.000Z", docs[1]["createdTime"])
	meta := docs[1]["meta"].(map[string]any)
	assert.Equal(t, time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC), meta["ts"])
}

func TestLoadJSONDocuments_Single(t *testing.T) {
	docs, err := LoadJSONDocuments(strings.NewReader(`{"title": "One", "participants": ["A", "B"]}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []any{"A", "B"}, docs[0]["participants"])
}

func TestLoadJSONDocuments_Errors(t *testing.T) {
	_, err := LoadJSONDocuments(strings.NewReader("  "))
	assert.True(t, mtaerrors.IsValidation(err))

	_, err = LoadJSONDocuments(strings.NewReader("{not json"))
	assert.Error(t, err)

	_, err = LoadJSONDocuments(strings.NewReader(`["a"]`))
	assert.Error(t, err)
}
