package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

func TestFilterFlags_Date(t *testing.T) {
	f := filterFlags{date: "2025-01-08", start: "2024-12-01", title: "sync", limit: 5}
	got, err := f.filter(time.UTC)
	require.NoError(t, err)

	require.NotNil(t, got.Date)
	assert.Equal(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), *got.Date.Gte)
	assert.Equal(t, time.Date(2025, 1, 8, 23, 59, 59, 999999000, time.UTC), *got.Date.Lte)
	assert.Equal(t, "sync", got.TitleContains)
	assert.Equal(t, 5, got.Limit)
}

func TestFilterFlags_Range(t *testing.T) {
	got, err := (&filterFlags{start: "2025-01-01", end: "2025-01-31"}).filter(time.UTC)
	require.NoError(t, err)
	require.NotNil(t, got.Date)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *got.Date.Gte)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999000, time.UTC), *got.Date.Lte)

	got, err = (&filterFlags{start: "2025-01-01"}).filter(time.UTC)
	require.NoError(t, err)
	require.NotNil(t, got.Date)
	assert.Nil(t, got.Date.Lte)

	got, err = (&filterFlags{}).filter(time.UTC)
	require.NoError(t, err)
	assert.Nil(t, got.Date)
}

func TestFilterFlags_IDs(t *testing.T) {
	hex := "6777b9b0c2a4f1a2b3c4d5e6"
	got, err := (&filterFlags{ids: []string{hex, "mt-abc123"}}).filter(time.UTC)
	require.NoError(t, err)
	require.Len(t, got.IDs, 2)
	assert.IsType(t, primitive.ObjectID{}, got.IDs[0])
	assert.Equal(t, "mt-abc123", got.IDs[1])
}

func TestFilterFlags_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags filterFlags
	}{
		{"bad date", filterFlags{date: "2025/01/08"}},
		{"bad start", filterFlags{start: "yesterday"}},
		{"bad end", filterFlags{end: "2025-13-01"}},
		{"start after end", filterFlags{start: "2025-02-01", end: "2025-01-01"}},
		{"negative limit", filterFlags{limit: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.filter(time.UTC)
			require.Error(t, err)
			assert.True(t, mtaerrors.IsValidation(err))
		})
	}
}

func TestFilterFlags_Bind(t *testing.T) {
	c := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	var f filterFlags
	var p postFilterFlags
	f.bind(c)
	p.bind(c)

	c.SetArgs([]string{"--id", "a", "--id", "b", "--limit", "3", "--participant", "Alice", "--min-length", "100"})
	require.NoError(t, c.Execute())

	assert.Equal(t, []string{"a", "b"}, f.ids)
	assert.Equal(t, 3, f.limit)
	post := p.postFilter()
	assert.Equal(t, "Alice", post.RequiredParticipant)
	assert.Equal(t, 100, post.MinLength)
}
