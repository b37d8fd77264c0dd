// Package store is the meeting document store: a find/insert contract over
// raw documents with MongoDB, PostgreSQL, in-memory and null backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// Document is a raw stored record. The _id value is opaque.
type Document = transcript.Document

// ErrNotSupported is returned when a backend lacks an optional capability.
var ErrNotSupported = errors.New("operation not supported by store")

// Filter selects documents from one collection. Zero fields do not constrain.
type Filter struct {
	Collection    string
	Date          *transcript.DateRange
	IDs           []any
	TitleContains string
	Limit         int
}

// DocumentStore finds and inserts raw documents.
type DocumentStore interface {
	Find(ctx context.Context, f Filter) ([]Document, error)
	Insert(ctx context.Context, collection string, docs []Document) (int, error)
	Close(ctx context.Context) error
}

// Deleter removes documents by _id.
type Deleter interface {
	Delete(ctx context.Context, collection string, ids []any) (int, error)
}

// Lister returns every document in a collection.
type Lister interface {
	All(ctx context.Context, collection string) ([]Document, error)
}

// Move copies docs into the target collection, then deletes them from the
// source. Documents are inserted with their original _id.
func Move(ctx context.Context, s DocumentStore, from, to string, docs []Document) (int, error) {
	d, ok := s.(Deleter)
	if !ok {
		return 0, fmt.Errorf("moving documents: %w", ErrNotSupported)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	inserted, err := s.Insert(ctx, to, docs)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", to, err)
	}

	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc["_id"]; ok {
			ids = append(ids, id)
		}
	}
	if _, err := d.Delete(ctx, from, ids); err != nil {
		return inserted, fmt.Errorf("deleting from %s after copying %d documents: %w", from, inserted, err)
	}
	return inserted, nil
}

// IDKey renders an _id for comparison across backends. ObjectIDs render as hex.
func IDKey(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ParseID turns a 24-hex string into an ObjectID and leaves anything else as a string.
func ParseID(s string) any {
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid
	}
	return s
}

// DocumentTime returns the date a stored record sorts by: its date field, or
// its createdTime. ok is false when neither is usable.
func DocumentTime(doc Document) (time.Time, bool) {
	switch v := doc[transcript.FieldDate].(type) {
	case time.Time:
		return v, !v.IsZero()
	case primitive.DateTime:
		return v.Time(), true
	case string:
		if t, _, err := transcript.ParseCreatedTime(v); err == nil {
			return t, true
		}
	}
	switch v := doc[transcript.FieldCreatedTime].(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		if t, _, err := transcript.ParseCreatedTime(v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isoUTC formats t the way Drive exports write createdTime.
func isoUTC(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02T15:04:05.000000") + "Z"
	}
	return t.Format("2006-01-02T15:04:05") + "Z"
}

// matches applies f to a document in process. Used by backends without a query language.
func matches(doc Document, f Filter) bool {
	if len(f.IDs) > 0 {
		key := IDKey(doc[transcript.FieldID])
		found := false
		for _, id := range f.IDs {
			if IDKey(id) == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.TitleContains != "" {
		kw := strings.ToLower(f.TitleContains)
		title, _ := doc[transcript.FieldTitle].(string)
		name, _ := doc[transcript.FieldName].(string)
		if !strings.Contains(strings.ToLower(title), kw) && !strings.Contains(strings.ToLower(name), kw) {
			return false
		}
	}

	if !f.Date.IsZero() {
		t, ok := DocumentTime(doc)
		if !ok || !f.Date.Contains(t) {
			return false
		}
	}
	return true
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
