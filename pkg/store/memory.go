package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// MemoryStore keeps collections in process. Documents are copied on the way
// in and out, so callers may mutate what they hold.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Document)}
}

// Find returns matching documents in insertion order.
func (m *MemoryStore) Find(_ context.Context, f Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, doc := range m.collections[f.Collection] {
		if !matches(doc, f) {
			continue
		}
		out = append(out, cloneDocument(doc))
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Insert stores copies of docs, assigning an ObjectID where _id is missing.
// The assigned id is written back into the caller's document.
func (m *MemoryStore) Insert(_ context.Context, collection string, docs []Document) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		if doc[transcript.FieldID] == nil {
			doc[transcript.FieldID] = primitive.NewObjectID()
		}
		m.collections[collection] = append(m.collections[collection], cloneDocument(doc))
	}
	return len(docs), nil
}

// Delete removes documents whose _id matches one of ids.
func (m *MemoryStore) Delete(_ context.Context, collection string, ids []any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[IDKey(id)] = true
	}

	kept := m.collections[collection][:0]
	removed := 0
	for _, doc := range m.collections[collection] {
		if drop[IDKey(doc[transcript.FieldID])] {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	m.collections[collection] = kept
	return removed, nil
}

// All returns every document in collection.
func (m *MemoryStore) All(ctx context.Context, collection string) ([]Document, error) {
	return m.Find(ctx, Filter{Collection: collection})
}

// Count returns the number of documents in collection.
func (m *MemoryStore) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// NullStore finds nothing and discards inserts.
type NullStore struct{}

func (NullStore) Find(context.Context, Filter) ([]Document, error) { return nil, nil }

func (NullStore) Insert(context.Context, string, []Document) (int, error) {
	return 0, nil
}

func (NullStore) Close(context.Context) error { return nil }
