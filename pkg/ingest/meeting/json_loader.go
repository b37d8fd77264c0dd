package meeting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// LoadJSONDocuments reads one document or an array of documents. MongoDB
// extended JSON wrappers ({"$oid": ...}, {"$date": ...}) are unwrapped so
// mongoexport output can be imported directly.
func LoadJSONDocuments(r io.Reader) ([]transcript.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading json: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty json file: %w", mtaerrors.ErrValidation)
	}

	var raw []map[string]any
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding json array: %w", err)
		}
	} else {
		var one map[string]any
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decoding json document: %w", err)
		}
		raw = []map[string]any{one}
	}

	docs := make([]transcript.Document, 0, len(raw))
	for _, m := range raw {
		if m == nil {
			continue
		}
		doc := make(transcript.Document, len(m))
		for k, v := range m {
			doc[k] = unwrapExtended(v)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func unwrapExtended(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if oid, ok := t["$oid"].(string); ok {
				return store.ParseID(oid)
			}
			if d, ok := t["$date"]; ok {
				if ts, ok := extendedDate(d); ok {
					return ts
				}
			}
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = unwrapExtended(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = unwrapExtended(item)
		}
		return out
	}
	return v
}

func extendedDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, d); err == nil {
			return t, true
		}
	case float64:
		return time.UnixMilli(int64(d)).UTC(), true
	case map[string]any:
		if n, ok := d["$numberLong"].(string); ok {
			var ms int64
			if _, err := fmt.Sscan(n, &ms); err == nil {
				return time.UnixMilli(ms).UTC(), true
			}
		}
	}
	return time.Time{}, false
}
