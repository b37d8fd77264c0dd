// Package contentid generates short identifiers for imported meetings and
// generated reports.
//
// ID Format: <type:2>-<base62_ts:4><base62_rand:4> (11 chars total including dash)
//
// Types:
//   - mt = meeting imported from a local transcript file
//   - tr = transcript segment
//   - rp = report file
//
// The timestamp component is microseconds since epoch modulo 62^4, so IDs
// created close together share no ordering guarantee.
package contentid

import (
	"crypto/rand"
	"fmt"
	"time"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

const (
	TypeMeeting    = "mt"
	TypeTranscript = "tr"
	TypeReport     = "rp"
)

const (
	idLength       = 11
	base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	base62Max      = 62 * 62 * 62 * 62
)

var validTypes = map[string]bool{
	TypeMeeting:    true,
	TypeTranscript: true,
	TypeReport:     true,
}

// ID is a parsed identifier.
type ID struct {
	Type      string
	Timestamp string
	Random    string
	Raw       string
}

func (i ID) String() string {
	return i.Raw
}

// New generates an ID of the given type. It panics on an unknown type.
func New(typ string) string {
	return NewAt(typ, time.Now())
}

// NewAt generates an ID whose timestamp component is derived from t.
func NewAt(typ string, t time.Time) string {
	if !validTypes[typ] {
		panic(fmt.Sprintf("contentid: invalid type: %q", typ))
	}
	ts := encodeBase62(uint64(t.UnixMicro()) % base62Max)
	return typ + "-" + ts + randomBase62(4)
}

// Parse validates id. Errors wrap errors.ErrValidation.
func Parse(id string) (ID, error) {
	if len(id) != idLength {
		return ID{}, fmt.Errorf("content id %q: expected %d characters, got %d: %w", id, idLength, len(id), mtaerrors.ErrValidation)
	}
	if id[2] != '-' {
		return ID{}, fmt.Errorf("content id %q: missing dash: %w", id, mtaerrors.ErrValidation)
	}
	prefix := id[:2]
	if !validTypes[prefix] {
		return ID{}, fmt.Errorf("content id %q: unknown type %q: %w", id, prefix, mtaerrors.ErrValidation)
	}
	suffix := id[3:]
	if !isBase62(suffix) {
		return ID{}, fmt.Errorf("content id %q: invalid characters: %w", id, mtaerrors.ErrValidation)
	}
	return ID{Type: prefix, Timestamp: suffix[:4], Random: suffix[4:], Raw: id}, nil
}

// IsValid reports whether id parses.
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// TypeOf returns the type prefix of a valid id, or "".
func TypeOf(id string) string {
	parsed, err := Parse(id)
	if err != nil {
		return ""
	}
	return parsed.Type
}

func encodeBase62(n uint64) string {
	out := make([]byte, 4)
	for i := 3; i >= 0; i-- {
		out[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(out)
}

// randomBase62 uses rejection sampling: bytes >= 248 would bias the modulo.
func randomBase62(n int) string {
	const maxUnbiased = 248
	out := make([]byte, n)
	var buf [16]byte
	for i := 0; i < n; {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("contentid: reading random bytes: %v", err))
		}
		for _, b := range buf {
			if i == n {
				break
			}
			if b < maxUnbiased {
				out[i] = base62Alphabet[b%62]
				i++
			}
		}
	}
	return string(out)
}

func isBase62(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
