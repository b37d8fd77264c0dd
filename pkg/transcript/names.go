package transcript

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultAliases maps known spelling variants to canonical participant names.
var DefaultAliases = map[string]string{
	"Nam":            "Nam Pham",
	"Nam Phạm Tiến":  "Nam Pham",
	"Nam Tiến":       "Nam Pham",
	"Nakamura Chiko": "Chiko Nakamura",
	"Geonwoo Shin":   "Thomas Shin",
}

var (
	// Python's \s also matches Unicode space separators such as U+00A0.
	whitespaceRun  = regexp.MustCompile(`[\s\p{Zs}]+`)
	bracketedLabel = regexp.MustCompile(`^([^\[\]]+)\[.*?\]$`)
)

// AliasTable is an immutable variant-to-canonical name mapping.
// Chains are resolved at construction so a canonical value never maps further.
type AliasTable struct {
	canonical map[string]string
}

// NewAliasTable cleans keys and values and flattens alias chains.
// Variants caught in a cycle resolve to themselves and are dropped.
func NewAliasTable(aliases map[string]string) *AliasTable {
	cleaned := make(map[string]string, len(aliases))
	for variant, canonical := range aliases {
		v := collapseSpaces(variant)
		c := cleanLabel(canonical)
		if v == "" || c == "" || v == c {
			continue
		}
		cleaned[v] = c
	}

	resolved := make(map[string]string, len(cleaned))
	for variant := range cleaned {
		seen := map[string]bool{variant: true}
		target := cleaned[variant]
		for {
			next, ok := cleaned[target]
			if !ok || seen[target] {
				break
			}
			seen[target] = true
			target = next
		}
		if target != variant {
			resolved[variant] = target
		}
	}
	return &AliasTable{canonical: resolved}
}

// DefaultAliasTable returns a table built from DefaultAliases.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(DefaultAliases)
}

// Lookup returns the canonical name for variant.
func (t *AliasTable) Lookup(variant string) (string, bool) {
	if t == nil {
		return "", false
	}
	c, ok := t.canonical[variant]
	return c, ok
}

// Len returns the number of variants in the table.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.canonical)
}

// Variants returns the known variant spellings in sorted order.
func (t *AliasTable) Variants() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.canonical))
	for v := range t.canonical {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// NameNormalizer maps raw speaker labels to canonical participant names.
type NameNormalizer struct {
	aliases *AliasTable
}

// NewNameNormalizer returns a normalizer over aliases. A nil table uses the defaults.
func NewNameNormalizer(aliases *AliasTable) *NameNormalizer {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	return &NameNormalizer{aliases: aliases}
}

// Normalize canonicalizes a speaker label. It is idempotent.
//
// A trailing bracketed annotation such as "Jane Doe [Acme]" is dropped, runs of
// whitespace collapse to one space, and known aliases are replaced.
func (n *NameNormalizer) Normalize(name string) string {
	if name == "" {
		return name
	}
	name = strings.TrimSpace(norm.NFC.String(name))

	if canonical, ok := n.aliases.Lookup(name); ok {
		return canonical
	}

	name = cleanLabel(name)
	if canonical, ok := n.aliases.Lookup(name); ok {
		return canonical
	}
	return name
}

// Aliases returns the table backing the normalizer.
func (n *NameNormalizer) Aliases() *AliasTable {
	return n.aliases
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if m := bracketedLabel.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(norm.NFC.String(s), " "))
}
