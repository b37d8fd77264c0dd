package analysis

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

var (
	fencePattern  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

var summaryKeys = []string{"overview", "topics", "key_decisions", "major_achievements", "common_issues"}

// ParseDailyReportJSON extracts the structured daily report from model
// output. It returns false when no JSON object parses or when the parsed
// object carries no data, in which case the raw text should be kept.
func ParseDailyReportJSON(text string) (map[string]any, bool) {
	body := strings.TrimSpace(text)
	body = fencePattern.ReplaceAllString(body, "$1")
	if m := objectPattern.FindString(body); m != "" {
		body = m
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, false
	}

	summary := map[string]any{}
	if raw, ok := parsed["summary"].(map[string]any); ok {
		summary["overview"] = orDefault(raw["overview"], map[string]any{})
		for _, k := range summaryKeys[1:] {
			summary[k] = orDefault(raw[k], []any{})
		}
	}

	participants := []any{}
	if p, ok := parsed["participants"].([]any); ok {
		participants = p
	} else if p, ok := parsed["participants_analysis"].([]any); ok {
		participants = p
	}

	out := map[string]any{"summary": summary, "participants": participants}
	if !hasReportData(out) {
		return nil, false
	}
	return out, true
}

func orDefault(v, def any) any {
	if v == nil {
		return def
	}
	return v
}

func hasReportData(report map[string]any) bool {
	if p, _ := report["participants"].([]any); len(p) > 0 {
		return true
	}
	summary, _ := report["summary"].(map[string]any)
	for _, k := range summaryKeys {
		switch v := summary[k].(type) {
		case map[string]any:
			if len(v) > 0 {
				return true
			}
		case []any:
			if len(v) > 0 {
				return true
			}
		case nil:
		default:
			return true
		}
	}
	return false
}

// MergeParticipantShares overwrites model-reported participant figures with
// measured ones. Entries are matched by name; duplicates and names absent
// from shares are dropped. speaking_percentage is recomputed from word counts.
func MergeParticipantShares(report map[string]any, shares []transcript.ParticipantShare) {
	byName := make(map[string]transcript.ParticipantShare, len(shares))
	total := 0
	for _, s := range shares {
		byName[s.Name] = s
		total += s.WordCount
	}

	list, _ := report["participants"].([]any)
	seen := make(map[string]bool, len(list))
	merged := make([]any, 0, len(list))
	for _, item := range list {
		p, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		share, known := byName[name]
		if !known || seen[name] {
			continue
		}
		seen[name] = true

		p["speak_count"] = share.SpeakCount
		p["word_count"] = share.WordCount
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(share.WordCount)/float64(total)*1000) / 10
		}
		p["speaking_percentage"] = pct
		merged = append(merged, p)
	}
	report["participants"] = merged
}
