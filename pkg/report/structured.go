package report

import (
	"fmt"
	"strconv"
	"strings"
)

// StructuredMarkdown renders a structured daily report (summary and
// participants) as Markdown sections. Missing or empty fields are skipped.
func StructuredMarkdown(report map[string]any) string {
	var b strings.Builder

	if summary, _ := report["summary"].(map[string]any); len(summary) > 0 {
		b.WriteString("## Summary of Today's Meetings\n\n")

		if overview, _ := summary["overview"].(map[string]any); len(overview) > 0 {
			b.WriteString("### Overall Meeting Overview\n\n")
			fmt.Fprintf(&b, "- Total Number of Meetings: %s\n", scalar(overview["meeting_count"]))
			fmt.Fprintf(&b, "- Total Meeting Time: %s\n", scalar(overview["total_time"]))
			if topics := stringList(overview["main_topics"]); len(topics) > 0 {
				fmt.Fprintf(&b, "- Main Discussion Topics: %s\n", strings.Join(topics, ", "))
			}
			b.WriteString("\n")
		}

		if topics, _ := summary["topics"].([]any); len(topics) > 0 {
			b.WriteString("### Meeting Content by Topic\n\n")
			for _, item := range topics {
				writeTopic(&b, item)
			}
		}

		writeList(&b, "### Key Decisions (Overall Summary)", summary["key_decisions"], "- ")
		writeList(&b, "### Major Achievements and Progress (Overall Summary)", summary["major_achievements"], "- ")
		writeList(&b, "### Common Issues and Blockers (Overall Summary)", summary["common_issues"], "- ")
		b.WriteString("---\n\n")
	}

	participants, _ := report["participants"].([]any)
	for _, item := range participants {
		p, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", name)

		speakingTime := scalarOrEmpty(p["speaking_time"])
		pct := scalarOrEmpty(p["speaking_percentage"])
		if pct == "0" {
			pct = ""
		}
		if speakingTime != "" || pct != "" {
			b.WriteString("### Speaking Time\n\n")
			switch {
			case speakingTime != "" && pct != "":
				fmt.Fprintf(&b, "- %s (%s%% of total)\n", speakingTime, pct)
			case speakingTime != "":
				fmt.Fprintf(&b, "- %s\n", speakingTime)
			default:
				fmt.Fprintf(&b, "- %s%% of total\n", pct)
			}
			if words := scalarOrEmpty(p["word_count"]); words != "" {
				fmt.Fprintf(&b, "- %s statements, %s words\n", scalar(p["speak_count"]), words)
			}
			b.WriteString("\n")
		}

		writeList(&b, "### Today's Key Activities", p["key_activities"], "- ")
		writeList(&b, "### Summary", p["summary"], "- ")
		writeList(&b, "### Progress and Achievements", p["progress"], "- ")
		writeList(&b, "### Completed Tasks", p["completed_tasks"], "- ")
		writeList(&b, "### Issues and Blockers", p["issues"], "- ")
		writeList(&b, "### Next Action Items", p["action_items"], "- [ ] ")
		writeList(&b, "### Planned Tasks", p["planned_tasks"], "- [ ] ")
		writeList(&b, "### Collaboration Status", p["collaboration"], "- ")
		b.WriteString("---\n\n")
	}
	return b.String()
}

func writeTopic(b *strings.Builder, item any) {
	topic, ok := item.(map[string]any)
	if !ok {
		return
	}
	name := scalarOrEmpty(topic["topic"])
	if name == "" {
		name = scalarOrEmpty(topic["title"])
	}
	if name == "" {
		return
	}
	fmt.Fprintf(b, "#### %s\n\n", name)
	if desc := scalarOrEmpty(topic["description"]); desc != "" {
		fmt.Fprintf(b, "%s\n\n", desc)
	}
	if related := stringList(topic["related_meetings"]); len(related) > 0 {
		fmt.Fprintf(b, "- **Related Meetings**: %s\n", strings.Join(related, ", "))
	}
	writeNested(b, "- **Key Discussion Points**:", topic["key_discussions"])
	writeNested(b, "- **Key Decisions**:", topic["key_decisions"])
	writeNested(b, "- **Progress**:", topic["progress"])
	writeNested(b, "- **Issues and Blockers**:", topic["issues"])
	b.WriteString("\n")
}

func writeList(b *strings.Builder, heading string, v any, bullet string) {
	items := stringList(v)
	if len(items) == 0 {
		return
	}
	b.WriteString(heading + "\n\n")
	for _, item := range items {
		b.WriteString(bullet + item + "\n")
	}
	b.WriteString("\n")
}

func writeNested(b *strings.Builder, label string, v any) {
	items := stringList(v)
	if len(items) == 0 {
		return
	}
	b.WriteString(label + "\n")
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

// stringList flattens a JSON value into non-empty display strings. A bare
// string becomes a one-element list.
func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalarOrEmpty(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}

func scalar(v any) string {
	if s := scalarOrEmpty(v); s != "" {
		return s
	}
	return notAvailable
}

func scalarOrEmpty(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	}
	return fmt.Sprint(v)
}
