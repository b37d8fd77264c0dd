package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ggs134/meeting-transcript-analyzer/config"
)

// outputFormat returns the configured output format, or text when no
// configuration can be loaded.
func (d *CommandDeps) outputFormat() config.OutputFormat {
	cfg, err := d.config()
	if err != nil || cfg.OutputFormat == "" {
		return config.OutputFormatText
	}
	return cfg.OutputFormat
}

// render writes v as JSON or YAML, or calls text for the text format.
func (d *CommandDeps) render(v any, text func(w io.Writer) error) error {
	switch d.outputFormat() {
	case config.OutputFormatJSON:
		return outputJSON(d.out(), v)
	case config.OutputFormatYAML:
		return outputYAML(d.out(), v)
	default:
		return text(d.out())
	}
}

// outputJSON outputs data as JSON.
func outputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// outputYAML outputs data as YAML. Values go through JSON first so json tags
// and custom marshalers apply.
func outputYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(obj); err != nil {
		return err
	}
	return enc.Close()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error { return outputJSON(w, v) }

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error { return outputYAML(w, v) }

// truncate shortens s to maxLen runes with a trailing ellipsis.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// rule is a horizontal separator for text output.
func rule(w io.Writer, width int) {
	fmt.Fprintln(w, strings.Repeat("=", width))
}
