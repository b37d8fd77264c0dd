package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
)

// NewTemplatesCommand creates the 'templates' command group.
func NewTemplatesCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and inspect prompt templates",
		Long: `List and inspect the versioned prompt templates used for analysis.

Templates come from the JSON file set in templates.file, or the built-in set
(default, comprehensive_review, daily_report, my_summary) when none is
configured. "latest" resolves to the version flagged is_latest, otherwise to
the highest version number.

Placeholders substituted in template text:
  {date}            meeting date
  {meetings_data}   the formatted transcript block
  {participants}    comma-separated participant list

Examples:
  mta templates list
  mta templates show daily_report
  mta templates show default --version 1.0`,
		Aliases: []string{"template"},
	}

	cmd.AddCommand(newTemplatesListCommand(deps))
	cmd.AddCommand(newTemplatesShowCommand(deps))
	return cmd
}

func newTemplatesListCommand(deps *CommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List templates and their versions",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplatesList(cmd.Context(), deps)
		},
	}
}

func newTemplatesShowCommand(deps *CommandDeps) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a template's text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplatesShow(cmd.Context(), deps, args[0], version)
		},
	}
	cmd.Flags().StringVar(&version, "version", analysis.VersionLatest, "Template version")
	return cmd
}

func templateRegistry(deps *CommandDeps) (*analysis.TemplateRegistry, error) {
	cfg, err := deps.config()
	if err != nil {
		return nil, err
	}
	return loadTemplates(cfg)
}

func runTemplatesList(_ context.Context, deps *CommandDeps) error {
	reg, err := templateRegistry(deps)
	if err != nil {
		return err
	}
	infos := reg.List()
	return deps.render(infos, func(w io.Writer) error {
		fmt.Fprintf(w, "%-24s  %-8s  %-16s  %s\n", "NAME", "LATEST", "VERSIONS", "DESCRIPTION")
		for _, info := range infos {
			fmt.Fprintf(w, "%-24s  %-8s  %-16s  %s\n",
				info.Name, info.LatestVersion, strings.Join(info.Versions, ","), truncate(info.Description, 60))
		}
		return nil
	})
}

// templateView is the structured output of 'templates show'.
type templateView struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	Content     string `json:"content"`
}

func runTemplatesShow(_ context.Context, deps *CommandDeps, name, version string) error {
	reg, err := templateRegistry(deps)
	if err != nil {
		return err
	}
	tpl, err := reg.Get(name, version)
	if err != nil {
		return err
	}
	view := templateView{
		Name:        tpl.Name,
		Version:     tpl.Version,
		Description: tpl.Description,
		Author:      tpl.Author,
		CreatedAt:   tpl.CreatedAt,
		Content:     tpl.Content,
	}
	return deps.render(view, func(w io.Writer) error {
		fmt.Fprintf(w, "Template:    %s\n", view.Name)
		fmt.Fprintf(w, "Version:     %s\n", view.Version)
		if view.Description != "" {
			fmt.Fprintf(w, "Description: %s\n", view.Description)
		}
		if view.Author != "" {
			fmt.Fprintf(w, "Author:      %s\n", view.Author)
		}
		if view.CreatedAt != "" {
			fmt.Fprintf(w, "Created:     %s\n", view.CreatedAt)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, view.Content)
		return nil
	})
}
