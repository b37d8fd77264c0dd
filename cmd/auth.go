package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ggs134/meeting-transcript-analyzer/config"
	"github.com/ggs134/meeting-transcript-analyzer/credentials"
	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

// NewAuthCommand creates the 'auth' command group.
func NewAuthCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored secrets",
		Long: `Manage the secrets mta uses to reach the LLM, databases and S3.

Secrets are stored AES-GCM encrypted in ~/.mta/credentials.yaml. The encryption
key comes from MTA_ENCRYPTION_KEY (64 hex characters), the system keyring, or
a passphrase (MTA_PASSPHRASE) stretched with Argon2id.

A stored secret is only used when the config file and environment leave the
matching setting empty.

Known secrets:
  llm_api_key            Gemini or OpenAI API key (GEMINI_API_KEY / OPENAI_API_KEY)
  mongodb_password       MongoDB password for host/port connections (MONGODB_PASSWORD)
  postgres_password      PostgreSQL password (DB_PASSWORD)
  s3_secret_access_key   S3 secret key for report export (AWS_SECRET_ACCESS_KEY)

Examples:
  # Store the API key (prompted without echo)
  mta auth set llm_api_key

  # Store from a pipe
  echo "$KEY" | mta auth set llm_api_key --stdin

  # Show which secrets are configured and where they come from
  mta auth status

  # Remove one secret, or all of them
  mta auth clear llm_api_key
  mta auth clear --all`,
	}

	cmd.AddCommand(newAuthSetCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	cmd.AddCommand(newAuthClearCommand(deps))
	return cmd
}

func newAuthSetCommand(deps *CommandDeps) *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthSet(cmd.Context(), deps, args[0], fromStdin)
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the secret from standard input instead of prompting")
	return cmd
}

func newAuthStatusCommand(deps *CommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configured secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.Context(), deps)
		},
	}
}

func newAuthClearCommand(deps *CommandDeps) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [name]",
		Short: "Remove stored secrets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runAuthClear(cmd.Context(), deps, name, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove every stored secret")
	return cmd
}

func (d *CommandDeps) credentialStore() (*credentials.Store, error) {
	if d.Credentials == nil {
		return nil, fmt.Errorf("credential store: %w", mtaerrors.ErrNotConfigured)
	}
	s, err := d.Credentials()
	if err != nil {
		return nil, fmt.Errorf("initializing credential store: %w", err)
	}
	return s, nil
}

func runAuthSet(_ context.Context, deps *CommandDeps, name string, fromStdin bool) error {
	if !credentials.IsKnownSecret(name) {
		return fmt.Errorf("%w: %q (known: %s)", credentials.ErrUnknownSecret, name, strings.Join(credentials.KnownSecrets, ", "))
	}
	value, err := readSecret(deps, name, fromStdin)
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("empty secret: %w", mtaerrors.ErrValidation)
	}

	store, err := deps.credentialStore()
	if err != nil {
		return err
	}
	if err := store.Set(name, value); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	fmt.Fprintf(deps.out(), "Stored %s: %s (key: %s)\n", name, credentials.Mask(value), store.KeySource())
	return nil
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(deps *CommandDeps, name string, fromStdin bool) (string, error) {
	in := deps.In
	if in == nil {
		in = os.Stdin
	}
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(deps.out(), "%s: ", name)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(deps.out())
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return strings.TrimSpace(line), nil
}

// secretStatus describes where one secret comes from.
type secretStatus struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Masked string `json:"masked,omitempty"`
}

// Secret sources.
const (
	sourceConfig = "config/env"
	sourceStored = "stored"
	sourceNone   = "not set"
)

// configuredSecret returns the value of name from config and environment.
func configuredSecret(cfg *config.CLIConfig, name string) string {
	switch name {
	case credentials.SecretLLMAPIKey:
		return cfg.LLM.APIKey
	case credentials.SecretMongoPassword:
		return cfg.MongoDB.Password
	case credentials.SecretPostgresPassword:
		return cfg.Postgres.Password
	case credentials.SecretS3SecretAccessKey:
		return cfg.Export.S3.SecretAccessKey
	}
	return ""
}

type authStatusOutput struct {
	KeySource string         `json:"key_source,omitempty"`
	Secrets   []secretStatus `json:"secrets"`
}

func runAuthStatus(_ context.Context, deps *CommandDeps) error {
	cfg, err := deps.config()
	if err != nil {
		return err
	}

	out := authStatusOutput{}
	stored := map[string]string{}
	store, storeErr := deps.credentialStore()
	if storeErr == nil {
		out.KeySource = store.KeySource()
		names, err := store.Names()
		if err != nil {
			return fmt.Errorf("reading credentials: %w", err)
		}
		for _, n := range names {
			v, err := store.Get(n)
			if err != nil {
				return fmt.Errorf("reading %s: %w", n, err)
			}
			stored[n] = v
		}
	}

	for _, name := range credentials.KnownSecrets {
		st := secretStatus{Name: name, Source: sourceNone}
		if v := configuredSecret(cfg, name); v != "" {
			st.Source, st.Masked = sourceConfig, credentials.Mask(v)
		} else if v, ok := stored[name]; ok {
			st.Source, st.Masked = sourceStored, credentials.Mask(v)
		}
		out.Secrets = append(out.Secrets, st)
	}

	return deps.render(out, func(w io.Writer) error {
		fmt.Fprintln(w, "Secrets")
		fmt.Fprintln(w, "=======")
		for _, s := range out.Secrets {
			fmt.Fprintf(w, "  %-22s  %-11s  %s\n", s.Name, s.Source, s.Masked)
		}
		if storeErr != nil {
			fmt.Fprintf(w, "\nCredential store unavailable: %v\n", storeErr)
		} else {
			fmt.Fprintf(w, "\nEncryption key: %s\n", out.KeySource)
		}
		return nil
	})
}

func runAuthClear(_ context.Context, deps *CommandDeps, name string, all bool) error {
	if name == "" && !all {
		return fmt.Errorf("name a secret or pass --all: %w", mtaerrors.ErrValidation)
	}
	if name != "" && all {
		return fmt.Errorf("a secret name and --all are mutually exclusive: %w", mtaerrors.ErrValidation)
	}
	store, err := deps.credentialStore()
	if err != nil {
		return err
	}
	if all {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(deps.out(), "All stored secrets removed.")
		return nil
	}
	if !credentials.IsKnownSecret(name) {
		return fmt.Errorf("%w: %q", credentials.ErrUnknownSecret, name)
	}
	if err := store.Remove(name); err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	fmt.Fprintf(deps.out(), "Removed %s.\n", name)
	return nil
}
