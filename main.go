// Package main provides the mta CLI entry point.
// mta analyzes meeting transcripts stored in MongoDB or PostgreSQL with an LLM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/cmd"
	"github.com/ggs134/meeting-transcript-analyzer/config"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/buildinfo"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
)

// Global flags and state.
var (
	cfgFile      string
	timeout      time.Duration
	outputFormat string
	debug        bool
	logJSON      bool

	// deps is shared by every subcommand.
	deps = cmd.DefaultDeps()

	// cancelTimeout releases the per-command deadline.
	cancelTimeout context.CancelFunc
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mta",
	Short: "Meeting transcript analyzer",
	Long: `mta analyzes meeting transcripts with an LLM.

Transcripts are read from MongoDB (or PostgreSQL), parsed into speaker
utterances, formatted into a prompt from a versioned template, and sent to
Gemini or an OpenAI-compatible model. Results can be saved back to the store
and exported as Markdown, JSON and CSV files, locally or to S3.

COMMON WORKFLOWS:
  Analyze meetings:   mta analyze --start 2025-01-01 --end 2025-01-31 --export
  Team overview:      mta aggregate --start 2025-01-01 --end 2025-01-31
  Daily reports:      mta daily --date 2025-01-08  |  mta daily --month 2025-01
  Check parsing:      mta parse-test --start 2025-01-01  ->  mta move-failed
  Import recordings:  mta import ./recordings --dry-run
  Clean duplicates:   mta dedupe --field meeting_id --keep newest

CONFIGURATION:
  ~/.mta/config.yaml, a .env file in the working directory, and environment
  variables (MONGODB_URI, GEMINI_API_KEY, ...). Secrets can be stored
  encrypted with 'mta auth set'.

Run 'mta <command> --help' for flags and examples.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		// Skip initialization for commands that don't need it.
		if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" {
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		deps.Config = cfg

		level := logging.LevelInfo
		if cfg.Debug {
			level = logging.LevelDebug
		}
		logger := logging.NewLogger(&logging.Config{
			Level:       level,
			ServiceName: "mta",
			Environment: "cli",
			JSONFormat:  cfg.LogJSON,
			Output:      os.Stderr,
		})
		logging.SetGlobal(logger)
		deps.Logger = logger

		if cfg.Timeout > 0 {
			ctx, cancel := context.WithTimeout(c.Context(), cfg.Timeout)
			cancelTimeout = cancel
			c.SetContext(ctx)
		}
		return nil
	},
	PersistentPostRun: func(c *cobra.Command, args []string) {
		if cancelTimeout != nil {
			cancelTimeout()
		}
	},
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig() (*config.CLIConfig, error) {
	cfg, err := config.LoadConfigFrom(cfgFile)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.CLIConfig) {
	if timeout != 0 {
		cfg.Timeout = timeout
	}
	if outputFormat != "" {
		cfg.OutputFormat = config.OutputFormat(outputFormat)
	}
	if debug {
		cfg.Debug = true
	}
	if logJSON {
		cfg.LogJSON = true
	}
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the mta CLI.

Examples:
  mta version
  mta version --output json`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("mta")
		out := c.OutOrStdout()
		switch config.OutputFormat(outputFormat) {
		case config.OutputFormatJSON:
			return cmd.WriteJSON(out, info)
		case config.OutputFormatYAML:
			return cmd.WriteYAML(out, info)
		}
		fmt.Fprintf(out, "mta version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.mta/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall command timeout (default from config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")

	deps.LoadConfig = loadConfig

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cmd.NewAnalyzeCommand(deps))
	rootCmd.AddCommand(cmd.NewAnalyzeFileCommand(deps))
	rootCmd.AddCommand(cmd.NewAggregateCommand(deps))
	rootCmd.AddCommand(cmd.NewDailyCommand(deps))
	rootCmd.AddCommand(cmd.NewParseCommand(deps))
	rootCmd.AddCommand(cmd.NewParseTestCommand(deps))
	rootCmd.AddCommand(cmd.NewParticipantsCommand(deps))
	rootCmd.AddCommand(cmd.NewDedupeCommand(deps))
	rootCmd.AddCommand(cmd.NewMoveFailedCommand(deps))
	rootCmd.AddCommand(cmd.NewImportCommand(deps))
	rootCmd.AddCommand(cmd.NewTemplatesCommand(deps))
	rootCmd.AddCommand(cmd.NewAuthCommand(deps))
}

func main() {
	// Set up signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
