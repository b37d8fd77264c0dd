// Package cmd provides the commands of the mta CLI.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ggs134/meeting-transcript-analyzer/config"
	"github.com/ggs134/meeting-transcript-analyzer/credentials"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/db"
	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/events"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/observability"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/report"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// CommandDeps holds the dependencies shared by every command. Tests replace
// the constructor functions with fakes.
type CommandDeps struct {
	Config     *config.CLIConfig
	LoadConfig func() (*config.CLIConfig, error)

	OpenStore     func(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger) (store.DocumentStore, error)
	NewGenerator  func(cfg *config.CLIConfig) (analysis.Generator, error)
	OpenPublisher func(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger) (*events.Publisher, error)
	OpenSink      func(ctx context.Context, cfg *config.CLIConfig) (report.Sink, error)
	Credentials   func() (*credentials.Store, error)

	Logger   logging.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	Now func() time.Time
	Out io.Writer
	In  io.Reader
}

// DefaultDeps returns the production dependencies.
func DefaultDeps() *CommandDeps {
	reg := prometheus.NewRegistry()
	return &CommandDeps{
		LoadConfig:    config.LoadConfig,
		OpenStore:     OpenStore,
		NewGenerator:  NewGenerator,
		OpenPublisher: OpenPublisher,
		OpenSink:      OpenSink,
		Credentials:   credentials.NewStore,
		Registry:      reg,
		Metrics:       observability.NewMetrics(reg),
		Now:           time.Now,
		Out:           os.Stdout,
		In:            os.Stdin,
	}
}

func (d *CommandDeps) config() (*config.CLIConfig, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	if d.LoadConfig == nil {
		return nil, fmt.Errorf("configuration: %w", mtaerrors.ErrNotConfigured)
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	d.Config = cfg
	return cfg, nil
}

func (d *CommandDeps) logger() logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.Global()
}

func (d *CommandDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *CommandDeps) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return os.Stdout
}

// fillSecrets falls back to the credential store for secrets left empty by
// the config file and environment. A store that cannot be opened is logged
// and ignored.
func (d *CommandDeps) fillSecrets(cfg *config.CLIConfig) {
	if d.Credentials == nil {
		return
	}
	if cfg.LLM.APIKey != "" && cfg.MongoDB.Password != "" && cfg.Postgres.Password != "" && cfg.Export.S3.SecretAccessKey != "" {
		return
	}
	creds, err := d.Credentials()
	if err != nil {
		d.logger().Debug("Credential store unavailable", logging.Err(err))
		return
	}
	fills := []struct {
		dst  *string
		name string
	}{
		{&cfg.LLM.APIKey, credentials.SecretLLMAPIKey},
		{&cfg.Postgres.Password, credentials.SecretPostgresPassword},
		{&cfg.Export.S3.SecretAccessKey, credentials.SecretS3SecretAccessKey},
	}
	// A stored MongoDB password only applies to host/port configuration.
	if cfg.MongoDB.URI == "" && cfg.MongoDB.Username != "" {
		fills = append(fills, struct {
			dst  *string
			name string
		}{&cfg.MongoDB.Password, credentials.SecretMongoPassword})
	}
	for _, f := range fills {
		if err := creds.Fill(f.dst, f.name); err != nil {
			d.logger().Warn("Reading stored secret failed", logging.F("secret", f.name), logging.Err(err))
		}
	}
}

const postgresConnectAttempts = 3

// OpenStore connects the configured document store backend.
func OpenStore(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger) (store.DocumentStore, error) {
	switch cfg.Store.Backend {
	case config.BackendMongoDB, "":
		return store.NewMongoStore(ctx, store.MongoOptions{
			URI:      cfg.MongoDB.ConnectionURI(),
			Database: cfg.Store.Database,
		}, logger)
	case config.BackendPostgres:
		// DB_MAX_CONNS is only read from the environment.
		dbCfg := db.ConfigFromEnv()
		dbCfg.Host = cfg.Postgres.Host
		dbCfg.Port = cfg.Postgres.Port
		dbCfg.Database = cfg.Postgres.Database
		dbCfg.User = cfg.Postgres.User
		dbCfg.Password = cfg.Postgres.Password
		dbCfg.SSLMode = cfg.Postgres.SSLMode
		pool, err := db.ConnectWithRetry(ctx, dbCfg, postgresConnectAttempts, 2*time.Second)
		if err != nil {
			return nil, err
		}
		st, err := store.NewPostgresStore(ctx, pool, cfg.Postgres.Table, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q: %w", cfg.Store.Backend, mtaerrors.ErrValidation)
	}
}

// NewGenerator builds the configured LLM provider.
func NewGenerator(cfg *config.CLIConfig) (analysis.Generator, error) {
	return analysis.NewProvider(providerConfig(cfg.LLM))
}

func providerConfig(c config.LLMConfig) analysis.ProviderConfig {
	return analysis.ProviderConfig{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		MaxRetries:  c.MaxRetries,
		Temperature: c.Temperature,
	}
}

// OpenPublisher connects to Redis when events are enabled. It returns nil
// without error when they are not.
func OpenPublisher(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger) (*events.Publisher, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	return events.NewPublisherFromConfig(ctx, events.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
}

// OpenSink returns the configured report destinations: the export directory
// (default "output") plus S3 when a bucket is set.
func OpenSink(ctx context.Context, cfg *config.CLIConfig) (report.Sink, error) {
	local, err := report.NewLocalSink(cfg.Export.Dir)
	if err != nil {
		return nil, err
	}
	if !cfg.Export.S3.Enabled() {
		return local, nil
	}
	s3, err := report.NewS3Sink(ctx, report.S3Options{
		Bucket:          cfg.Export.S3.Bucket,
		Region:          cfg.Export.S3.Region,
		Endpoint:        cfg.Export.S3.Endpoint,
		Prefix:          cfg.Export.S3.Prefix,
		AccessKeyID:     cfg.Export.S3.AccessKeyID,
		SecretAccessKey: cfg.Export.S3.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return report.MultiSink{local, s3}, nil
}

// newParser builds a transcript parser with the built-in aliases overlaid by
// configured ones.
func newParser(cfg *config.CLIConfig) *transcript.Parser {
	if len(cfg.Aliases) == 0 {
		return transcript.NewParser()
	}
	merged := make(map[string]string, len(transcript.DefaultAliases)+len(cfg.Aliases))
	for k, v := range transcript.DefaultAliases {
		merged[k] = v
	}
	for k, v := range cfg.Aliases {
		merged[k] = v
	}
	return transcript.NewParser(transcript.WithAliases(transcript.NewAliasTable(merged)))
}

func loadTemplates(cfg *config.CLIConfig) (*analysis.TemplateRegistry, error) {
	if cfg.Templates.File == "" {
		return analysis.BuiltinTemplates(), nil
	}
	path, err := config.ExpandPath(cfg.Templates.File)
	if err != nil {
		return nil, err
	}
	return analysis.LoadTemplateFile(path)
}

// session is everything an analysis command opened. Close releases it and
// writes the metrics textfile.
type session struct {
	deps      *CommandDeps
	cfg       *config.CLIConfig
	store     store.DocumentStore
	publisher *events.Publisher
	analyzer  *analysis.Analyzer
}

type sessionOptions struct {
	analysis    analysis.Options
	store       store.DocumentStore
	noGenerator bool
}

// openSession loads config, resolves secrets and connects the store, the
// LLM provider and the event publisher.
func (d *CommandDeps) openSession(ctx context.Context, so sessionOptions) (*session, error) {
	cfg, err := d.config()
	if err != nil {
		return nil, err
	}
	d.fillSecrets(cfg)
	logger := d.logger()

	s := &session{deps: d, cfg: cfg, store: so.store}
	if s.store == nil {
		if s.store, err = d.OpenStore(ctx, cfg, logger); err != nil {
			return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
		}
	}
	if pg, ok := s.store.(*store.PostgresStore); ok && d.Registry != nil {
		if _, err := db.RegisterPoolStats(d.Registry, pg.Pool(), observability.Namespace, cfg.Postgres.Table); err != nil {
			logger.Warn("Registering pool metrics", logging.Err(err))
		}
	}

	var gen analysis.Generator = unavailableGenerator{}
	if !so.noGenerator {
		if gen, err = d.NewGenerator(cfg); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("creating llm provider: %w", err)
		}
	}

	templates, err := loadTemplates(cfg)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	opts := so.analysis
	if opts.Collection == "" {
		opts.Collection = cfg.Store.Collection
	}
	opts.AnalysisCollection = cfg.Store.AnalysisCollection
	opts.DailyCollection = cfg.Store.DailyCollection
	if opts.Template == "" && opts.CustomTemplate == "" && cfg.Templates.DefaultName != config.DefaultTemplate {
		opts.Template = cfg.Templates.DefaultName
	}
	if opts.Version == "" {
		opts.Version = cfg.Templates.DefaultVersion
	}

	aopts := []analysis.AnalyzerOption{
		analysis.WithTemplates(templates),
		analysis.WithParser(newParser(cfg)),
		analysis.WithMetrics(d.Metrics),
		analysis.WithLogger(logger),
	}
	if d.Now != nil {
		aopts = append(aopts, analysis.WithClock(d.Now))
	}
	if d.OpenPublisher != nil && !so.noGenerator {
		pub, err := d.OpenPublisher(ctx, cfg, logger)
		if err != nil {
			// Events are best effort; the run goes on without them.
			logger.Warn("Event publishing disabled", logging.Err(err))
		} else if pub != nil {
			s.publisher = pub
			aopts = append(aopts, analysis.WithEvents(pub))
		}
	}

	if s.analyzer, err = analysis.NewAnalyzer(s.store, gen, opts, aopts...); err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) Close(ctx context.Context) {
	logger := s.deps.logger()
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logger.Warn("Closing event publisher", logging.Err(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			logger.Warn("Closing store", logging.Err(err))
		}
	}
	if s.cfg != nil {
		if err := s.deps.Metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			logger.Warn("Writing metrics", logging.Err(err))
		}
	}
}

// unavailableGenerator backs sessions that only parse. Generate always fails.
type unavailableGenerator struct{}

func (unavailableGenerator) Name() string { return "none" }

func (unavailableGenerator) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("llm provider: %w", mtaerrors.ErrNotConfigured)
}
