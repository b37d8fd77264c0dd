// Package config provides configuration management for the mta command-line tool.
// Settings come from built-in defaults, a YAML file, a .env file, environment
// variables and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Store backends.
const (
	BackendMongoDB  = "mongodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Default configuration values.
const (
	DefaultTimeout            = 30 * time.Minute
	DefaultOutputFormat       = OutputFormatText
	DefaultConfigDir          = ".mta"
	DefaultConfigFile         = "config.yaml"
	DefaultEnvFile            = ".env"
	DefaultDatabase           = "company_db"
	DefaultCollection         = "meeting_transcripts"
	DefaultAnalysisCollection = "meeting_analysis"
	DefaultDailyCollection    = "recordings_daily"
	DefaultMongoHost          = "localhost"
	DefaultMongoPort          = 27017
	DefaultMongoAuthDatabase  = "admin"
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultLLMTimeout         = 5 * time.Minute
	DefaultLLMMaxRetries      = 3
	DefaultTemplate           = "default"
	DefaultTemplateVersion    = "latest"
	DefaultPostgresTable      = "meeting_documents"
)

// StoreConfig selects the document store and its collections.
type StoreConfig struct {
	Backend            string `yaml:"backend"`
	Database           string `yaml:"database"`
	Collection         string `yaml:"collection"`
	AnalysisCollection string `yaml:"analysis_collection"`
	DailyCollection    string `yaml:"daily_collection"`
}

// MongoConfig holds MongoDB connection settings. URI wins over the other fields.
type MongoConfig struct {
	URI          string `yaml:"uri,omitempty"`
	Host         string `yaml:"host,omitempty"`
	Port         int    `yaml:"port,omitempty"`
	Username     string `yaml:"username,omitempty"`
	Password     string `yaml:"password,omitempty"`
	AuthDatabase string `yaml:"auth_database,omitempty"`
}

// ConnectionURI returns the MongoDB connection string. Credentials are only
// included when both username and password are set.
func (m MongoConfig) ConnectionURI() string {
	if m.URI != "" {
		return m.URI
	}

	host := m.Host
	if host == "" {
		host = DefaultMongoHost
	}
	port := m.Port
	if port == 0 {
		port = DefaultMongoPort
	}

	if m.Username == "" || m.Password == "" {
		return fmt.Sprintf("mongodb://%s:%d/", host, port)
	}

	authDB := m.AuthDatabase
	if authDB == "" {
		authDB = DefaultMongoAuthDatabase
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=%s",
		url.QueryEscape(m.Username), url.QueryEscape(m.Password), host, port, authDB)
}

// PostgresConfig holds PostgreSQL settings for the postgres backend.
type PostgresConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
	Table    string `yaml:"table,omitempty"`
}

// LLMConfig selects and tunes the analysis model.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float32       `yaml:"temperature,omitempty"`
}

// TemplatesConfig controls prompt template selection.
type TemplatesConfig struct {
	File           string `yaml:"file,omitempty"`
	DefaultName    string `yaml:"default_template"`
	DefaultVersion string `yaml:"default_version"`
}

// RedisConfig enables lifecycle event publishing.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// MetricsConfig controls metrics output.
type MetricsConfig struct {
	// Textfile is written in Prometheus exposition format when the command exits.
	Textfile string `yaml:"textfile,omitempty"`
}

// S3Config is the optional S3 report destination.
type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// ExportConfig holds report destinations.
type ExportConfig struct {
	Dir string   `yaml:"dir,omitempty"`
	S3  S3Config `yaml:"s3,omitempty"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// Timeout bounds a whole command run.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// LogJSON switches log output to JSON.
	LogJSON bool `yaml:"log_json,omitempty"`

	Store     StoreConfig     `yaml:"store"`
	MongoDB   MongoConfig     `yaml:"mongodb,omitempty"`
	Postgres  PostgresConfig  `yaml:"postgres,omitempty"`
	LLM       LLMConfig       `yaml:"llm"`
	Templates TemplatesConfig `yaml:"templates"`

	// Aliases maps speaker-name variants to canonical names, merged over the built-in table.
	Aliases map[string]string `yaml:"aliases,omitempty"`

	Redis   RedisConfig   `yaml:"redis,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Export  ExportConfig  `yaml:"export,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		Store: StoreConfig{
			Backend:            BackendMongoDB,
			Database:           DefaultDatabase,
			Collection:         DefaultCollection,
			AnalysisCollection: DefaultAnalysisCollection,
			DailyCollection:    DefaultDailyCollection,
		},
		MongoDB: MongoConfig{
			Host:         DefaultMongoHost,
			Port:         DefaultMongoPort,
			AuthDatabase: DefaultMongoAuthDatabase,
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "mta",
			User:     "mta",
			SSLMode:  "prefer",
			Table:    DefaultPostgresTable,
		},
		LLM: LLMConfig{
			Provider:   ProviderGemini,
			Model:      DefaultGeminiModel,
			Timeout:    DefaultLLMTimeout,
			MaxRetries: DefaultLLMMaxRetries,
		},
		Templates: TemplatesConfig{
			DefaultName:    DefaultTemplate,
			DefaultVersion: DefaultTemplateVersion,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MTA_CONFIG_DIR if set, otherwise ~/.mta
func ConfigDir() (string, error) {
	if dir := os.Getenv("MTA_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the default file location.
func LoadConfig() (*CLIConfig, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom loads the configuration. Sources, later overriding earlier:
// 1. Default values
// 2. Config file (path, or ~/.mta/config.yaml / $MTA_CONFIG_DIR/config.yaml)
// 3. .env in the working directory (never overrides variables already set)
// 4. Environment variables (MTA_*, MONGODB_*, DB_*, GEMINI_*, ...)
//
// An explicit path must exist; the default path is optional.
func LoadConfigFrom(path string) (*CLIConfig, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("getting config path: %w", err)
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", DefaultEnvFile, err)
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads path into the environment if it exists.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// configFile mirrors CLIConfig with durations as strings.
type configFile struct {
	Timeout      string            `yaml:"timeout,omitempty"`
	OutputFormat OutputFormat      `yaml:"output_format,omitempty"`
	Debug        bool              `yaml:"debug,omitempty"`
	LogJSON      bool              `yaml:"log_json,omitempty"`
	Store        *StoreConfig      `yaml:"store,omitempty"`
	MongoDB      *MongoConfig      `yaml:"mongodb,omitempty"`
	Postgres     *PostgresConfig   `yaml:"postgres,omitempty"`
	LLM          *llmFile          `yaml:"llm,omitempty"`
	Templates    *TemplatesConfig  `yaml:"templates,omitempty"`
	Aliases      map[string]string `yaml:"aliases,omitempty"`
	Redis        *RedisConfig      `yaml:"redis,omitempty"`
	Metrics      *MetricsConfig    `yaml:"metrics,omitempty"`
	Export       *ExportConfig     `yaml:"export,omitempty"`
}

type llmFile struct {
	Provider    string  `yaml:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Timeout     string  `yaml:"timeout,omitempty"`
	MaxRetries  int     `yaml:"max_retries,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
}

// loadFromFile loads configuration from a YAML file. Sections present in the
// file are merged field by field over the defaults.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc configFile
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fc.Timeout != "" {
		timeout, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fc.OutputFormat != "" {
		cfg.OutputFormat = fc.OutputFormat
	}
	cfg.Debug = fc.Debug
	cfg.LogJSON = fc.LogJSON

	if s := fc.Store; s != nil {
		setString(&cfg.Store.Backend, s.Backend)
		setString(&cfg.Store.Database, s.Database)
		setString(&cfg.Store.Collection, s.Collection)
		setString(&cfg.Store.AnalysisCollection, s.AnalysisCollection)
		setString(&cfg.Store.DailyCollection, s.DailyCollection)
	}
	if m := fc.MongoDB; m != nil {
		setString(&cfg.MongoDB.URI, m.URI)
		setString(&cfg.MongoDB.Host, m.Host)
		setInt(&cfg.MongoDB.Port, m.Port)
		setString(&cfg.MongoDB.Username, m.Username)
		setString(&cfg.MongoDB.Password, m.Password)
		setString(&cfg.MongoDB.AuthDatabase, m.AuthDatabase)
	}
	if p := fc.Postgres; p != nil {
		setString(&cfg.Postgres.Host, p.Host)
		setInt(&cfg.Postgres.Port, p.Port)
		setString(&cfg.Postgres.Database, p.Database)
		setString(&cfg.Postgres.User, p.User)
		setString(&cfg.Postgres.Password, p.Password)
		setString(&cfg.Postgres.SSLMode, p.SSLMode)
		setString(&cfg.Postgres.Table, p.Table)
	}
	if l := fc.LLM; l != nil {
		if l.Provider != "" && l.Provider != cfg.LLM.Provider && l.Model == "" {
			cfg.LLM.Model = defaultModel(l.Provider)
		}
		setString(&cfg.LLM.Provider, l.Provider)
		setString(&cfg.LLM.Model, l.Model)
		setString(&cfg.LLM.APIKey, l.APIKey)
		setString(&cfg.LLM.BaseURL, l.BaseURL)
		setInt(&cfg.LLM.MaxRetries, l.MaxRetries)
		if l.Temperature != 0 {
			cfg.LLM.Temperature = l.Temperature
		}
		if l.Timeout != "" {
			timeout, err := time.ParseDuration(l.Timeout)
			if err != nil {
				return fmt.Errorf("parsing llm.timeout: %w", err)
			}
			cfg.LLM.Timeout = timeout
		}
	}
	if t := fc.Templates; t != nil {
		setString(&cfg.Templates.File, t.File)
		setString(&cfg.Templates.DefaultName, t.DefaultName)
		setString(&cfg.Templates.DefaultVersion, t.DefaultVersion)
	}
	if fc.Aliases != nil {
		cfg.Aliases = fc.Aliases
	}
	if r := fc.Redis; r != nil {
		cfg.Redis.Enabled = r.Enabled
		setString(&cfg.Redis.Addr, r.Addr)
		setString(&cfg.Redis.Password, r.Password)
		setInt(&cfg.Redis.DB, r.DB)
	}
	if m := fc.Metrics; m != nil {
		setString(&cfg.Metrics.Textfile, m.Textfile)
	}
	if e := fc.Export; e != nil {
		cfg.Export = *e
	}

	return nil
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return DefaultOpenAIModel
	}
	return DefaultGeminiModel
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

func envString(dst *string, keys ...string) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			*dst = v
			return
		}
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("MTA_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = timeout
		}
	}
	if v := os.Getenv("MTA_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if envBool("MTA_DEBUG") {
		cfg.Debug = true
	}
	if envBool("MTA_LOG_JSON") {
		cfg.LogJSON = true
	}

	envString(&cfg.Store.Backend, "MTA_STORE_BACKEND")
	envString(&cfg.Store.Database, "DATABASE_NAME")
	envString(&cfg.Store.Collection, "COLLECTION_NAME")
	envString(&cfg.Store.AnalysisCollection, "MTA_ANALYSIS_COLLECTION")
	envString(&cfg.Store.DailyCollection, "MTA_DAILY_COLLECTION")

	envString(&cfg.MongoDB.URI, "MONGODB_URI")
	envString(&cfg.MongoDB.Host, "MONGODB_HOST")
	envInt(&cfg.MongoDB.Port, "MONGODB_PORT")
	envString(&cfg.MongoDB.Username, "MONGODB_USERNAME")
	envString(&cfg.MongoDB.Password, "MONGODB_PASSWORD")
	envString(&cfg.MongoDB.AuthDatabase, "MONGODB_AUTH_DATABASE")

	envString(&cfg.Postgres.Host, "DB_HOST")
	envInt(&cfg.Postgres.Port, "DB_PORT")
	envString(&cfg.Postgres.Database, "DB_NAME")
	envString(&cfg.Postgres.User, "DB_USER")
	envString(&cfg.Postgres.Password, "DB_PASSWORD")
	envString(&cfg.Postgres.SSLMode, "DB_SSLMODE")
	envString(&cfg.Postgres.Table, "MTA_POSTGRES_TABLE")

	if v := os.Getenv("MTA_LLM_PROVIDER"); v != "" && v != cfg.LLM.Provider {
		cfg.LLM.Provider = v
		cfg.LLM.Model = defaultModel(v)
	}
	if cfg.LLM.Provider == ProviderOpenAI {
		envString(&cfg.LLM.Model, "MTA_LLM_MODEL", "OPENAI_MODEL")
		envString(&cfg.LLM.APIKey, "MTA_LLM_API_KEY", "OPENAI_API_KEY")
		envString(&cfg.LLM.BaseURL, "MTA_LLM_BASE_URL", "OPENAI_BASE_URL")
	} else {
		envString(&cfg.LLM.Model, "MTA_LLM_MODEL", "GEMINI_MODEL")
		envString(&cfg.LLM.APIKey, "MTA_LLM_API_KEY", "GEMINI_API_KEY")
		envString(&cfg.LLM.BaseURL, "MTA_LLM_BASE_URL")
	}
	if v := os.Getenv("MTA_LLM_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = timeout
		}
	}
	envInt(&cfg.LLM.MaxRetries, "MTA_LLM_MAX_RETRIES")
	if v := os.Getenv("MTA_LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(t)
		}
	}

	envString(&cfg.Templates.File, "MTA_TEMPLATES_FILE")
	envString(&cfg.Templates.DefaultName, "MTA_DEFAULT_TEMPLATE")
	envString(&cfg.Templates.DefaultVersion, "MTA_DEFAULT_VERSION")

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	envString(&cfg.Redis.Password, "REDIS_PASSWORD")
	envInt(&cfg.Redis.DB, "REDIS_DB")
	if envBool("MTA_EVENTS_ENABLED") {
		cfg.Redis.Enabled = true
	}

	envString(&cfg.Metrics.Textfile, "MTA_METRICS_TEXTFILE")

	envString(&cfg.Export.Dir, "MTA_EXPORT_DIR")
	envString(&cfg.Export.S3.Bucket, "MTA_S3_BUCKET")
	envString(&cfg.Export.S3.Region, "MTA_S3_REGION", "AWS_REGION")
	envString(&cfg.Export.S3.Endpoint, "MTA_S3_ENDPOINT")
	envString(&cfg.Export.S3.Prefix, "MTA_S3_PREFIX")
	envString(&cfg.Export.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
	envString(&cfg.Export.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	switch c.Store.Backend {
	case BackendMongoDB, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("invalid store.backend: %q (must be mongodb, postgres, or memory)", c.Store.Backend)
	}

	if c.Store.Database == "" || c.Store.Collection == "" {
		return fmt.Errorf("store.database and store.collection are required")
	}

	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid llm.provider: %q (must be gemini or openai)", c.LLM.Provider)
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}

	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative")
	}

	if c.MongoDB.Port < 0 || c.MongoDB.Port > 65535 {
		return fmt.Errorf("invalid mongodb.port: %d", c.MongoDB.Port)
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig writes cfg to the config file. Secrets are omitted; they belong
// in the credentials store.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	mongo := cfg.MongoDB
	mongo.Password = ""
	pg := cfg.Postgres
	pg.Password = ""
	redis := cfg.Redis
	redis.Password = ""
	export := cfg.Export
	export.S3.SecretAccessKey = ""

	fc := configFile{
		Timeout:      cfg.Timeout.String(),
		OutputFormat: cfg.OutputFormat,
		Debug:        cfg.Debug,
		LogJSON:      cfg.LogJSON,
		Store:        &cfg.Store,
		MongoDB:      &mongo,
		Postgres:     &pg,
		LLM: &llmFile{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Timeout:     cfg.LLM.Timeout.String(),
			MaxRetries:  cfg.LLM.MaxRetries,
			Temperature: cfg.LLM.Temperature,
		},
		Templates: &cfg.Templates,
		Aliases:   cfg.Aliases,
		Redis:     &redis,
		Metrics:   &cfg.Metrics,
		Export:    &export,
	}

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
