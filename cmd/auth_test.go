package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ggs134/meeting-transcript-analyzer/config"
	"github.com/ggs134/meeting-transcript-analyzer/credentials"
)

// testEncryptionKey is a valid 32-byte (64 hex chars) encryption key for testing.
const testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// newAuthTestEnv returns a test environment whose credential store lives in
// a temporary directory, keyed from MTA_ENCRYPTION_KEY.
func newAuthTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(credentials.EncryptionKeyEnv, testEncryptionKey)
	env := newTestEnv(t)
	dir := t.TempDir()
	env.deps.Credentials = func() (*credentials.Store, error) {
		return credentials.NewStoreWithKeyProvider(dir, credentials.NewEnvKeyProvider(credentials.EncryptionKeyEnv))
	}
	return env
}

func TestAuthCommandStructure(t *testing.T) {
	c := NewAuthCommand(newTestEnv(t).deps)
	if c.Use != "auth" {
		t.Errorf("Unexpected Use: %s", c.Use)
	}

	want := map[string]bool{"set": false, "status": false, "clear": false}
	for _, sub := range c.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Subcommand %q not registered", name)
		}
	}
}

func TestAuthSetAndStatus(t *testing.T) {
	env := newAuthTestEnv(t)
	env.deps.In = strings.NewReader("sk-test-1234567890\n")

	if err := env.run(NewAuthCommand(env.deps), "set", credentials.SecretLLMAPIKey, "--stdin"); err != nil {
		t.Fatalf("auth set failed: %v", err)
	}
	if !strings.Contains(env.out.String(), "Stored llm_api_key: sk-t**********7890") {
		t.Errorf("Unexpected set output: %q", env.out.String())
	}

	store, err := env.deps.Credentials()
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	got, err := store.Get(credentials.SecretLLMAPIKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "sk-test-1234567890" {
		t.Errorf("Stored value = %q", got)
	}

	env.cfg.OutputFormat = config.OutputFormatJSON
	env.cfg.Postgres.Password = "from-config-file"
	env.out.Reset()
	if err := env.run(NewAuthCommand(env.deps), "status"); err != nil {
		t.Fatalf("auth status failed: %v", err)
	}

	var status authStatusOutput
	if err := json.Unmarshal(env.out.Bytes(), &status); err != nil {
		t.Fatalf("status output is not JSON: %v", err)
	}
	if len(status.Secrets) != len(credentials.KnownSecrets) {
		t.Fatalf("Expected %d secrets, got %d", len(credentials.KnownSecrets), len(status.Secrets))
	}
	sources := map[string]string{}
	for _, s := range status.Secrets {
		sources[s.Name] = s.Source
	}
	if sources[credentials.SecretLLMAPIKey] != sourceStored {
		t.Errorf("llm_api_key source = %q, want %q", sources[credentials.SecretLLMAPIKey], sourceStored)
	}
	if sources[credentials.SecretPostgresPassword] != sourceConfig {
		t.Errorf("postgres_password source = %q, want %q", sources[credentials.SecretPostgresPassword], sourceConfig)
	}
	if sources[credentials.SecretMongoPassword] != sourceNone {
		t.Errorf("mongodb_password source = %q, want %q", sources[credentials.SecretMongoPassword], sourceNone)
	}
}

func TestAuthSetValidation(t *testing.T) {
	env := newAuthTestEnv(t)

	env.deps.In = strings.NewReader("value\n")
	err := env.run(NewAuthCommand(env.deps), "set", "github_token", "--stdin")
	if !errors.Is(err, credentials.ErrUnknownSecret) {
		t.Errorf("Expected ErrUnknownSecret, got %v", err)
	}

	env.deps.In = strings.NewReader("\n")
	if err := env.run(NewAuthCommand(env.deps), "set", credentials.SecretLLMAPIKey, "--stdin"); err == nil {
		t.Error("Expected an error for an empty secret")
	}
}

func TestAuthClear(t *testing.T) {
	env := newAuthTestEnv(t)
	store, err := env.deps.Credentials()
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := store.Set(credentials.SecretLLMAPIKey, "sk-one"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(credentials.SecretPostgresPassword, "pg-two"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := env.run(NewAuthCommand(env.deps), "clear"); err == nil {
		t.Error("Expected an error without a name or --all")
	}
	if err := env.run(NewAuthCommand(env.deps), "clear", credentials.SecretLLMAPIKey, "--all"); err == nil {
		t.Error("Expected an error for a name with --all")
	}

	if err := env.run(NewAuthCommand(env.deps), "clear", credentials.SecretLLMAPIKey); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	names, err := store.Names()
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	if len(names) != 1 || names[0] != credentials.SecretPostgresPassword {
		t.Errorf("Remaining secrets = %v", names)
	}

	if err := env.run(NewAuthCommand(env.deps), "clear", "--all"); err != nil {
		t.Fatalf("clear --all failed: %v", err)
	}
	names, err = store.Names()
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Secrets left after clear --all: %v", names)
	}
}

func TestFillSecrets(t *testing.T) {
	env := newAuthTestEnv(t)
	store, err := env.deps.Credentials()
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := store.Set(credentials.SecretLLMAPIKey, "sk-stored"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(credentials.SecretMongoPassword, "mongo-stored"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Postgres.Password = "from-env"
	cfg.MongoDB.URI = "mongodb://example:27017"
	env.deps.fillSecrets(cfg)

	if cfg.LLM.APIKey != "sk-stored" {
		t.Errorf("LLM.APIKey = %q, want the stored key", cfg.LLM.APIKey)
	}
	if cfg.Postgres.Password != "from-env" {
		t.Errorf("Configured password was replaced: %q", cfg.Postgres.Password)
	}
	if cfg.MongoDB.Password != "" {
		t.Errorf("Mongo password filled for a URI connection: %q", cfg.MongoDB.Password)
	}

	cfg = config.DefaultConfig()
	cfg.MongoDB.Username = "analyst"
	env.deps.fillSecrets(cfg)
	if cfg.MongoDB.Password != "mongo-stored" {
		t.Errorf("MongoDB.Password = %q, want the stored password", cfg.MongoDB.Password)
	}
}
