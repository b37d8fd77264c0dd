// Package credentials stores the secrets mta needs (LLM API key, database
// password, S3 secret) in ~/.mta/credentials.yaml, sealed with AES-GCM.
//
// The sealing key comes from MTA_ENCRYPTION_KEY, the system keyring, or an
// Argon2id-derived passphrase, in that order. See DefaultKeyProvider.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCredentialsDir  = ".mta"
	DefaultCredentialsFile = "credentials.yaml"
)

// Known secret names.
const (
	SecretLLMAPIKey         = "llm_api_key"
	SecretMongoPassword     = "mongodb_password"
	SecretPostgresPassword  = "postgres_password"
	SecretS3SecretAccessKey = "s3_secret_access_key"
)

// KnownSecrets lists the names accepted by `mta auth set`.
var KnownSecrets = []string{
	SecretLLMAPIKey,
	SecretMongoPassword,
	SecretPostgresPassword,
	SecretS3SecretAccessKey,
}

var (
	ErrNoCredentials    = errors.New("no credentials stored")
	ErrUnknownSecret    = errors.New("unknown secret name")
	ErrEncryptionFailed = errors.New("encryption failed")
)

// IsKnownSecret reports whether name is one of KnownSecrets.
func IsKnownSecret(name string) bool {
	for _, s := range KnownSecrets {
		if s == name {
			return true
		}
	}
	return false
}

// file is the on-disk layout. Values in Secrets are sealed.
type file struct {
	Secrets     map[string]string `yaml:"secrets"`
	LastUpdated time.Time         `yaml:"last_updated"`
}

// Store reads and writes the sealed secrets file.
type Store struct {
	dir      string
	key      []byte
	provider KeyProvider
}

// NewStore opens the store in CredentialsDir using DefaultKeyProvider.
func NewStore() (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}
	provider, err := DefaultKeyProvider(dir)
	if err != nil {
		return nil, fmt.Errorf("initializing key provider: %w", err)
	}
	return NewStoreWithKeyProvider(dir, provider)
}

// NewStoreWithKeyProvider opens the store in dir with an explicit key source.
func NewStoreWithKeyProvider(dir string, provider KeyProvider) (*Store, error) {
	key, err := provider.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}
	return &Store{dir: dir, key: key, provider: provider}, nil
}

// KeySource describes where the sealing key came from.
func (s *Store) KeySource() string {
	return s.provider.Description()
}

// CredentialsDir returns $MTA_CONFIG_DIR or ~/.mta.
func CredentialsDir() (string, error) {
	if dir := os.Getenv("MTA_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultCredentialsDir), nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, DefaultCredentialsFile)
}

func (s *Store) read() (*file, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return &file{Secrets: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if f.Secrets == nil {
		f.Secrets = map[string]string{}
	}
	return &f, nil
}

func (s *Store) write(f *file) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	f.LastUpdated = time.Now().UTC()
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// Set seals value under name.
func (s *Store) Set(name, value string) error {
	if !IsKnownSecret(name) {
		return fmt.Errorf("%w: %q (known: %s)", ErrUnknownSecret, name, strings.Join(KnownSecrets, ", "))
	}
	f, err := s.read()
	if err != nil {
		return err
	}
	sealed, err := s.encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", name, err)
	}
	f.Secrets[name] = sealed
	return s.write(f)
}

// Get returns the secret stored under name, or ErrNoCredentials.
func (s *Store) Get(name string) (string, error) {
	f, err := s.read()
	if err != nil {
		return "", err
	}
	sealed, ok := f.Secrets[name]
	if !ok {
		return "", ErrNoCredentials
	}
	plain, err := s.decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("decrypting %s: %w", name, err)
	}
	return plain, nil
}

// Names lists stored secret names, sorted.
func (s *Store) Names() ([]string, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Secrets))
	for n := range f.Secrets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes one secret. Removing an absent secret is not an error.
func (s *Store) Remove(name string) error {
	f, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := f.Secrets[name]; !ok {
		return nil
	}
	delete(f.Secrets, name)
	return s.write(f)
}

// Clear deletes the whole secrets file.
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

// Fill replaces *dst with the stored secret when *dst is empty. Missing
// secrets leave *dst untouched.
func (s *Store) Fill(dst *string, name string) error {
	if *dst != "" {
		return nil
	}
	v, err := s.Get(name)
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}
	return gcm, nil
}

func (s *Store) encrypt(plaintext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed: %v", ErrEncryptionFailed, err)
	}
	return string(plaintext), nil
}

// Mask hides all but the first and last four characters.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
