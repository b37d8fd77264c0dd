package credentials

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEnvKeyProvider_GetKey(t *testing.T) {
	const envVar = "TEST_MTA_ENCRYPTION_KEY"

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid key", value: testKeyHex},
		{name: "missing", value: "", wantErr: true},
		{name: "invalid hex", value: "not-valid-hex", wantErr: true},
		{name: "wrong length", value: "0123456789abcdef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envVar, tt.value)
			key, err := NewEnvKeyProvider(envVar).GetKey()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, _ := hex.DecodeString(tt.value)
			assert.Equal(t, want, key)
		})
	}
}

func TestEnvKeyProvider_Description(t *testing.T) {
	assert.Contains(t, NewEnvKeyProvider("X_KEY").Description(), "X_KEY")
}

func TestPassphraseKeyProvider_GetKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
	require.NoError(t, err)
	assert.Len(t, k1, keyLength)

	k2, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "same passphrase and salt must derive the same key")

	k3, err := NewPassphraseKeyProvider("battery staple", salt).GetKey()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = NewPassphraseKeyProvider("", salt).GetKey()
	assert.Error(t, err)
	_, err = NewPassphraseKeyProvider("x", nil).GetKey()
	assert.Error(t, err)
}

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, a, saltLength)
	assert.NotEqual(t, a, b)
}

func TestDefaultKeyProvider_PrefersEnv(t *testing.T) {
	t.Setenv(EncryptionKeyEnv, testKeyHex)

	p, err := DefaultKeyProvider(t.TempDir())
	require.NoError(t, err)
	_, ok := p.(*EnvKeyProvider)
	assert.True(t, ok, "expected EnvKeyProvider, got %T", p)
}

func TestLoadOrCreateSalt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	first, err := loadOrCreateSalt(dir)
	require.NoError(t, err)
	second, err := loadOrCreateSalt(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second, "salt must persist between runs")

	require.NoError(t, os.WriteFile(filepath.Join(dir, saltFile), []byte("zz"), 0600))
	_, err = loadOrCreateSalt(dir)
	assert.Error(t, err)
}

func TestKeyringKeyProvider_Description(t *testing.T) {
	assert.NotEmpty(t, NewKeyringKeyProvider().Description())
}
