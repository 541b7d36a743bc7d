package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func newMockKeyring(t *testing.T) *KeyringManager {
	t.Helper()
	keyring.MockInit()
	return NewKeyringManager()
}

func TestKeyringManager_SaveGetDelete(t *testing.T) {
	km := newMockKeyring(t)
	require.True(t, km.IsAvailable())

	require.NoError(t, km.SaveSecret(KeyringNeo4jPasswordItem, "s3cret-pass"))
	got, err := km.GetSecret(KeyringNeo4jPasswordItem)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", got)

	require.NoError(t, km.DeleteSecret(KeyringNeo4jPasswordItem))
	got, err = km.GetSecret(KeyringNeo4jPasswordItem)
	require.NoError(t, err)
	assert.Empty(t, got)

	// deleting a missing item is not an error
	assert.NoError(t, km.DeleteSecret(KeyringNeo4jPasswordItem))
}

func TestKeyringManager_SaveEmptySecret(t *testing.T) {
	km := newMockKeyring(t)
	assert.Error(t, km.SaveSecret(KeyringPostgresPasswordItem, ""))
}

func TestSecretSource(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		keychain    string
		configValue string
		want        string
		secure      bool
	}{
		{"environment wins", "from-env", "from-keychain", "from-config", "env", true},
		{"keychain", "", "from-keychain", "from-config", "keychain", true},
		{"config file", "", "", "from-config", "config", false},
		{"nothing", "", "", "", "none", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km := newMockKeyring(t)
			t.Setenv("NEO4J_PASSWORD", tt.env)
			if tt.keychain != "" {
				require.NoError(t, km.SaveSecret(KeyringNeo4jPasswordItem, tt.keychain))
			}

			info := km.SecretSource(KeyringNeo4jPasswordItem, "NEO4J_PASSWORD", tt.configValue)
			assert.Equal(t, tt.want, info.Source)
			assert.Equal(t, tt.secure, info.Secure)
			assert.NotEmpty(t, info.Recommended)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"correct-horse", "cor...se"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskSecret(tt.in))
	}
}
