package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "smelltracker"

	// KeyringNeo4jPasswordItem holds the password of the smell feed database
	KeyringNeo4jPasswordItem = "neo4j-password"

	// KeyringPostgresPasswordItem holds the password substituted into the Postgres DSN
	KeyringPostgresPasswordItem = "postgres-password"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SaveSecret stores a secret in the OS keychain.
// macOS uses Keychain Access, Windows the Credential Manager and Linux the
// Secret Service (requires libsecret).
func (km *KeyringManager) SaveSecret(item, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}

	if err := keyring.Set(KeyringService, item, value); err != nil {
		km.logger.Error("failed to save secret to keychain", "item", item, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("secret saved to keychain", "service", KeyringService, "item", item)
	return nil
}

// GetSecret retrieves a secret from the OS keychain. A missing item is
// returned as "" with no error.
func (km *KeyringManager) GetSecret(item string) (string, error) {
	value, err := keyring.Get(KeyringService, item)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get secret from keychain", "item", item, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("secret retrieved from keychain", "item", item)
	return value, nil
}

// DeleteSecret removes a secret from the OS keychain
func (km *KeyringManager) DeleteSecret(item string) error {
	err := keyring.Delete(KeyringService, item)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete secret from keychain", "item", item, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("secret deleted from keychain", "item", item)
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems where no secret service runs.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// KeySourceInfo describes where a secret is coming from
type KeySourceInfo struct {
	Source      string // "env", "keychain", "config", "none"
	Secure      bool
	Recommended string
}

// SecretSource determines where a secret is resolved from
func (km *KeyringManager) SecretSource(item, envVar, configValue string) KeySourceInfo {
	if os.Getenv(envVar) != "" {
		return KeySourceInfo{
			Source:      "env",
			Secure:      true,
			Recommended: "Using environment variable (good for CI/CD)",
		}
	}

	if value, _ := km.GetSecret(item); value != "" {
		return KeySourceInfo{
			Source:      "keychain",
			Secure:      true,
			Recommended: "Stored securely in OS keychain",
		}
	}

	if configValue != "" {
		return KeySourceInfo{
			Source:      "config",
			Secure:      false,
			Recommended: "Plaintext storage detected. Run: smelltracker configure",
		}
	}

	return KeySourceInfo{
		Source:      "none",
		Secure:      false,
		Recommended: fmt.Sprintf("%s is not configured. Run: smelltracker configure", envVar),
	}
}

// MaskSecret masks a secret for display: first 3 and last 2 characters
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 8 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:3], secret[len(secret)-2:])
}
