package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/smelltracker/internal/errors"
)

// CredentialManager handles credential retrieval with priority chain
// Priority: Environment Variables → Keychain → Config File → Interactive Prompt
type CredentialManager struct {
	mode       DeploymentMode
	keyring    *KeyringManager
	configPath string
	stdin      *os.File
	out        io.Writer
}

// Credentials holds the secrets that may live in the credentials file
type Credentials struct {
	Neo4jPassword    string `yaml:"neo4j_password"`
	PostgresPassword string `yaml:"postgres_password"`
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager() *CredentialManager {
	homeDir, _ := os.UserHomeDir()
	return &CredentialManager{
		mode:       DetectMode(),
		keyring:    NewKeyringManager(),
		configPath: filepath.Join(homeDir, ".config", "smelltracker", "credentials.yaml"),
		stdin:      os.Stdin,
		out:        os.Stdout,
	}
}

// GetNeo4jPassword resolves the password of the smell feed database
func (cm *CredentialManager) GetNeo4jPassword() (string, error) {
	return cm.resolve("NEO4J_PASSWORD", KeyringNeo4jPasswordItem, "Neo4j password",
		func(c *Credentials) string { return c.Neo4jPassword })
}

// GetPostgresPassword resolves the password substituted into the Postgres DSN
func (cm *CredentialManager) GetPostgresPassword() (string, error) {
	return cm.resolve("POSTGRES_PASSWORD", KeyringPostgresPasswordItem, "PostgreSQL password",
		func(c *Credentials) string { return c.PostgresPassword })
}

func (cm *CredentialManager) resolve(envVar, item, label string, fromFile func(*Credentials) string) (string, error) {
	// 1. Environment variable (highest priority)
	if value := os.Getenv(envVar); value != "" {
		return value, nil
	}

	// 2. Keychain
	if cm.keyring.IsAvailable() {
		if value, err := cm.keyring.GetSecret(item); err == nil && value != "" {
			return value, nil
		}
	}

	// 3. Credentials file
	if creds, err := cm.loadConfigFile(); err == nil {
		if value := fromFile(creds); value != "" {
			return value, nil
		}
	}

	// 4. Interactive prompt (only for installed binaries, never in CI)
	if cm.mode.AllowsInteractivePrompts() && cm.isInteractive() {
		fmt.Fprintf(cm.out, "%s not found.\nEnter %s: ", label, label)
		value, err := cm.readSecurely()
		if err != nil {
			return "", err
		}
		if value == "" {
			return "", errors.ConfigErrorf("%s is required", label)
		}
		if cm.keyring.IsAvailable() {
			if err := cm.keyring.SaveSecret(item, value); err == nil {
				fmt.Fprintln(cm.out, "Saved to keychain")
			}
		}
		return value, nil
	}

	return "", errors.ConfigErrorf(
		"%s not found. Set it via:\n"+
			"  1. Environment variable: export %s=...\n"+
			"  2. Run: smelltracker configure (to set up keychain)\n"+
			"  3. Credentials file: %s", label, envVar, cm.configPath)
}

// SaveCredentials saves credentials to keychain (preferred) or the credentials file
func (cm *CredentialManager) SaveCredentials(creds Credentials) error {
	if cm.keyring.IsAvailable() {
		if creds.Neo4jPassword != "" {
			if err := cm.keyring.SaveSecret(KeyringNeo4jPasswordItem, creds.Neo4jPassword); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save Neo4j password to keychain")
			}
		}
		if creds.PostgresPassword != "" {
			if err := cm.keyring.SaveSecret(KeyringPostgresPasswordItem, creds.PostgresPassword); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save PostgreSQL password to keychain")
			}
		}
		return nil
	}

	return cm.saveConfigFile(creds)
}

// Prompt reads a secret from the terminal without echoing it
func (cm *CredentialManager) Prompt(label string) (string, error) {
	fmt.Fprintf(cm.out, "%s: ", label)
	return cm.readSecurely()
}

func (cm *CredentialManager) loadConfigFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (cm *CredentialManager) saveConfigFile(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	// user-only read/write
	return os.WriteFile(cm.configPath, data, 0600)
}

// readSecurely reads a password from stdin without echoing
func (cm *CredentialManager) readSecurely() (string, error) {
	fd := int(cm.stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(cm.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// piped input
	line, err := bufio.NewReader(cm.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (cm *CredentialManager) isInteractive() bool {
	return term.IsTerminal(int(cm.stdin.Fd()))
}

// GetMode returns the current deployment mode
func (cm *CredentialManager) GetMode() DeploymentMode {
	return cm.mode
}

// GetConfigPath returns the path to the credentials file
func (cm *CredentialManager) GetConfigPath() string {
	return cm.configPath
}

// ResolveSecrets fills in passwords the config left empty
func (cm *CredentialManager) ResolveSecrets(cfg *Config) error {
	if err := cm.ResolveFeedSecrets(cfg); err != nil {
		return err
	}
	return cm.ResolveStorageSecrets(cfg)
}

// ResolveFeedSecrets fills in the Neo4j password. It is only needed when
// the feed reads from Neo4j.
func (cm *CredentialManager) ResolveFeedSecrets(cfg *Config) error {
	if cfg.Feed.Source != "neo4j" || cfg.Neo4j.Password != "" {
		return nil
	}
	password, err := cm.GetNeo4jPassword()
	if err != nil {
		return err
	}
	cfg.Neo4j.Password = password
	return nil
}

// ResolveStorageSecrets substitutes ${POSTGRES_PASSWORD} in the Postgres DSN
func (cm *CredentialManager) ResolveStorageSecrets(cfg *Config) error {
	if cfg.Storage.Type != "postgres" || !strings.Contains(cfg.Storage.PostgresDSN, "${POSTGRES_PASSWORD}") {
		return nil
	}
	password, err := cm.GetPostgresPassword()
	if err != nil {
		return err
	}
	cfg.Storage.PostgresDSN = strings.ReplaceAll(cfg.Storage.PostgresDSN, "${POSTGRES_PASSWORD}", password)
	return nil
}
