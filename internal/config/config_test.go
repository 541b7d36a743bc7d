package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  type: postgres
  postgres_dsn: postgres://smells@db.internal:5432/smells
feed:
  source: file
  path: /data/smells.yaml
cache:
  backend: redis
  redis_addr: cache:6379
  ttl: 2h
analysis:
  concurrency: 4
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://smells@db.internal:5432/smells", cfg.Storage.PostgresDSN)
	assert.Equal(t, "file", cfg.Feed.Source)
	assert.Equal(t, "/data/smells.yaml", cfg.Feed.Path)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Analysis.Concurrency)

	// untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Analysis.BatchSize)
	assert.Equal(t, 0.8, cfg.Analysis.NameSimilarity)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("ANALYSIS_CONCURRENCY", "8")
	t.Setenv("FEED_RATE_LIMIT", "12.5")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  type: postgres\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "neo4j://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, 8, cfg.Analysis.Concurrency)
	assert.Equal(t, 12.5, cfg.Feed.RateLimit)
}

func TestSaveOmitsPasswords(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "hunter22"
	cfg.Cache.RedisPassword = "redis-pass"
	path := filepath.Join(t.TempDir(), "out", "config.yaml")

	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter22")
	assert.NotContains(t, string(data), "redis-pass")
	assert.Equal(t, "hunter22", cfg.Neo4j.Password, "Save must not mutate the config")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Storage.LocalPath, loaded.Storage.LocalPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		ctx      ValidationContext
		mode     DeploymentMode
		wantErr  bool
		wantWarn bool
	}{
		{
			name:   "file feed with sqlite",
			mutate: func(c *Config) { c.Feed.Source = "file"; c.Feed.Path = "smells.yaml" },
			ctx:    ValidationContextAnalyze,
			mode:   ModeDevelopment,
		},
		{
			name:    "neo4j feed without password",
			mutate:  func(c *Config) {},
			ctx:     ValidationContextAnalyze,
			mode:    ModeDevelopment,
			wantErr: true,
		},
		{
			name:    "insecure neo4j password in ci",
			mutate:  func(c *Config) { c.Neo4j.Password = "neo4j" },
			ctx:     ValidationContextAnalyze,
			mode:    ModeCI,
			wantErr: true,
		},
		{
			name:    "unknown storage type",
			mutate:  func(c *Config) { c.Storage.Type = "mysql" },
			ctx:     ValidationContextStorage,
			mode:    ModeDevelopment,
			wantErr: true,
		},
		{
			name: "postgres without ssl in development",
			mutate: func(c *Config) {
				c.Storage.Type = "postgres"
				c.Storage.PostgresDSN = "postgres://u:p@localhost:5432/db?sslmode=disable"
			},
			ctx:      ValidationContextStorage,
			mode:     ModeDevelopment,
			wantWarn: true,
		},
		{
			name: "postgres on localhost when packaged",
			mutate: func(c *Config) {
				c.Storage.Type = "postgres"
				c.Storage.PostgresDSN = "postgres://u:p@localhost:5432/db"
			},
			ctx:     ValidationContextStorage,
			mode:    ModePackaged,
			wantErr: true,
		},
		{
			name: "duplication threshold out of range",
			mutate: func(c *Config) {
				c.Feed.Source = "file"
				c.Feed.Path = "smells.yaml"
				c.Analysis.DuplicationThreshold = 1.5
			},
			ctx:     ValidationContextAnalyze,
			mode:    ModeDevelopment,
			wantErr: true,
		},
		{
			name: "redis cache without address",
			mutate: func(c *Config) {
				c.Feed.Source = "file"
				c.Feed.Path = "smells.yaml"
				c.Cache.Backend = "redis"
			},
			ctx:     ValidationContextAnalyze,
			mode:    ModeDevelopment,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			result := cfg.ValidateWithMode(tt.ctx, tt.mode)
			assert.Equal(t, tt.wantErr, result.HasErrors(), result.Error())
			if tt.wantWarn {
				assert.NotEmpty(t, result.Warnings)
			}
			if tt.wantErr {
				assert.Error(t, result.Err())
			} else {
				assert.NoError(t, result.Err())
			}
		})
	}
}

func TestResolveSecretsFromKeychain(t *testing.T) {
	keyring.MockInit()
	t.Setenv("NEO4J_PASSWORD", "")
	t.Setenv("POSTGRES_PASSWORD", "")

	cm := NewCredentialManager()
	cm.configPath = filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, cm.SaveCredentials(Credentials{Neo4jPassword: "graph-pass", PostgresPassword: "pg-pass"}))

	cfg := Default()
	cfg.Storage.Type = "postgres"
	cfg.Storage.PostgresDSN = "postgres://smells:${POSTGRES_PASSWORD}@db:5432/smells"
	require.NoError(t, cm.ResolveSecrets(cfg))

	assert.Equal(t, "graph-pass", cfg.Neo4j.Password)
	assert.Equal(t, "postgres://smells:pg-pass@db:5432/smells", cfg.Storage.PostgresDSN)
}

func TestResolveSecretsFromFile(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "")
	cm := &CredentialManager{
		mode:       ModeCI,
		keyring:    NewKeyringManager(),
		configPath: filepath.Join(t.TempDir(), "credentials.yaml"),
		stdin:      os.Stdin,
		out:        os.Stdout,
	}
	keyring.MockInitWithError(assert.AnError)
	t.Cleanup(keyring.MockInit)

	require.NoError(t, cm.SaveCredentials(Credentials{Neo4jPassword: "file-pass"}))
	password, err := cm.GetNeo4jPassword()
	require.NoError(t, err)
	assert.Equal(t, "file-pass", password)

	_, err = cm.GetPostgresPassword()
	assert.Error(t, err)
}
