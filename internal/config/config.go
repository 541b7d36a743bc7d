package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Neo4j    Neo4jConfig    `yaml:"neo4j" mapstructure:"neo4j"`
	Feed     FeedConfig     `yaml:"feed" mapstructure:"feed"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "postgres", "sqlite"
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
}

// Neo4jConfig locates the graph database the smell feed is read from
type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

type FeedConfig struct {
	Source    string  `yaml:"source" mapstructure:"source"` // "neo4j", "file"
	Path      string  `yaml:"path" mapstructure:"path"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // queries per second, 0 = unlimited
	Burst     int     `yaml:"burst" mapstructure:"burst"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" mapstructure:"backend"` // "bolt", "redis", "none"
	Directory     string        `yaml:"directory" mapstructure:"directory"`
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" mapstructure:"redis_password"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type AnalysisConfig struct {
	BatchSize            int     `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency          int     `yaml:"concurrency" mapstructure:"concurrency"`
	CommitDetails        bool    `yaml:"commit_details" mapstructure:"commit_details"`
	RenameSimilarity     int     `yaml:"rename_similarity" mapstructure:"rename_similarity"`
	DuplicationThreshold float64 `yaml:"duplication_threshold" mapstructure:"duplication_threshold"`
	NameSimilarity       float64 `yaml:"name_similarity" mapstructure:"name_similarity"`
}

type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".smelltracker", "smelltracker.db"),
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Feed: FeedConfig{
			Source:    "neo4j",
			RateLimit: 50,
			Burst:     10,
		},
		Cache: CacheConfig{
			Backend:   "bolt",
			Directory: filepath.Join(homeDir, ".smelltracker", "cache"),
			TTL:       7 * 24 * time.Hour,
		},
		Analysis: AnalysisConfig{
			BatchSize:            1000,
			Concurrency:          2,
			CommitDetails:        true,
			RenameSimilarity:     50,
			DuplicationThreshold: 0.5,
			NameSimilarity:       0.8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file. An empty path searches the standard
// locations; a missing file is not an error.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("neo4j", cfg.Neo4j)
	v.SetDefault("feed", cfg.Feed)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("analysis", cfg.Analysis)
	v.SetDefault("logging", cfg.Logging)

	v.SetEnvPrefix("SMELLTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".smelltracker")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".smelltracker"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Precedence: env var, then config file, then defaults. Passwords left
// empty are resolved later through the credential chain.
func applyEnvOverrides(cfg *Config) {
	cfg.Storage.Type = GetString("STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.PostgresDSN = GetString("POSTGRES_DSN", cfg.Storage.PostgresDSN)
	if path := os.Getenv("LOCAL_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}

	cfg.Neo4j.URI = GetString("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = GetString("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = GetString("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = GetString("NEO4J_DATABASE", cfg.Neo4j.Database)

	cfg.Feed.Source = GetString("FEED_SOURCE", cfg.Feed.Source)
	if path := os.Getenv("FEED_PATH"); path != "" {
		cfg.Feed.Path = expandPath(path)
	}
	cfg.Feed.RateLimit = GetFloat("FEED_RATE_LIMIT", cfg.Feed.RateLimit)

	cfg.Cache.Backend = GetString("CACHE_BACKEND", cfg.Cache.Backend)
	if dir := os.Getenv("CACHE_DIRECTORY"); dir != "" {
		cfg.Cache.Directory = expandPath(dir)
	}
	cfg.Cache.RedisAddr = GetString("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = GetString("REDIS_PASSWORD", cfg.Cache.RedisPassword)

	cfg.Analysis.BatchSize = GetInt("ANALYSIS_BATCH_SIZE", cfg.Analysis.BatchSize)
	cfg.Analysis.Concurrency = GetInt("ANALYSIS_CONCURRENCY", cfg.Analysis.Concurrency)
	cfg.Analysis.CommitDetails = GetBool("ANALYSIS_COMMIT_DETAILS", cfg.Analysis.CommitDetails)

	cfg.Logging.Level = GetString("LOG_LEVEL", cfg.Logging.Level)
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Logging.File = expandPath(file)
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file. Passwords are never written; they
// belong in the keychain.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	neo4j := c.Neo4j
	neo4j.Password = ""
	cache := c.Cache
	cache.RedisPassword = ""

	v.Set("storage", c.Storage)
	v.Set("neo4j", neo4j)
	v.Set("feed", c.Feed)
	v.Set("cache", cache)
	v.Set("analysis", c.Analysis)
	v.Set("logging", c.Logging)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
