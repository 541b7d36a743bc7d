package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/smelltracker/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextAnalyze - analyze and batch need storage and a feed
	ValidationContextAnalyze ValidationContext = "analyze"
	// ValidationContextStorage - migrate and failures need storage only
	ValidationContextStorage ValidationContext = "storage"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}
	return sb.String()
}

// Err returns the result as a config error, or nil when valid
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigErrorf("%s", vr.Error())
}

// Validate validates configuration for the given context with auto-detected mode
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	return c.ValidateWithMode(ctx, DetectMode())
}

// ValidateWithMode validates configuration for the given context and deployment mode
func (c *Config) ValidateWithMode(ctx ValidationContext, mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextStorage:
		c.validateStorage(result, mode)
	case ValidationContextAnalyze:
		c.validateStorage(result, mode)
		c.validateFeed(result, mode)
		c.validateCache(result)
		c.validateAnalysis(result)
	case ValidationContextAll:
		c.validateStorage(result, mode)
		c.validateFeed(result, mode)
		c.validateCache(result)
		c.validateAnalysis(result)
		c.validateLogging(result)
	}
	return result
}

func (c *Config) validateStorage(result *ValidationResult, mode DeploymentMode) {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.LocalPath == "" {
			result.AddError("storage.local_path is required for sqlite storage")
		}
	case "postgres":
		c.validatePostgres(result, mode)
	default:
		result.AddError("storage.type must be postgres or sqlite, got %q", c.Storage.Type)
	}
}

func (c *Config) validatePostgres(result *ValidationResult, mode DeploymentMode) {
	dsn := c.Storage.PostgresDSN
	if dsn == "" {
		result.AddError("POSTGRES_DSN is required but not set")
		return
	}

	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		result.AddError("POSTGRES_DSN must start with postgres:// or postgresql://")
	}

	if strings.Contains(dsn, "@localhost:") || strings.Contains(dsn, "@localhost/") {
		if mode.RequiresSecureCredentials() {
			result.AddError("PostgreSQL DSN uses localhost. In %s mode (%s), you must provide a remote database DSN.", mode, mode.Description())
		}
	}

	if strings.Contains(dsn, "sslmode=disable") {
		if mode.RequiresSecureCredentials() {
			result.AddError("PostgreSQL DSN has sslmode=disable. This is not allowed in %s mode.", mode)
		} else if mode.AllowsDevelopmentDefaults() {
			result.AddWarning("PostgreSQL DSN has sslmode=disable. Consider enabling SSL even for local development.")
		}
	}
}

func (c *Config) validateFeed(result *ValidationResult, mode DeploymentMode) {
	switch c.Feed.Source {
	case "file":
		if c.Feed.Path == "" {
			result.AddError("feed.path is required when feed.source is file")
		}
	case "neo4j":
		c.validateNeo4j(result, mode)
	default:
		result.AddError("feed.source must be neo4j or file, got %q", c.Feed.Source)
	}

	if c.Feed.RateLimit < 0 {
		result.AddError("feed.rate_limit must not be negative")
	}
	if c.Feed.RateLimit > 0 && c.Feed.Burst < 1 {
		result.AddWarning("feed.burst is %d, will use 1", c.Feed.Burst)
	}
}

func (c *Config) validateNeo4j(result *ValidationResult, mode DeploymentMode) {
	if c.Neo4j.URI == "" {
		result.AddError("NEO4J_URI is required but not set")
	} else if u, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	} else {
		switch u.Scheme {
		case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
		default:
			result.AddError("NEO4J_URI has unsupported scheme %q", u.Scheme)
		}
		if u.Hostname() == "localhost" && mode.RequiresSecureCredentials() {
			result.AddWarning("Neo4j URI uses localhost in %s mode", mode)
		}
	}

	if c.Neo4j.User == "" {
		result.AddError("NEO4J_USER is required but not set")
	}

	if c.Neo4j.Password == "" {
		result.AddError("NEO4J_PASSWORD is required but not set. Set it via environment variable or keychain.")
	} else if mode.RequiresSecureCredentials() {
		for _, insecure := range []string{"password", "neo4j"} {
			if c.Neo4j.Password == insecure {
				result.AddError("NEO4J_PASSWORD is set to an insecure default (%s). This is not allowed in %s mode.", insecure, mode)
			}
		}
	}

	if c.Neo4j.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use 'neo4j' as default")
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	switch c.Cache.Backend {
	case "none", "":
	case "bolt":
		if c.Cache.Directory == "" {
			result.AddError("cache.directory is required for the bolt cache")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			result.AddError("REDIS_ADDR is required for the redis cache")
		}
	default:
		result.AddError("cache.backend must be bolt, redis or none, got %q", c.Cache.Backend)
	}

	if c.Cache.TTL < 0 {
		result.AddWarning("cache.ttl is negative, entries will not expire")
	}
}

func (c *Config) validateAnalysis(result *ValidationResult) {
	a := c.Analysis
	if a.BatchSize <= 0 {
		result.AddWarning("analysis.batch_size is %d, will use 1000", a.BatchSize)
	}
	if a.Concurrency < 1 {
		result.AddError("analysis.concurrency must be at least 1, got %d", a.Concurrency)
	}
	if a.RenameSimilarity < 0 || a.RenameSimilarity > 100 {
		result.AddError("analysis.rename_similarity must be between 0 and 100, got %d", a.RenameSimilarity)
	}
	if a.DuplicationThreshold <= 0 || a.DuplicationThreshold > 1 {
		result.AddError("analysis.duplication_threshold must be in (0,1], got %.2f", a.DuplicationThreshold)
	}
	if a.NameSimilarity <= 0 || a.NameSimilarity > 1 {
		result.AddError("analysis.name_similarity must be in (0,1], got %.2f", a.NameSimilarity)
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		result.AddWarning("logging.level %q is unknown, will use info", c.Logging.Level)
	}
}
