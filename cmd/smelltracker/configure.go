package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/smelltracker/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup of storage, smell feed and credentials",
	Long: `Walk through smelltracker configuration step-by-step.

Passwords are stored in the OS keychain when one is available, otherwise in
a user-only credentials file. They are never written to the config file.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(os.Stdin)
	ask := func(label, current string) string {
		fmt.Fprintf(out, "%s [%s]: ", label, current)
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
		return current
	}

	path := cfgFile
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".smelltracker", "config.yaml")
	}

	km := config.NewKeyringManager()
	cm := config.NewCredentialManager()
	if !km.IsAvailable() {
		fmt.Fprintf(out, "OS keychain not available; passwords go to %s\n\n", cm.GetConfigPath())
	}

	var creds config.Credentials

	fmt.Fprintln(out, "Step 1/3: Storage")
	cfg.Storage.Type = ask("Storage type (sqlite/postgres)", cfg.Storage.Type)
	if cfg.Storage.Type == "postgres" {
		cfg.Storage.PostgresDSN = ask("Postgres DSN (use ${POSTGRES_PASSWORD} as the password)", cfg.Storage.PostgresDSN)
		if strings.Contains(cfg.Storage.PostgresDSN, "${POSTGRES_PASSWORD}") {
			password, err := cm.Prompt("Postgres password")
			if err != nil {
				return err
			}
			creds.PostgresPassword = password
		}
	} else {
		cfg.Storage.LocalPath = ask("SQLite database path", cfg.Storage.LocalPath)
	}

	fmt.Fprintln(out, "\nStep 2/3: Smell feed")
	cfg.Feed.Source = ask("Feed source (neo4j/file)", cfg.Feed.Source)
	if cfg.Feed.Source == "neo4j" {
		cfg.Neo4j.URI = ask("Neo4j URI", cfg.Neo4j.URI)
		cfg.Neo4j.User = ask("Neo4j user", cfg.Neo4j.User)
		cfg.Neo4j.Database = ask("Neo4j database", cfg.Neo4j.Database)

		source := km.SecretSource(config.KeyringNeo4jPasswordItem, "NEO4J_PASSWORD", cfg.Neo4j.Password)
		fmt.Fprintf(out, "Neo4j password: %s\n", source.Recommended)
		if source.Source == "none" || !source.Secure {
			password, err := cm.Prompt("Neo4j password")
			if err != nil {
				return err
			}
			creds.Neo4jPassword = password
		}
	} else {
		cfg.Feed.Path = ask("Smell export file", cfg.Feed.Path)
	}

	fmt.Fprintln(out, "\nStep 3/3: Snapshot cache")
	cfg.Cache.Backend = ask("Cache backend (bolt/redis/none)", cfg.Cache.Backend)
	if cfg.Cache.Backend == "redis" {
		cfg.Cache.RedisAddr = ask("Redis address", cfg.Cache.RedisAddr)
	}

	if creds.Neo4jPassword != "" || creds.PostgresPassword != "" {
		if err := cm.SaveCredentials(creds); err != nil {
			return err
		}
		if creds.Neo4jPassword != "" {
			cfg.Neo4j.Password = creds.Neo4jPassword
		}
	}

	result := cfg.Validate(config.ValidationContextAll)
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nConfiguration saved to %s\n", path)
	return result.Err()
}
