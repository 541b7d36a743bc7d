package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/smelltracker/internal/config"
	"github.com/rohankatakam/smelltracker/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smelltracker",
	Short: "smelltracker - code smell lifecycles across the branches of a git history",
	Long: `smelltracker rebuilds the branch structure of a repository from its commit
graph and follows every code smell reported by an external detector through
introduction, presence and removal on each branch.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var loadErr error
		cfg, loadErr = config.Load(cfgFile)
		if loadErr != nil {
			cfg = config.Default()
		}

		logCfg := logging.DefaultConfig(verbose)
		if cfg.Logging.File != "" {
			logCfg = logging.ProductionConfig(cfg.Logging.File)
		}
		logCfg.JSONFormat = logCfg.JSONFormat || cfg.Logging.JSON
		if !verbose {
			logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
		}
		if err := logging.Initialize(logCfg); err != nil {
			return err
		}
		logger = logging.Global().Logrus()
		if loadErr != nil {
			logger.WithError(loadErr).Warn("Failed to load config, using defaults")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .smelltracker/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`smelltracker {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(failuresCmd)
}
