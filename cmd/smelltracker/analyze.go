package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/smelltracker/internal/ingestion"
	"github.com/rohankatakam/smelltracker/internal/models"
)

var (
	analyzeFeedFile string
	analyzeNoDetail bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <name> <path-or-url>",
	Short: "Analyze the smell lifecycles of one project",
	Long: `Load the commit graph of a repository, reconstruct its branches and
persist the lifecycle events of every smell reported by the smell feed.

Remote repositories are cloned (full history) under ~/.smelltracker/repos.`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFeedFile, "feed", "", "read smells from a YAML export instead of the configured feed")
	analyzeCmd.Flags().BoolVar(&analyzeNoDetail, "no-details", false, "skip diff statistics and rename detection")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if analyzeFeedFile != "" {
		cfg.Feed.Source = "file"
		cfg.Feed.Path = analyzeFeedFile
	}
	if analyzeNoDetail {
		cfg.Analysis.CommitDetails = false
	}
	if err := prepareAnalysis(); err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	feeds, err := ingestion.NewFeedBuilder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer feeds.Close()

	orchestrator := ingestion.NewOrchestrator(store, feeds.Open, logger, &cfg.Analysis)
	result, err := orchestrator.Analyze(ctx, &models.Project{Name: args[0], Repository: args[1]})
	if err != nil {
		return fmt.Errorf("analysis of %s failed: %w", args[0], err)
	}

	printResult(cmd, result)
	hits, misses := feeds.CacheStats()
	if hits+misses > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot cache: %d hits, %d misses\n", hits, misses)
	}
	return nil
}

func printResult(cmd *cobra.Command, r *ingestion.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project %s (run %s)\n", r.Project, r.RunID)
	fmt.Fprintf(out, "  Commits:  %d (%d covered by the smell feed)\n", r.Commits, r.Covered)
	fmt.Fprintf(out, "  Renames:  %d\n", r.Renames)
	fmt.Fprintf(out, "  Tags:     %d\n", r.Tags)
	fmt.Fprintf(out, "  Branches: %d (%d failed)\n", r.Branches, r.Failed)
	fmt.Fprintf(out, "  Events:   %d\n", r.Events)
	fmt.Fprintf(out, "  Duration: %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Unresolved) > 0 {
		fmt.Fprintf(out, "  Unresolved at branch end: %d\n", len(r.Unresolved))
		for _, u := range r.Unresolved {
			fmt.Fprintf(out, "    branch %d: %s (last seen %.8s)\n", u.BranchID, u.Smell, u.LastSeen)
		}
	}
	if r.Failed > 0 {
		fmt.Fprintf(out, "  Failed branches are listed by: smelltracker failures %s\n", r.Project)
	}
}
