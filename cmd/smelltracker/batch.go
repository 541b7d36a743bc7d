package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/smelltracker/internal/ingestion"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <projects.yaml>",
	Short: "Analyze every project of a project list",
	Long: `Analyze the projects listed in a YAML file:

  projects:
    - name: commons-lang
      repository: https://github.com/apache/commons-lang.git
    - name: local-service
      repository: ../repos/local-service
      feed: feeds/local-service.yaml

Projects run concurrently (analysis.concurrency). A failing project is
recorded in the failure queue and does not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "projects analyzed in parallel (default from config)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	projects, err := ingestion.LoadProjects(args[0])
	if err != nil {
		return err
	}
	if batchConcurrency > 0 {
		cfg.Analysis.Concurrency = batchConcurrency
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
	runner := ingestion.NewRunner(orchestrator, store, cfg.Analysis.Concurrency, logger)
	outcomes, err := runner.AnalyzeAll(ctx, projects)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tSTATUS\tCOMMITS\tBRANCHES\tEVENTS\tFAILED BRANCHES")
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\t\n", o.Project, o.Err)
			continue
		}
		r := o.Result
		fmt.Fprintf(w, "%s\tok\t%d\t%d\t%d\t%d\n", o.Project, r.Commits, r.Branches, r.Events, r.Failed)
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d projects failed", failed, len(outcomes))
	}
	return nil
}
