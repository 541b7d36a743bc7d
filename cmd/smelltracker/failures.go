package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/smelltracker/internal/dlq"
	"github.com/rohankatakam/smelltracker/internal/storage"
)

var (
	failuresLimit   int
	failuresResolve int
)

var failuresCmd = &cobra.Command{
	Use:   "failures <project>",
	Short: "List branches whose lifecycle analysis failed",
	Long: `List the failure queue of a project. Branch -1 stands for a failure of the
whole project run. Use --resolve to drop an entry once it has been dealt with.`,
	Args: cobra.ExactArgs(1),
	RunE: runFailures,
}

func init() {
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 50, "maximum entries to list (0 = all)")
	failuresCmd.Flags().IntVar(&failuresResolve, "resolve", -2, "remove the entry of this branch id")
}

func runFailures(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	project, err := store.GetProject(ctx, args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("project %s has not been analyzed", args[0])
	}
	if err != nil {
		return err
	}

	queue := dlq.NewQueue(store.DB())
	out := cmd.OutOrStdout()
	if cmd.Flags().Changed("resolve") {
		if err := queue.MarkResolved(ctx, project.ID, failuresResolve); err != nil {
			return err
		}
		fmt.Fprintf(out, "Resolved branch %d of %s\n", failuresResolve, project.Name)
		return nil
	}

	stats, err := queue.GetStats(ctx, project.ID)
	if err != nil {
		return err
	}
	entries, err := queue.List(ctx, project.ID, failuresLimit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d failures (%d retryable, %d exhausted)\n\n",
		project.Name, stats.TotalEntries, stats.RetryableEntries, stats.ExhaustedRetries)
	if len(entries) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BRANCH\tRETRIES\tUPDATED\tRUN\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%d\t%s\t%.8s\t%s\n",
			e.BranchID, e.RetryCount, e.UpdatedAt.Format("2006-01-02 15:04"), e.RunID.String, e.ErrorMessage)
	}
	return w.Flush()
}
