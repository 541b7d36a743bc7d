package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/smelltracker/internal/git"
	"github.com/rohankatakam/smelltracker/internal/topology"
)

var branchesJSON bool

var branchesCmd = &cobra.Command{
	Use:   "branches <path>",
	Short: "Print the branches reconstructed from a repository's commit graph",
	Long:  `Reconstruct the branch topology of a local repository without touching the database or the smell feed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBranches,
}

func init() {
	branchesCmd.Flags().BoolVar(&branchesJSON, "json", false, "print branches as JSON")
}

type branchView struct {
	ID      int      `json:"id"`
	Commits []string `json:"commits"`
	Fork    string   `json:"fork_point,omitempty"`
	Merge   string   `json:"merge_point,omitempty"`
}

func runBranches(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	repo, err := git.Open(args[0])
	if err != nil {
		return err
	}
	if err := repo.Load(ctx, nil); err != nil {
		return err
	}

	branches, err := topology.NewReconstructor(repo).Reconstruct(ctx)
	if err != nil {
		return err
	}
	if err := topology.Check(branches); err != nil {
		return err
	}

	views := make([]branchView, len(branches))
	for i, b := range branches {
		views[i] = branchView{ID: b.ID, Commits: b.SHAs()}
		if b.ForkPoint != nil {
			views[i].Fork = b.ForkPoint.SHA
		}
		if b.MergePoint != nil {
			views[i].Merge = b.MergePoint.SHA
		}
	}

	out := cmd.OutOrStdout()
	if branchesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	fmt.Fprintf(out, "%d commits, %d branches\n", len(repo.Commits()), len(branches))
	for _, v := range views {
		kind := "branch"
		if v.ID == 0 {
			kind = "trunk"
		}
		fmt.Fprintf(out, "%s %d: %d commits", kind, v.ID, len(v.Commits))
		if v.Fork != "" {
			fmt.Fprintf(out, ", forks from %.8s", v.Fork)
		}
		if v.Merge != "" {
			fmt.Fprintf(out, ", merged at %.8s", v.Merge)
		}
		fmt.Fprintln(out)
	}
	return nil
}
