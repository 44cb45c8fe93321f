package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/gluster-reconciler/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [RUN-ID]",
	Short: "Show past reconciliation runs",
	Long: `Without arguments, list the most recent runs. With a run ID, show what
that run did to every resource.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	store, err := e.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("run history is disabled (history_limit < 0)")
	}
	defer store.Close()

	if len(args) == 1 {
		run, err := store.GetRun(args[0])
		if err != nil {
			return err
		}
		printRun(run)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tSTARTED\tDURATION\tRESOURCES\tFAILED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.Mode,
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			len(run.Resources),
			failedCount(run),
		)
	}
	return w.Flush()
}

func failedCount(run *types.RunRecord) int {
	n := 0
	for _, res := range run.Resources {
		if res.Error != "" {
			n++
		}
	}
	return n
}

func printRun(run *types.RunRecord) {
	fmt.Printf("Run:      %s\n", run.ID)
	fmt.Printf("Mode:     %s\n", run.Mode)
	fmt.Printf("Manifest: %s\n", run.Manifest)
	fmt.Printf("Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Printf("Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	if run.Error != "" && len(run.Resources) == 0 {
		fmt.Printf("Error:    %s\n", run.Error)
	}
	fmt.Println()

	for _, res := range run.Resources {
		var resErr error
		if res.Error != "" {
			resErr = errors.New(res.Error)
		}
		fmt.Printf("%s %s\n", resourceMark(resErr, len(res.Actions) > 0), res.Resource)
		for _, a := range res.Actions {
			fmt.Printf("    %s\n", a)
		}
		for _, d := range res.Drift {
			fmt.Printf("    drift: %s\n", d)
		}
		if res.Error != "" {
			fmt.Printf("    error: %s\n", res.Error)
		}
	}
	for _, name := range run.Unmanaged {
		fmt.Printf("  unmanaged: %s\n", name)
	}
}
