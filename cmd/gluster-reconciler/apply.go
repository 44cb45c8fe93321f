package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/gluster-reconciler/pkg/events"
	"github.com/cuemby/gluster-reconciler/pkg/manifest"
	"github.com/cuemby/gluster-reconciler/pkg/reconciler"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a manifest to the cluster",
	Long: `Reconcile the peers and volumes declared in a manifest once.

Peers are handled first, then volumes, each in declaration order. A
resource that fails does not stop the others; the command exits non-zero
if any resource failed.

Examples:
  # Converge this node's view of the pool
  gluster-reconciler apply -f cluster.yaml`,
	RunE: runApply,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the commands apply would run",
	Long: `Read the live cluster state and print, per declared resource, the gluster
commands apply would issue. Nothing is changed.

Examples:
  gluster-reconciler plan -f cluster.yaml`,
	RunE: runPlan,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Manifest file (required)")
	_ = applyCmd.MarkFlagRequired("file")

	planCmd.Flags().StringP("file", "f", "", "Manifest file (required)")
	_ = planCmd.MarkFlagRequired("file")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	e, err := setup(cmd)
	if err != nil {
		return err
	}

	broker := events.NewBroker()
	broker.Start()
	sub := broker.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range sub {
			printEvent(ev)
		}
	}()
	e.batch.Broker = broker

	r := reconciler.NewReconciler(e.batch, func() (*manifest.Manifest, error) {
		return manifest.Load(filename)
	}, 0)
	store, err := e.openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		r.WithHistory(store, e.cfg.HistoryLimit)
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := r.Reconcile(ctx, types.RunModeApply)

	broker.Stop()
	<-broker.Done()
	broker.Unsubscribe(sub)
	<-printed

	if report != nil {
		printSummary(report)
	}
	return err
}

func runPlan(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	m, err := manifest.Load(filename)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := reconciler.NewBatch(e.batch, m).Plan(ctx)
	if report.Aborted {
		return err
	}

	for _, res := range report.Results {
		mark := resourceMark(res.Err, len(res.Actions) > 0)
		switch {
		case res.Err != nil:
			fmt.Printf("%s %s: %v\n", mark, res.Resource, res.Err)
		case len(res.Actions) == 0:
			fmt.Printf("%s %s: in sync\n", mark, res.Resource)
		default:
			fmt.Printf("%s %s:\n", mark, res.Resource)
			for _, a := range res.Actions {
				fmt.Printf("    %s\n", a)
			}
		}
		for _, d := range res.Drift {
			fmt.Printf("    drift: %s\n", d)
		}
	}
	if len(report.Unmanaged) > 0 {
		fmt.Printf("\nUnmanaged volumes (left untouched): %s\n", strings.Join(report.Unmanaged, ", "))
	}
	return err
}

func printEvent(ev *events.Event) {
	switch ev.Type {
	case events.EventBatchStarted, events.EventBatchCompleted:
		return
	case events.EventResourceFailed:
		fmt.Printf("✗ %s: %s\n", ev.Resource, ev.Message)
	case events.EventDriftDetected:
		fmt.Printf("! %s drift: %s\n", ev.Resource, ev.Message)
	default:
		fmt.Printf("✓ %s: %s\n", ev.Resource, ev.Message)
	}
}

func printSummary(report *reconciler.Report) {
	if report.Aborted {
		return
	}
	fmt.Println()
	fmt.Printf("Run %s: %d resources, %d changed, %d failed\n",
		report.RunID, len(report.Results), report.Changed(), len(report.Failed()))
	if len(report.Unmanaged) > 0 {
		fmt.Printf("Unmanaged volumes (left untouched): %s\n", strings.Join(report.Unmanaged, ", "))
	}
}
