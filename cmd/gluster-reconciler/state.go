package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuemby/gluster-reconciler/pkg/cache"
	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/volume"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List live volumes",
	Long: `List every volume the cluster reports, whether or not a manifest declares
it. Issues a single volume info query.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		peers := peer.NewReconciler(e.batch.Runner, e.batch.Aliases, e.batch.PeerOptions...)
		c := cache.New(volume.NewReconciler(e.batch.Runner, peers), peers)

		ctx, cancel := signalContext()
		defer cancel()

		instances, err := c.Instances(ctx)
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			fmt.Println("No volumes")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS\tTYPE\tBRICKS")
		for _, inst := range instances {
			bricks := make([]string, len(inst.Record.Bricks))
			for i, b := range inst.Record.Bricks {
				bricks[i] = b.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				inst.Name, inst.Record.Status, inst.Record.Type, strings.Join(bricks, ","))
		}
		return w.Flush()
	},
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List the peers of the trusted pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		r := peer.NewReconciler(e.batch.Runner, e.batch.Aliases, e.batch.PeerOptions...)

		ctx, cancel := signalContext()
		defer cancel()

		records, err := r.PeersPresent(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No peers")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HOSTNAME\tUUID\tSTATE\tOTHER NAMES")
		for _, p := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Hostname, p.UUID, p.State, strings.Join(p.OtherNames, ","))
		}
		return w.Flush()
	},
}
