/*
Package volume reconciles declared GlusterFS volumes against the live
cluster.

A volume is always in one of three live states and the declared ensure
value selects a target. The plan is the ordered list of gluster commands
that moves one to the other:

	live \ target     started          stopped     absent
	─────────────────────────────────────────────────────────────
	absent            create, start    create      -
	present-stopped   start            -           delete
	present-started   -                stop        stop, delete

"present" is an alias for "started". A volume reported with status
Created has never been started and counts as present-stopped.

# Brick Peers

Before a create is issued every brick host must be a connected member of
the trusted pool. Apply probes the hosts that are missing through the peer
reconciler and then re-reads peer status until they are confirmed:

	Apply(vol1)
	  │
	  ├── peer status
	  ├── peer probe gfs2.local        (hosts not yet connected)
	  ├── peer status ... (polled)     (until every host is connected)
	  ├── volume create vol1 replica 2 gfs1.local:/b gfs2.local:/b
	  └── volume start vol1

When a host cannot be confirmed a ValidationError is returned and no
volume command is run.

# Drift

For an existing volume the declared layout (bricks, replica, stripe and
transport) is compared with the live one. Differences are returned in
Plan.Drift and logged. They are never repaired: changing the layout of a
volume that holds data is left to the operator.

# Usage

	peers := peer.NewReconciler(runner, aliases)
	volumes := volume.NewReconciler(runner, peers)

	live, err := volumes.Info(ctx, "vol1")
	if err != nil {
		return err
	}
	result, err := volumes.Apply(ctx, spec, live)
*/
package volume
