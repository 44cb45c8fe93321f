/*
Package parser turns gluster admin CLI text into live-state records.

Each output format is read by a small line-oriented state machine with explicit
block delimiters:

	peer status                          volume info
	───────────                          ───────────
	Number of Peers: 2      (header)     Volume Name: vol1      (block start)
	                                     Type: Replicate
	Hostname: gfs2.local    (block)      Volume ID: 8f2c...
	Uuid: 6770f88c-...                   Status: Started
	State: Peer in Cluster (Connected)   Number of Bricks: 1 x 2 = 2
	Other names:            (list)       Transport-type: tcp
	gfs2                                 Bricks:                (list)
	                        (list end)   Brick1: gfs1.local:/data/b1
	Hostname: 10.0.0.3                   Brick2: gfs2.local:/data/b1
	...                                  Options Reconfigured:  (map)
	                                     performance.readdir-ahead: on

Error recovery is per block: a block that cannot be turned into a record is
skipped with a warning and counted in gluster_reconciler_malformed_blocks_total.
Only output whose overall structure is unrecognizable (empty, or neither a
header/marker nor a single block) yields a *ParseError, which the prefetch layer
treats as fatal for the whole pass.
*/
package parser
