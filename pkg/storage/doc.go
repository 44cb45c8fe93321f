/*
Package storage keeps the history of reconciliation runs in BoltDB.

Live cluster state is never stored here: gluster itself is the source of
truth and every batch re-reads it. What is stored is the outcome of each
batch, so an operator can ask what the reconciler did and when.

# Layout

	<data-dir>/history.db
	└── runs                bucket
	    └── <run id>  →  JSON types.RunRecord

Run IDs are UUIDs. Listing decodes every record and orders by start time,
newest first; PruneRuns trims the bucket to a fixed number of runs after
each batch.

# Usage

	store, err := storage.NewBoltStore("/var/lib/gluster-reconciler")
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(10)

BoltDB takes an exclusive file lock, so only one process can open the
history at a time. Opening waits up to five seconds for the lock.
*/
package storage
