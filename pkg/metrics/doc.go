/*
Package metrics provides Prometheus metrics and health endpoints for
gluster-reconciler.

All collectors are registered on the default registry at package init and
exposed by Handler. The watch command serves them next to /health and /ready.

# Metrics

	gluster_reconciler_commands_total{subcommand,result}   result: ok, absorbed, failed
	gluster_reconciler_command_duration_seconds{subcommand}
	gluster_reconciler_malformed_blocks_total{kind}        kind: peer, volume
	gluster_reconciler_peers_total{state}
	gluster_reconciler_volumes_total{status}
	gluster_reconciler_unmanaged_volumes
	gluster_reconciler_batch_duration_seconds
	gluster_reconciler_batches_total
	gluster_reconciler_actions_total{action,result}
	gluster_reconciler_resource_failures_total{kind,class} class: execution, validation, parse
	gluster_reconciler_drift{volume}

Gauges describing the cluster are overwritten from each fresh snapshot; nothing
is carried across batches.
*/
package metrics
