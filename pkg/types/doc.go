/*
Package types defines the data shared by the reconcilers: declared specs,
live records parsed from the gluster CLI, the actions a reconciler issues
and the outcome records kept in the run history.

# Declared vs live

Specs (PeerSpec, VolumeSpec) come from the manifest and are validated before
any command runs. Records (PeerRecord, VolumeRecord) are rebuilt from CLI
output on every batch and never mutated in place.

	VolumeSpec.Ensure    present | started | stopped | absent
	VolumeRecord.Status  Created | Started | Stopped

present is an alias for started. A Created volume counts as stopped.

# Identity

Peer identities compare case-insensitively. A PeerRecord matches an identity
when its hostname or any of its other names equal it. LocalAliasSet holds
the names this host answers to; probing one of them is never needed.

# Errors

ValidationError marks a declaration that cannot be applied. It is returned
before any mutating command and may wrap the cause, for instance an
unconfirmed brick peer.
*/
package types
