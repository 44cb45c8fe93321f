/*
Package events provides an in-memory broker for reconciliation events.

A batch publishes one event per executed action, per detected drift and per
failed resource. The CLI subscribes to print a human readable trail and the
watch loop subscribes to log it.

# Architecture

	Batch ──Publish──▶ event channel (buffer: 100)
	                          │
	                   broadcast loop
	                          │
	        ┌─────────────────┼─────────────────┐
	        ▼                 ▼                 ▼
	   subscriber        subscriber        subscriber   (buffer: 50 each)

Publishing never waits on a subscriber: when a subscriber's buffer is full
the event is dropped for that subscriber only. Stop delivers whatever is
still queued and then closes Done.

# Event Types

	batch.started, batch.completed
	peer.probed, peer.detached
	volume.created, volume.started, volume.stopped, volume.deleted
	drift.detected
	resource.failed

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for e := range sub {
			fmt.Printf("%s %s %s\n", e.Type, e.Resource, e.Message)
		}
	}()

A nil *Broker accepts Publish and drops the event, so components can take
an optional broker.
*/
package events
