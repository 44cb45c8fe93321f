/*
Package log provides structured logging for gluster-reconciler using zerolog.

The log package wraps zerolog with a package-level logger, configurable level
and output format, and child-logger helpers that attach the fields every
reconciliation message carries (component, volume, peer, run ID).

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("executor")                │          │
	│  │  - WithVolume("vol1")                       │          │
	│  │  - WithPeer("gfs2.local")                   │          │
	│  │  - WithRunID("3f0c...")                     │          │
	│  └────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────┘

Before Init is called the logger writes JSON to stderr, so packages used as a
library (and their tests) log without any setup.

# Log Levels

Debug: every gluster command issued and every absorbed idempotent failure.
Info: actions taken (probe, create, start, stop, delete) and batch summaries.
Warn: skipped malformed output blocks, detected drift, degraded prefetch.
Error: failed resources.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})

	logger := log.WithVolume("vol1")
	logger.Info().Str("action", "create").Msg("Creating volume")
*/
package log
