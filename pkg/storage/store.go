package storage

import (
	"errors"

	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// ErrRunNotFound is returned by GetRun for an unknown ID
var ErrRunNotFound = errors.New("run not found")

// Store defines the interface for run history storage
type Store interface {
	// SaveRun stores a run, replacing one with the same ID
	SaveRun(run *types.RunRecord) error

	// GetRun returns one run by ID
	GetRun(id string) (*types.RunRecord, error)

	// ListRuns returns the most recent runs first; limit <= 0 means all
	ListRuns(limit int) ([]*types.RunRecord, error)

	// PruneRuns keeps the newest keep runs and deletes the rest
	PruneRuns(keep int) (int, error)

	Close() error
}
