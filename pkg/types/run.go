package types

import "time"

// RunMode says how a batch was started
type RunMode string

const (
	RunModeApply RunMode = "apply"
	RunModeWatch RunMode = "watch"
)

// RunRecord is the persisted summary of one reconciliation batch
type RunRecord struct {
	ID         string            `json:"id"`
	Mode       RunMode           `json:"mode"`
	Manifest   string            `json:"manifest,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Resources  []ResourceOutcome `json:"resources"`
	Unmanaged  []string          `json:"unmanaged,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Failed reports whether any resource of the run failed
func (r *RunRecord) Failed() bool {
	return r.Error != ""
}

// ResourceOutcome is what a batch did for one declared resource
type ResourceOutcome struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions,omitempty"`
	Drift    []string `json:"drift,omitempty"`
	Error    string   `json:"error,omitempty"`
}
