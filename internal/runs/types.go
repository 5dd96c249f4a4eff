package runs

import (
	"time"

	"github.com/fortuna/huddle/internal/ingest"
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Trigger records what started a run.
type Trigger string

const (
	TriggerAPI       Trigger = "api"
	TriggerScheduler Trigger = "scheduler"
	TriggerCLI       Trigger = "cli"
)

// interruptedMessage is stored on runs that were still running when the service restarted.
const interruptedMessage = "interrupted by restart"

// Run models one row of ingest_runs.
type Run struct {
	RunID         string         `json:"run_id"`
	Variant       ingest.Variant `json:"variant"`
	Trigger       Trigger        `json:"trigger"`
	Status        Status         `json:"status"`
	Fetched       int            `json:"fetched"`
	Valid         int            `json:"valid"`
	Invalid       int            `json:"invalid"`
	Written       int64          `json:"written"`
	FailedBatches int            `json:"failed_batches"`
	LastError     string         `json:"last_error,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// Copy returns a shallow copy to prevent external mutation.
func (r *Run) Copy() *Run {
	if r == nil {
		return nil
	}
	cpy := *r
	return &cpy
}

// apply copies the summary counters onto the run.
func (r *Run) apply(summary ingest.Summary) {
	r.Fetched = summary.Fetched
	r.Valid = summary.Valid
	r.Invalid = summary.Invalid
	r.Written = summary.Written
	r.FailedBatches = summary.FailedBatches
}
