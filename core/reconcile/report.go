package reconcile

import (
	"fmt"
	"time"
)

// RecordError describes one record that failed during a run. The failure is
// recorded and the run continues with the next record.
type RecordError struct {
	// Record identifies the failed record, e.g. "entry 42" or "stat kills".
	Record string `json:"record"`
	// Message is the failure description.
	Message string `json:"message"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	LeaderboardsCreated int           `json:"leaderboards_created"`
	LeaderboardsUpdated int           `json:"leaderboards_updated"`
	MappingsCreated     int           `json:"mappings_created"`
	StatsCreated        int           `json:"stats_created"`
	StatsUpdated        int           `json:"stats_updated"`
	Pulled              int           `json:"pulled"`
	Pushed              int           `json:"pushed"`
	Errors              []RecordError `json:"errors"`
	ExecutionTime       string        `json:"execution_time"`

	started time.Time
}

// NewReport starts a report and its execution timer.
func NewReport() *Report {
	return &Report{Errors: []RecordError{}, started: time.Now()}
}

// Fail records a per-record failure without aborting the run.
func (r *Report) Fail(record string, err error) {
	r.Errors = append(r.Errors, RecordError{Record: record, Message: err.Error()})
}

// Failf is Fail with a formatted record identity.
func (r *Report) Failf(err error, format string, args ...any) {
	r.Fail(fmt.Sprintf(format, args...), err)
}

// Finish stops the execution timer.
func (r *Report) Finish() {
	r.ExecutionTime = time.Since(r.started).String()
}
