// Package jobs runs background work over asynq: precomputing the report
// suite so first-hit statement requests land on a warm cache.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup precomputes and caches the statement suite.
	TaskReportsWarmup = "reports:warmup"
)

// ReportsWarmupPayload bounds the warmup window. Empty values default to
// the current fiscal year.
type ReportsWarmupPayload struct {
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Periodicity string `json:"periodicity,omitempty"`
}

// NewReportsWarmupTask constructs an Asynq task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
