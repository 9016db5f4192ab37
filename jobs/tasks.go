// Package jobs contains the background maintenance tasks processed by the
// Asynq worker.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMaintenanceSweep clears expired sessions, idempotency keys and
	// permission cache entries.
	TaskMaintenanceSweep = "maintenance:sweep"
	// TaskStockSnapshotRefresh rebuilds the aggregated stock view.
	TaskStockSnapshotRefresh = "inventory:snapshot_refresh"
)

// MaintenanceSweepPayload bounds how old idempotency keys must be before
// removal.
type MaintenanceSweepPayload struct {
	IdempotencyMaxAgeHours int `json:"idempotency_max_age_hours"`
}

// NewMaintenanceSweepTask constructs the sweep task.
func NewMaintenanceSweepTask(maxAgeHours int) (*asynq.Task, error) {
	data, err := json.Marshal(MaintenanceSweepPayload{IdempotencyMaxAgeHours: maxAgeHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMaintenanceSweep, data), nil
}

// NewStockSnapshotRefreshTask constructs the snapshot refresh task.
func NewStockSnapshotRefreshTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskStockSnapshotRefresh, nil), nil
}
