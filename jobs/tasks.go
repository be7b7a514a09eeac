package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarm pre-populates the dashboard cache.
	TaskDashboardWarm = "dashboard:warm"
	// TaskIdempotencyCleanup purges aged idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// DashboardWarmPayload selects the fiscal year to warm. A zero year
// means the current year.
type DashboardWarmPayload struct {
	Year int `json:"year"`
}

// NewDashboardWarmTask constructs an Asynq task.
func NewDashboardWarmTask(payload DashboardWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarm, data), nil
}

// IdempotencyCleanupPayload controls the retention window in hours.
type IdempotencyCleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
