package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inventaris/inventaris/internal/masterdata/suppliers"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSuppliersChanged is emitted after a supplier is created, updated or deleted.
	TaskSuppliersChanged = "suppliers:changed"
	// TaskIdempotencyCleanup prunes expired Idempotency-Key records.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// SuppliersChangedPayload describes a persisted supplier mutation.
type SuppliersChangedPayload struct {
	SupplierID int64     `json:"supplier_id"`
	Kind       string    `json:"kind"`
	ActorID    int64     `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewSuppliersChangedTask constructs an Asynq task from a supplier event.
func NewSuppliersChangedTask(evt suppliers.ChangedEvent) (*asynq.Task, error) {
	data, err := json.Marshal(SuppliersChangedPayload{
		SupplierID: evt.SupplierID,
		Kind:       string(evt.Kind),
		ActorID:    evt.ActorID,
		OccurredAt: evt.OccurredAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSuppliersChanged, data, asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.MaxRetry(1), asynq.Timeout(5*time.Minute))
}
