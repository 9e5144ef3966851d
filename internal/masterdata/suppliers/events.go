package suppliers

import (
	"context"
	"time"
)

// ChangeKind names the mutation that produced a ChangedEvent.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangedEvent is emitted after a supplier mutation has been persisted.
type ChangedEvent struct {
	SupplierID int64      `json:"supplier_id"`
	Kind       ChangeKind `json:"kind"`
	ActorID    int64      `json:"actor_id"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// EventPublisher forwards supplier events to background consumers.
type EventPublisher interface {
	PublishSupplierChanged(ctx context.Context, evt ChangedEvent) error
}
