package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskmesh/a2a-connector/internal/a2a"
)

// TaskEvent is one row of the task_event table: an immutable record of a
// status or artifact change to a task.
type TaskEvent struct {
	TenantID  uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	ID        uuid.UUID     `json:"id" db:"id"`
	TaskID    string        `json:"task_id" db:"task_id"`
	CallerID  *string       `json:"caller_id,omitempty" db:"caller_id"`
	EventData a2a.TaskEvent `json:"event_data" db:"event_data"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// TaskSubscription is a registered interest in a task's events. Its
// lifecycle is owned by the registration endpoints; the fan-out only reads
// the rows that exist at event-creation time.
type TaskSubscription struct {
	TenantID     uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ID           uuid.UUID `json:"id" db:"id"`
	TaskID       string    `json:"task_id" db:"task_id"`
	SubscriberID string    `json:"subscriber_id" db:"subscriber_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DeliveryStatus tracks one delivery through its pull lifecycle.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
)

// TaskEventDelivery pairs one event with one subscription. Exactly one row
// is created per (event, subscription) pair, in the same transaction as the
// event itself.
type TaskEventDelivery struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	EventID        uuid.UUID      `json:"event_id" db:"event_id"`
	SubscriptionID uuid.UUID      `json:"subscription_id" db:"subscription_id"`
	Status         DeliveryStatus `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// DequeuedEvent is one delivery returned to a subscriber: the delivery id,
// the event it carries, and the event payload.
type DequeuedEvent struct {
	DeliveryID uuid.UUID     `json:"delivery_id"`
	EventID    uuid.UUID     `json:"event_id"`
	TaskID     string        `json:"task_id"`
	Event      a2a.TaskEvent `json:"event"`
}
