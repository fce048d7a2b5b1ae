package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskmesh/a2a-connector/internal/a2a"
)

// TaskState is the lifecycle state as stored in the task_state column.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "SUBMITTED"
	TaskStateWorking       TaskState = "WORKING"
	TaskStateInputRequired TaskState = "INPUT_REQUIRED"
	TaskStateCompleted     TaskState = "COMPLETED"
	TaskStateFailed        TaskState = "FAILED"
	TaskStateCanceled      TaskState = "CANCELED"
	TaskStateUnknown       TaskState = "UNKNOWN"
)

// TaskType records which side of the connector created the task.
type TaskType string

const (
	TaskTypeIncoming TaskType = "INCOMING"
	TaskTypeOutgoing TaskType = "OUTGOING"
)

// TaskStateFromProtocol maps a protocol state to its storage value. The
// switch is exhaustive over the protocol's closed state set; an unknown
// input is a validation failure, not a silent default.
func TaskStateFromProtocol(state a2a.TaskState) (TaskState, error) {
	switch state {
	case a2a.TaskStateSubmitted:
		return TaskStateSubmitted, nil
	case a2a.TaskStateWorking:
		return TaskStateWorking, nil
	case a2a.TaskStateInputRequired:
		return TaskStateInputRequired, nil
	case a2a.TaskStateCompleted:
		return TaskStateCompleted, nil
	case a2a.TaskStateFailed:
		return TaskStateFailed, nil
	case a2a.TaskStateCanceled:
		return TaskStateCanceled, nil
	case a2a.TaskStateUnknown:
		return TaskStateUnknown, nil
	}
	return "", fmt.Errorf("unknown protocol task state %q", state)
}

// ToProtocol maps a storage state back to its protocol value.
func (s TaskState) ToProtocol() (a2a.TaskState, error) {
	switch s {
	case TaskStateSubmitted:
		return a2a.TaskStateSubmitted, nil
	case TaskStateWorking:
		return a2a.TaskStateWorking, nil
	case TaskStateInputRequired:
		return a2a.TaskStateInputRequired, nil
	case TaskStateCompleted:
		return a2a.TaskStateCompleted, nil
	case TaskStateFailed:
		return a2a.TaskStateFailed, nil
	case TaskStateCanceled:
		return a2a.TaskStateCanceled, nil
	case TaskStateUnknown:
		return a2a.TaskStateUnknown, nil
	}
	return "", fmt.Errorf("unknown stored task state %q", s)
}

// Task is one row of the task table: the persisted aggregate for one agent
// task, holding the protocol document alongside the derived state column.
type Task struct {
	TenantID         uuid.UUID                   `json:"tenant_id" db:"tenant_id"`
	ID               uuid.UUID                   `json:"id" db:"id"`
	AgentID          uuid.UUID                   `json:"agent_id" db:"agent_id"`
	TaskID           string                      `json:"task_id" db:"task_id"`
	CounterpartyID   *string                     `json:"counterparty_id,omitempty" db:"counterparty_id"`
	State            TaskState                   `json:"task_state" db:"task_state"`
	Type             TaskType                    `json:"task_type" db:"task_type"`
	PushNotification *a2a.PushNotificationConfig `json:"push_notification,omitempty" db:"push_notification"`
	A2ATask          *a2a.Task                   `json:"a2a_task,omitempty" db:"a2a_task"`
	CreatedAt        time.Time                   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at" db:"updated_at"`
}
