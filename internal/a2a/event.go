package a2a

import (
	"encoding/json"
	"fmt"
)

// TaskStatusUpdateEvent is the immutable snapshot recorded when a task's
// status changes. Final marks the transition into a terminal state.
type TaskStatusUpdateEvent struct {
	ID       string                 `json:"id"`
	Status   TaskStatus             `json:"status"`
	Final    bool                   `json:"final"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent is the immutable snapshot recorded when one of a
// task's artifacts is created or replaced.
type TaskArtifactUpdateEvent struct {
	ID       string                 `json:"id"`
	Artifact Artifact               `json:"artifact"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TaskEvent is the payload of one protocol event: either a status update or
// an artifact update. On the wire the two variants are untagged and
// distinguished by their fields, matching the protocol encoding.
type TaskEvent struct {
	StatusUpdate   *TaskStatusUpdateEvent
	ArtifactUpdate *TaskArtifactUpdateEvent
}

// NewStatusUpdateEvent creates a status update event payload.
func NewStatusUpdateEvent(event TaskStatusUpdateEvent) TaskEvent {
	return TaskEvent{StatusUpdate: &event}
}

// NewArtifactUpdateEvent creates an artifact update event payload.
func NewArtifactUpdateEvent(event TaskArtifactUpdateEvent) TaskEvent {
	return TaskEvent{ArtifactUpdate: &event}
}

// TaskID returns the id of the task the event belongs to.
func (e TaskEvent) TaskID() string {
	switch {
	case e.StatusUpdate != nil:
		return e.StatusUpdate.ID
	case e.ArtifactUpdate != nil:
		return e.ArtifactUpdate.ID
	}
	return ""
}

// MarshalJSON encodes the active variant without a wrapper object.
func (e TaskEvent) MarshalJSON() ([]byte, error) {
	switch {
	case e.StatusUpdate != nil:
		return json.Marshal(e.StatusUpdate)
	case e.ArtifactUpdate != nil:
		return json.Marshal(e.ArtifactUpdate)
	}
	return nil, fmt.Errorf("task event has no payload")
}

// UnmarshalJSON decodes an untagged event payload, probing the artifact
// variant first since only it carries an "artifact" field.
func (e *TaskEvent) UnmarshalJSON(data []byte) error {
	var probe struct {
		Artifact *json.RawMessage `json:"artifact"`
		Status   *json.RawMessage `json:"status"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.Artifact != nil:
		var event TaskArtifactUpdateEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		e.StatusUpdate = nil
		e.ArtifactUpdate = &event
	case probe.Status != nil:
		var event TaskStatusUpdateEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		e.StatusUpdate = &event
		e.ArtifactUpdate = nil
	default:
		return fmt.Errorf("task event carries neither status nor artifact")
	}
	return nil
}
