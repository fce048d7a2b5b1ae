package a2a

import (
	"fmt"
	"time"
)

// TaskState is the lifecycle state of a task at the protocol boundary.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateUnknown       TaskState = "unknown"
)

// IsTerminal reports whether the state ends the task lifecycle.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

// Validate checks that the state is one of the protocol's closed set.
func (s TaskState) Validate() error {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateUnknown:
		return nil
	}
	return fmt.Errorf("unknown task state %q", s)
}

// TaskStatus is the current status of a task, optionally carrying the
// message that accompanied the transition.
type TaskStatus struct {
	State     TaskState  `json:"state"`
	Message   *Message   `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Artifact is one output produced by a task. Artifacts are keyed by Index:
// an update carrying an existing index replaces that artifact in place.
type Artifact struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Parts       []Part                 `json:"parts"`
	Index       int                    `json:"index"`
	Append      *bool                  `json:"append,omitempty"`
	LastChunk   *bool                  `json:"lastChunk,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the artifact's parts.
func (a *Artifact) Validate() error {
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact has no parts")
	}
	for i := range a.Parts {
		if err := a.Parts[i].Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

// AuthenticationInfo describes how to authenticate against a push
// notification endpoint.
type AuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials *string  `json:"credentials,omitempty"`
}

// PushNotificationConfig is the webhook configuration for task
// notifications. A new config replaces the prior one wholesale.
type PushNotificationConfig struct {
	URL            string              `json:"url"`
	Token          *string             `json:"token,omitempty"`
	Authentication *AuthenticationInfo `json:"authentication,omitempty"`
}

// Task is the protocol representation of one agent task: its status, an
// append-only message history, and its artifacts.
type Task struct {
	ID        string                 `json:"id"`
	SessionID *string                `json:"sessionId,omitempty"`
	Status    TaskStatus             `json:"status"`
	Artifacts []Artifact             `json:"artifacts,omitempty"`
	History   []Message              `json:"history,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the task document decodes into a consistent protocol
// shape. Stored documents are validated on every load rather than trusted.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task has no id")
	}
	if err := t.Status.State.Validate(); err != nil {
		return err
	}
	if t.Status.Message != nil {
		if err := t.Status.Message.Validate(); err != nil {
			return fmt.Errorf("status message: %w", err)
		}
	}
	for i := range t.History {
		if err := t.History[i].Validate(); err != nil {
			return fmt.Errorf("history message %d: %w", i, err)
		}
	}
	for i := range t.Artifacts {
		if err := t.Artifacts[i].Validate(); err != nil {
			return fmt.Errorf("artifact %d: %w", i, err)
		}
	}
	return nil
}

// AddMessage appends a message to the task history. History is append-only;
// messages are never reordered or dropped.
func (t *Task) AddMessage(message Message) {
	t.History = append(t.History, message)
}

// UpsertArtifact merges an artifact into the task by index. An existing
// artifact with the same index is replaced in place, preserving its
// position; otherwise the artifact is appended. An append-chunk update for
// an index that does not exist yet is inconsistent with the stored shape.
func (t *Task) UpsertArtifact(artifact Artifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}
	for i := range t.Artifacts {
		if t.Artifacts[i].Index == artifact.Index {
			if artifact.Append != nil && *artifact.Append {
				t.Artifacts[i].Parts = append(t.Artifacts[i].Parts, artifact.Parts...)
				t.Artifacts[i].LastChunk = artifact.LastChunk
				return nil
			}
			t.Artifacts[i] = artifact
			return nil
		}
	}
	if artifact.Append != nil && *artifact.Append {
		return fmt.Errorf("cannot append to artifact index %d: no existing artifact", artifact.Index)
	}
	t.Artifacts = append(t.Artifacts, artifact)
	return nil
}
