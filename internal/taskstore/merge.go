package taskstore

import (
	"github.com/taskmesh/a2a-connector/internal/a2a"
	"github.com/taskmesh/a2a-connector/internal/models"
)

// UpdateTaskParams is a partial update command for a task aggregate. Any
// subset of the fields may be set; unset fields leave the stored value
// untouched.
type UpdateTaskParams struct {
	Status           *a2a.TaskStatus
	NewMessages      []a2a.Message
	ArtifactUpdates  []a2a.Artifact
	PushNotification *a2a.PushNotificationConfig
	CallerID         *string
}

// Merge applies params to the in-memory task document:
//
//   - a supplied status replaces the stored one; a message attached to it
//     is appended to history;
//   - new messages are appended in the order given;
//   - artifacts are upserted by index;
//   - a supplied push notification config replaces the prior one wholesale.
//
// History is never reordered and untouched fields are preserved. Merge does
// not persist anything; writing the result back is the store's job.
func Merge(task *a2a.Task, params UpdateTaskParams) error {
	if params.Status != nil {
		task.Status = *params.Status
		if params.Status.Message != nil {
			task.AddMessage(*params.Status.Message)
		}
	}

	for _, message := range params.NewMessages {
		task.AddMessage(message)
	}

	for _, artifact := range params.ArtifactUpdates {
		if err := task.UpsertArtifact(artifact); err != nil {
			return models.Conflict(err, "failed to update artifact %d", artifact.Index)
		}
	}

	return nil
}
