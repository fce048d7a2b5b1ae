package helpers

import (
	"time"

	"github.com/taskmesh/a2a-connector/internal/a2a"
)

// UserTextMessage builds a user message with a single text part
func UserTextMessage(text string) a2a.Message {
	return a2a.Message{
		Role:  a2a.MessageRoleUser,
		Parts: []a2a.Part{a2a.NewTextPart(text)},
	}
}

// AgentTextMessage builds an agent message with a single text part
func AgentTextMessage(text string) a2a.Message {
	return a2a.Message{
		Role:  a2a.MessageRoleAgent,
		Parts: []a2a.Part{a2a.NewTextPart(text)},
	}
}

// SendParams builds task send parameters with a user text message
func SendParams(taskID, text string) a2a.TaskSendParams {
	return a2a.TaskSendParams{
		ID:      taskID,
		Message: UserTextMessage(text),
	}
}

// WorkingStatus builds a working status carrying an agent message
func WorkingStatus(text string) a2a.TaskStatus {
	now := time.Now().UTC()
	msg := AgentTextMessage(text)
	return a2a.TaskStatus{
		State:     a2a.TaskStateWorking,
		Message:   &msg,
		Timestamp: &now,
	}
}

// CompletedStatus builds a terminal completed status
func CompletedStatus() a2a.TaskStatus {
	now := time.Now().UTC()
	return a2a.TaskStatus{
		State:     a2a.TaskStateCompleted,
		Timestamp: &now,
	}
}

// TextArtifact builds a text artifact at the given index
func TextArtifact(index int, name, text string) a2a.Artifact {
	return a2a.Artifact{
		Name:  &name,
		Index: index,
		Parts: []a2a.Part{a2a.NewTextPart(text)},
	}
}
