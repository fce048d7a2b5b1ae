package a2a

// TaskSendParams is the protocol payload of a task send request. The first
// send for an id creates the task; later sends append the message.
type TaskSendParams struct {
	ID               string                  `json:"id"`
	SessionID        *string                 `json:"sessionId,omitempty"`
	Message          Message                 `json:"message"`
	PushNotification *PushNotificationConfig `json:"pushNotification,omitempty"`
	HistoryLength    *int                    `json:"historyLength,omitempty"`
	Metadata         map[string]interface{}  `json:"metadata,omitempty"`
}
