// Package pushnotify delivers task events to the webhook configured on a
// task. Requests are signed with a JWT so receivers can verify the
// connector as the sender.
package pushnotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/taskmesh/a2a-connector/internal/a2a"
)

// Sender posts signed event notifications to task webhooks.
type Sender struct {
	client     *http.Client
	signingKey jwk.Key
}

// NewSender creates a sender signing notifications with secret.
func NewSender(secret []byte, client *http.Client) (*Sender, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	key, err := jwk.Import(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to import signing key: %w", err)
	}
	return &Sender{client: client, signingKey: key}, nil
}

// notification is the body posted to the webhook.
type notification struct {
	TaskID    string        `json:"task_id"`
	Event     a2a.TaskEvent `json:"event"`
	Timestamp string        `json:"timestamp"`
}

// Send posts the event to the task's configured webhook. A nil config is a
// no-op: not every task registers for push notifications.
func (s *Sender) Send(ctx context.Context, taskID string, event a2a.TaskEvent, config *a2a.PushNotificationConfig) error {
	if config == nil {
		return nil
	}

	body, err := json.Marshal(notification{
		TaskID:    taskID,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	token, err := jwt.NewBuilder().
		Issuer("a2a-connector").
		IssuedAt(time.Now()).
		Claim("task_id", taskID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build notification token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), s.signingKey))
	if err != nil {
		return fmt.Errorf("failed to sign notification token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+string(signed))
	if config.Token != nil {
		req.Header.Set("X-Notification-Token", *config.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification to %s: %w", config.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned status %d", config.URL, resp.StatusCode)
	}
	return nil
}

// SendAsync fires Send on a background goroutine, logging failures. Used
// after commit so notification latency never holds a transaction open.
func (s *Sender) SendAsync(taskID string, event a2a.TaskEvent, config *a2a.PushNotificationConfig) {
	if config == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Send(ctx, taskID, event, config); err != nil {
			log.Printf(`{"level":"warn","message":"Push notification failed","task_id":"%s","error":"%v"}`, taskID, err)
		}
	}()
}
