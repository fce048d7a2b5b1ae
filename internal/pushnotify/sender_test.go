package pushnotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/a2a-connector/internal/a2a"
)

func TestSendPostsSignedNotification(t *testing.T) {
	secret := []byte("test-webhook-secret")

	var gotAuth string
	var gotToken string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotToken = r.Header.Get("X-Notification-Token")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := NewSender(secret, srv.Client())
	require.NoError(t, err)

	extra := "shared-token"
	now := time.Now().UTC()
	event := a2a.NewStatusUpdateEvent(a2a.TaskStatusUpdateEvent{
		ID:     "task-1",
		Status: a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: &now},
		Final:  true,
	})
	err = sender.Send(context.Background(), "task-1", event, &a2a.PushNotificationConfig{
		URL:   srv.URL,
		Token: &extra,
	})
	require.NoError(t, err)

	assert.Equal(t, "shared-token", gotToken)
	require.True(t, strings.HasPrefix(gotAuth, "Bearer "))

	parsed, err := jwt.Parse(
		[]byte(strings.TrimPrefix(gotAuth, "Bearer ")),
		jwt.WithKey(jwa.HS256(), sender.signingKey),
	)
	require.NoError(t, err)
	iss, ok := parsed.Issuer()
	require.True(t, ok)
	assert.Equal(t, "a2a-connector", iss)

	var payload notification
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "task-1", payload.TaskID)
	require.NotNil(t, payload.Event.StatusUpdate)
	assert.Equal(t, a2a.TaskStateCompleted, payload.Event.StatusUpdate.Status.State)
}

func TestSendNilConfigIsNoop(t *testing.T) {
	sender, err := NewSender([]byte("secret"), nil)
	require.NoError(t, err)

	event := a2a.NewStatusUpdateEvent(a2a.TaskStatusUpdateEvent{
		ID:     "task-1",
		Status: a2a.TaskStatus{State: a2a.TaskStateWorking},
	})
	assert.NoError(t, sender.Send(context.Background(), "task-1", event, nil))
}

func TestSendRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender, err := NewSender([]byte("secret"), srv.Client())
	require.NoError(t, err)

	event := a2a.NewStatusUpdateEvent(a2a.TaskStatusUpdateEvent{
		ID:     "task-1",
		Status: a2a.TaskStatus{State: a2a.TaskStateWorking},
	})
	err = sender.Send(context.Background(), "task-1", event, &a2a.PushNotificationConfig{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
