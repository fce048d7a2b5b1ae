package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/a2a-connector/internal/a2a"
)

func TestTaskStateMapping_RoundTrip(t *testing.T) {
	protocolStates := []a2a.TaskState{
		a2a.TaskStateSubmitted,
		a2a.TaskStateWorking,
		a2a.TaskStateInputRequired,
		a2a.TaskStateCompleted,
		a2a.TaskStateFailed,
		a2a.TaskStateCanceled,
		a2a.TaskStateUnknown,
	}

	for _, state := range protocolStates {
		t.Run(string(state), func(t *testing.T) {
			stored, err := TaskStateFromProtocol(state)
			require.NoError(t, err)

			back, err := stored.ToProtocol()
			require.NoError(t, err)
			assert.Equal(t, state, back)
		})
	}
}

func TestTaskStateMapping_RejectsUnknownInputs(t *testing.T) {
	_, err := TaskStateFromProtocol(a2a.TaskState("paused"))
	assert.Error(t, err)

	_, err = TaskState("PAUSED").ToProtocol()
	assert.Error(t, err)
}

func TestAppError_Kinds(t *testing.T) {
	cause := fmt.Errorf("row decode failed")

	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"not found", NotFound("task %s not found", "t1"), KindNotFound},
		{"validation", Validation(cause, "bad document"), KindValidation},
		{"conflict", Conflict(cause, "artifact shape mismatch"), KindConflict},
		{"store", StoreError(cause, "insert failed"), KindStoreError},
		{"unclassified", cause, KindStoreError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	wrapped := StoreError(cause, "query failed")
	assert.True(t, errors.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "query failed")
	assert.Contains(t, wrapped.Error(), "connection reset")
}
