package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskMetrics_Creation(t *testing.T) {
	t.Run("successfully create task metrics", func(t *testing.T) {
		metrics, err := NewTaskMetrics()
		require.NoError(t, err)
		assert.NotNil(t, metrics)
		assert.NotNil(t, metrics.tasksUpsertedCounter)
		assert.NotNil(t, metrics.tasksMergedCounter)
		assert.NotNil(t, metrics.eventsRecordedCounter)
		assert.NotNil(t, metrics.deliveriesCreatedCounter)
		assert.NotNil(t, metrics.deliveriesDequeuedCounter)
		assert.NotNil(t, metrics.fanoutSizeHistogram)
	})
}

func TestTaskMetrics_Record(t *testing.T) {
	metrics, err := NewTaskMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("record task lifecycle", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordTaskUpserted(ctx, "agent-1")
			metrics.RecordTaskMerged(ctx, "agent-1", "WORKING")
			metrics.RecordEventFanout(ctx, "task-1", 3)
			metrics.RecordDeliveriesDequeued(ctx, "subscriber-1", 2)
		})
	})

	t.Run("zero dequeue count is skipped", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordDeliveriesDequeued(ctx, "subscriber-1", 0)
		})
	})

	t.Run("fanout with no subscriptions", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordEventFanout(ctx, "task-2", 0)
		})
	})
}
