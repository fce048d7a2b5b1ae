package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("task-metrics")

// TaskMetrics provides metrics collection for the task lifecycle core
type TaskMetrics struct {
	tasksUpsertedCounter      metric.Int64Counter
	tasksMergedCounter        metric.Int64Counter
	eventsRecordedCounter     metric.Int64Counter
	deliveriesCreatedCounter  metric.Int64Counter
	deliveriesDequeuedCounter metric.Int64Counter
	fanoutSizeHistogram       metric.Int64Histogram
}

// NewTaskMetrics creates a new task metrics collector
func NewTaskMetrics() (*TaskMetrics, error) {
	tasksUpsertedCounter, err := meter.Int64Counter(
		"a2a_connector.tasks.upserted",
		metric.WithDescription("Total number of task send commands applied"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}

	tasksMergedCounter, err := meter.Int64Counter(
		"a2a_connector.tasks.merged",
		metric.WithDescription("Total number of task update commands merged"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	eventsRecordedCounter, err := meter.Int64Counter(
		"a2a_connector.events.recorded",
		metric.WithDescription("Total number of protocol events appended"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	deliveriesCreatedCounter, err := meter.Int64Counter(
		"a2a_connector.deliveries.created",
		metric.WithDescription("Total number of deliveries created by fan-out"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	deliveriesDequeuedCounter, err := meter.Int64Counter(
		"a2a_connector.deliveries.dequeued",
		metric.WithDescription("Total number of deliveries pulled by subscribers"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	fanoutSizeHistogram, err := meter.Int64Histogram(
		"a2a_connector.fanout.size",
		metric.WithDescription("Number of deliveries created per recorded event"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	return &TaskMetrics{
		tasksUpsertedCounter:      tasksUpsertedCounter,
		tasksMergedCounter:        tasksMergedCounter,
		eventsRecordedCounter:     eventsRecordedCounter,
		deliveriesCreatedCounter:  deliveriesCreatedCounter,
		deliveriesDequeuedCounter: deliveriesDequeuedCounter,
		fanoutSizeHistogram:       fanoutSizeHistogram,
	}, nil
}

// RecordTaskUpserted records a task send command
func (tm *TaskMetrics) RecordTaskUpserted(ctx context.Context, agentID string) {
	tm.tasksUpsertedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("agent.id", agentID),
		),
	)
}

// RecordTaskMerged records a merged task update command
func (tm *TaskMetrics) RecordTaskMerged(ctx context.Context, agentID, state string) {
	tm.tasksMergedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("task.state", state),
		),
	)
}

// RecordEventFanout records one appended event and its delivery fan-out
func (tm *TaskMetrics) RecordEventFanout(ctx context.Context, taskID string, deliveries int) {
	tm.eventsRecordedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("task.id", taskID),
		),
	)
	tm.deliveriesCreatedCounter.Add(ctx, int64(deliveries),
		metric.WithAttributes(
			attribute.String("task.id", taskID),
		),
	)
	tm.fanoutSizeHistogram.Record(ctx, int64(deliveries))
}

// RecordDeliveriesDequeued records deliveries pulled by a subscriber
func (tm *TaskMetrics) RecordDeliveriesDequeued(ctx context.Context, subscriberID string, count int) {
	if count == 0 {
		return
	}
	tm.deliveriesDequeuedCounter.Add(ctx, int64(count),
		metric.WithAttributes(
			attribute.String("subscriber.id", subscriberID),
		),
	)
}
