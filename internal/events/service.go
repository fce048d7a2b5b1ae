// Package events owns the protocol event log: appending immutable task
// events, fanning each one out to the task's subscriptions, and serving the
// per-subscriber delivery queue.
package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmesh/a2a-connector/internal/a2a"
	"github.com/taskmesh/a2a-connector/internal/metrics"
	"github.com/taskmesh/a2a-connector/internal/models"
	"github.com/taskmesh/a2a-connector/internal/pagination"
)

// DB is the querying surface shared by *pgxpool.Pool and pgx.Tx, so event
// recording can run inside a caller's transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service handles the event log and delivery queue
type Service struct {
	pool    *pgxpool.Pool
	metrics *metrics.TaskMetrics
}

// NewService creates a new event service
func NewService(pool *pgxpool.Pool, taskMetrics *metrics.TaskMetrics) *Service {
	return &Service{
		pool:    pool,
		metrics: taskMetrics,
	}
}

// RecordEventInput describes one protocol event to append.
type RecordEventInput struct {
	TenantID uuid.UUID
	TaskID   string
	CallerID *string
	Event    a2a.TaskEvent
}

// RecordEvent appends an event row and fans it out to every subscription of
// the task, all on db. When db is a transaction the three steps commit or
// roll back together: an event is never visible without its full delivery
// set. A task with no subscriptions still gets its event, with zero
// deliveries. The returned count is the number of deliveries created;
// callers report it to metrics once their transaction has committed.
func (s *Service) RecordEvent(ctx context.Context, db DB, input RecordEventInput) (int, error) {
	var eventID uuid.UUID
	err := db.QueryRow(ctx,
		`INSERT INTO task_event (tenant_id, task_id, caller_id, event_data)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		input.TenantID, input.TaskID, input.CallerID, input.Event,
	).Scan(&eventID)
	if err != nil {
		return 0, models.StoreError(err, "failed to insert task event")
	}

	rows, err := db.Query(ctx,
		`SELECT id FROM task_subscription
		 WHERE tenant_id = $1 AND task_id = $2`,
		input.TenantID, input.TaskID,
	)
	if err != nil {
		return 0, models.StoreError(err, "failed to look up task subscriptions")
	}
	subscriptionIDs, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, models.StoreError(err, "failed to scan task subscriptions")
	}

	for _, subscriptionID := range subscriptionIDs {
		_, err = db.Exec(ctx,
			`INSERT INTO task_event_delivery (event_id, subscription_id, status)
			 VALUES ($1, $2, $3)`,
			eventID, subscriptionID, models.DeliveryStatusPending,
		)
		if err != nil {
			return 0, models.StoreError(err, "failed to insert delivery for subscription %s", subscriptionID)
		}
	}

	return len(subscriptionIDs), nil
}

// RecordEventTx runs RecordEvent in its own transaction.
func (s *Service) RecordEventTx(ctx context.Context, input RecordEventInput) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.StoreError(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	fanout, err := s.RecordEvent(ctx, tx, input)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.StoreError(err, "failed to commit event transaction")
	}

	if s.metrics != nil {
		s.metrics.RecordEventFanout(ctx, input.TaskID, fanout)
	}
	return nil
}

// Dequeue returns up to limit Pending deliveries for the subscriber on the
// given task, oldest first, and marks them Delivered in the same
// transaction so a later pull does not return them again. Limit defaults
// to 1. Rows locked by a concurrent dequeue are skipped rather than
// waited on.
func (s *Service) Dequeue(ctx context.Context, tenantID uuid.UUID, subscriberID, taskID string, limit int) ([]models.DequeuedEvent, error) {
	if limit <= 0 {
		limit = 1
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, models.StoreError(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT d.id, e.id, e.task_id, e.event_data
		 FROM task_event_delivery d
		 JOIN task_subscription s ON d.subscription_id = s.id
		 JOIN task_event e ON d.event_id = e.id
		 WHERE s.tenant_id = $1
		   AND s.subscriber_id = $2
		   AND e.task_id = $3
		   AND d.status = $4
		 ORDER BY d.created_at, d.id
		 LIMIT $5
		 FOR UPDATE OF d SKIP LOCKED`,
		tenantID, subscriberID, taskID, models.DeliveryStatusPending, limit,
	)
	if err != nil {
		return nil, models.StoreError(err, "failed to query pending deliveries")
	}

	var dequeued []models.DequeuedEvent
	for rows.Next() {
		var item models.DequeuedEvent
		if err := rows.Scan(&item.DeliveryID, &item.EventID, &item.TaskID, &item.Event); err != nil {
			rows.Close()
			return nil, models.StoreError(err, "failed to scan delivery row")
		}
		dequeued = append(dequeued, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, models.StoreError(err, "error iterating delivery rows")
	}

	if len(dequeued) > 0 {
		deliveryIDs := make([]uuid.UUID, len(dequeued))
		for i, item := range dequeued {
			deliveryIDs[i] = item.DeliveryID
		}
		_, err = tx.Exec(ctx,
			`UPDATE task_event_delivery SET status = $1 WHERE id = ANY($2)`,
			models.DeliveryStatusDelivered, deliveryIDs,
		)
		if err != nil {
			return nil, models.StoreError(err, "failed to mark deliveries delivered")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, models.StoreError(err, "failed to commit dequeue transaction")
	}

	if s.metrics != nil {
		s.metrics.RecordDeliveriesDequeued(ctx, subscriberID, len(dequeued))
	}

	return dequeued, nil
}

// ListEventsInput filters the event listing.
type ListEventsInput struct {
	TaskIDIn []string
	IDIn     []uuid.UUID
	Options  pagination.Options
}

// ListEvents returns one page of the tenant's events, newest first.
func (s *Service) ListEvents(ctx context.Context, tenantID uuid.UUID, input ListEventsInput) (*pagination.Paginated[models.TaskEvent], error) {
	query := `SELECT tenant_id, id, task_id, caller_id, event_data, created_at, updated_at
		FROM task_event
		WHERE tenant_id = $1`
	args := []any{tenantID}

	if len(input.TaskIDIn) > 0 {
		args = append(args, input.TaskIDIn)
		query += fmt.Sprintf(" AND task_id = ANY($%d)", len(args))
	}
	if len(input.IDIn) > 0 {
		args = append(args, input.IDIn)
		query += fmt.Sprintf(" AND id = ANY($%d)", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	return pagination.Paginate[models.TaskEvent](ctx, s.pool, query, args, input.Options)
}

// AddSubscription registers a subscriber's interest in a task's events.
// Re-registering the same pair is a no-op.
func (s *Service) AddSubscription(ctx context.Context, tenantID uuid.UUID, taskID, subscriberID string) (uuid.UUID, error) {
	var subscriptionID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO task_subscription (tenant_id, task_id, subscriber_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, task_id, subscriber_id)
		 DO UPDATE SET task_id = EXCLUDED.task_id
		 RETURNING id`,
		tenantID, taskID, subscriberID,
	).Scan(&subscriptionID)
	if err != nil {
		return uuid.Nil, models.StoreError(err, "failed to add subscription")
	}
	return subscriptionID, nil
}

// RemoveSubscription deletes a subscriber's registration for a task.
func (s *Service) RemoveSubscription(ctx context.Context, tenantID uuid.UUID, taskID, subscriberID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM task_subscription
		 WHERE tenant_id = $1 AND task_id = $2 AND subscriber_id = $3`,
		tenantID, taskID, subscriberID,
	)
	if err != nil {
		return models.StoreError(err, "failed to remove subscription")
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound("subscription for subscriber %s on task %s not found", subscriberID, taskID)
	}
	return nil
}
