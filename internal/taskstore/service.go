// Package taskstore owns the persisted task aggregate: it loads a task
// under an exclusive row lock, merges update commands into the protocol
// document, re-derives the lifecycle state column, and writes the result
// back in the same transaction that recorded the implied protocol events.
package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmesh/a2a-connector/internal/a2a"
	"github.com/taskmesh/a2a-connector/internal/events"
	"github.com/taskmesh/a2a-connector/internal/metrics"
	"github.com/taskmesh/a2a-connector/internal/models"
	"github.com/taskmesh/a2a-connector/internal/pagination"
)

// Service handles task aggregate persistence
type Service struct {
	pool    *pgxpool.Pool
	events  *events.Service
	metrics *metrics.TaskMetrics
}

// NewService creates a new task store service
func NewService(pool *pgxpool.Pool, eventService *events.Service, taskMetrics *metrics.TaskMetrics) *Service {
	return &Service{
		pool:    pool,
		events:  eventService,
		metrics: taskMetrics,
	}
}

const taskColumns = `tenant_id, id, agent_id, task_id, counterparty_id, task_state, task_type,
	push_notification, a2a_task, created_at, updated_at`

// scanTask scans one task row. The stored document is validated on every
// load so a partially written or out-of-band edit surfaces as a Validation
// failure instead of propagating silently.
func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	var doc []byte
	err := row.Scan(
		&task.TenantID,
		&task.ID,
		&task.AgentID,
		&task.TaskID,
		&task.CounterpartyID,
		&task.State,
		&task.Type,
		&task.PushNotification,
		&doc,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		var a2aTask a2a.Task
		if err := json.Unmarshal(doc, &a2aTask); err != nil {
			return nil, models.Validation(err, "stored document for task %s does not decode", task.TaskID)
		}
		if err := a2aTask.Validate(); err != nil {
			return nil, models.Validation(err, "stored document for task %s is inconsistent", task.TaskID)
		}
		task.A2ATask = &a2aTask
	}
	return &task, nil
}

// loadForUpdate acquires an exclusive row lock on the task for the duration
// of tx. Concurrent updates to the same task serialize on this lock;
// updates to different tasks proceed independently.
func (s *Service) loadForUpdate(ctx context.Context, tx pgx.Tx, tenantID, agentID uuid.UUID, taskID string) (*models.Task, error) {
	task, err := scanTask(tx.QueryRow(ctx,
		`SELECT `+taskColumns+`
		 FROM task
		 WHERE tenant_id = $1 AND agent_id = $2 AND task_id = $3
		 FOR UPDATE`,
		tenantID, agentID, taskID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFound("task %s not found", taskID)
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.StoreError(err, "failed to load task %s", taskID)
	}
	return task, nil
}

// UpsertTaskInput describes a task send: the first send for a task id
// creates the aggregate, later sends append the message to its history.
type UpsertTaskInput struct {
	TenantID       uuid.UUID
	AgentID        uuid.UUID
	Params         a2a.TaskSendParams
	CounterpartyID *string
	Type           models.TaskType
	CallerID       *string
}

// UpsertTask creates the task aggregate on first send and appends the sent
// message on re-send. Creation records a Submitted status event through the
// fan-out, in the same transaction as the insert.
func (s *Service) UpsertTask(ctx context.Context, input UpsertTaskInput) (*models.Task, error) {
	if err := input.Params.Message.Validate(); err != nil {
		return nil, models.Validation(err, "invalid send message")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, models.StoreError(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	existing, err := s.loadForUpdate(ctx, tx, input.TenantID, input.AgentID, input.Params.ID)
	if err != nil && models.KindOf(err) != models.KindNotFound {
		return nil, err
	}

	var task *models.Task
	var fanout int
	if existing == nil {
		task, fanout, err = s.createTask(ctx, tx, input)
	} else {
		task, err = s.appendSendMessage(ctx, tx, existing, input)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, models.StoreError(err, "failed to commit task upsert")
	}

	if s.metrics != nil {
		s.metrics.RecordTaskUpserted(ctx, input.AgentID.String())
		if existing == nil {
			s.metrics.RecordEventFanout(ctx, input.Params.ID, fanout)
		}
	}

	return task, nil
}

func (s *Service) createTask(ctx context.Context, tx pgx.Tx, input UpsertTaskInput) (*models.Task, int, error) {
	now := time.Now().UTC()
	status := a2a.TaskStatus{
		State:     a2a.TaskStateSubmitted,
		Message:   &input.Params.Message,
		Timestamp: &now,
	}
	doc := a2a.Task{
		ID:        input.Params.ID,
		SessionID: input.Params.SessionID,
		Status:    status,
		History:   []a2a.Message{input.Params.Message},
		Metadata:  input.Params.Metadata,
	}

	task, err := scanTask(tx.QueryRow(ctx,
		`INSERT INTO task (tenant_id, agent_id, task_id, counterparty_id, task_state, task_type,
			push_notification, a2a_task)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+taskColumns,
		input.TenantID, input.AgentID, input.Params.ID, input.CounterpartyID,
		models.TaskStateSubmitted, input.Type, input.Params.PushNotification, doc,
	))
	if err != nil {
		return nil, 0, models.StoreError(err, "failed to create task %s", input.Params.ID)
	}

	fanout, err := s.events.RecordEvent(ctx, tx, events.RecordEventInput{
		TenantID: input.TenantID,
		TaskID:   input.Params.ID,
		CallerID: input.CallerID,
		Event: a2a.NewStatusUpdateEvent(a2a.TaskStatusUpdateEvent{
			ID:     input.Params.ID,
			Status: status,
			Final:  false,
		}),
	})
	if err != nil {
		return nil, 0, err
	}

	return task, fanout, nil
}

func (s *Service) appendSendMessage(ctx context.Context, tx pgx.Tx, existing *models.Task, input UpsertTaskInput) (*models.Task, error) {
	doc := existing.A2ATask
	if doc == nil {
		doc = &a2a.Task{ID: existing.TaskID, Status: a2a.TaskStatus{State: a2a.TaskStateUnknown}}
	}
	doc.AddMessage(input.Params.Message)

	pushNotification := existing.PushNotification
	if input.Params.PushNotification != nil {
		pushNotification = input.Params.PushNotification
	}

	task, err := scanTask(tx.QueryRow(
		ctx,
		`UPDATE task
		 SET a2a_task = $1, push_notification = $2, updated_at = NOW()
		 WHERE tenant_id = $3 AND id = $4
		 RETURNING `+taskColumns,
		doc, pushNotification, existing.TenantID, existing.ID,
	))
	if err != nil {
		return nil, models.StoreError(err, "failed to update task %s", existing.TaskID)
	}
	return task, nil
}

// UpdateTask loads the task under an exclusive lock, merges params into the
// stored document, writes back the document and the derived state column,
// and records the implied protocol events, all in one transaction. A status
// change records a status update event whose final flag reflects a terminal
// state; each artifact upsert records an artifact update event.
func (s *Service) UpdateTask(ctx context.Context, tenantID, agentID uuid.UUID, taskID string, params UpdateTaskParams) (*models.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, models.StoreError(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	task, err := s.loadForUpdate(ctx, tx, tenantID, agentID, taskID)
	if err != nil {
		return nil, err
	}

	doc := task.A2ATask
	if doc == nil {
		doc = &a2a.Task{ID: task.TaskID, Status: a2a.TaskStatus{State: a2a.TaskStateUnknown}}
	}
	if err := Merge(doc, params); err != nil {
		return nil, err
	}

	state := task.State
	if params.Status != nil {
		state, err = models.TaskStateFromProtocol(params.Status.State)
		if err != nil {
			return nil, models.Validation(err, "invalid task state in update")
		}
	}

	pushNotification := task.PushNotification
	if params.PushNotification != nil {
		pushNotification = params.PushNotification
	}

	updated, err := scanTask(tx.QueryRow(ctx,
		`UPDATE task
		 SET a2a_task = $1, task_state = $2, push_notification = $3, updated_at = NOW()
		 WHERE tenant_id = $4 AND id = $5
		 RETURNING `+taskColumns,
		doc, state, pushNotification, task.TenantID, task.ID,
	))
	if err != nil {
		return nil, models.StoreError(err, "failed to write back task %s", taskID)
	}

	var fanouts []int
	if params.Status != nil {
		fanout, err := s.events.RecordEvent(ctx, tx, events.RecordEventInput{
			TenantID: tenantID,
			TaskID:   taskID,
			CallerID: params.CallerID,
			Event: a2a.NewStatusUpdateEvent(a2a.TaskStatusUpdateEvent{
				ID:     taskID,
				Status: *params.Status,
				Final:  params.Status.State.IsTerminal(),
			}),
		})
		if err != nil {
			return nil, err
		}
		fanouts = append(fanouts, fanout)
	}
	for _, artifact := range params.ArtifactUpdates {
		fanout, err := s.events.RecordEvent(ctx, tx, events.RecordEventInput{
			TenantID: tenantID,
			TaskID:   taskID,
			CallerID: params.CallerID,
			Event: a2a.NewArtifactUpdateEvent(a2a.TaskArtifactUpdateEvent{
				ID:       taskID,
				Artifact: artifact,
			}),
		})
		if err != nil {
			return nil, err
		}
		fanouts = append(fanouts, fanout)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, models.StoreError(err, "failed to commit task update")
	}

	if s.metrics != nil {
		s.metrics.RecordTaskMerged(ctx, agentID.String(), string(updated.State))
		for _, fanout := range fanouts {
			s.metrics.RecordEventFanout(ctx, taskID, fanout)
		}
	}

	return updated, nil
}

// GetTask returns the task, optionally trimming history to the most recent
// historyLength messages.
func (s *Service) GetTask(ctx context.Context, tenantID, agentID uuid.UUID, taskID string, historyLength *int) (*models.Task, error) {
	task, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+`
		 FROM task
		 WHERE tenant_id = $1 AND agent_id = $2 AND task_id = $3`,
		tenantID, agentID, taskID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFound("task %s not found", taskID)
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.StoreError(err, "failed to get task %s", taskID)
	}

	if historyLength != nil && task.A2ATask != nil && *historyLength >= 0 {
		history := task.A2ATask.History
		if len(history) > *historyLength {
			task.A2ATask.History = history[len(history)-*historyLength:]
		}
	}

	return task, nil
}

// ListTasksInput filters the task listing.
type ListTasksInput struct {
	AgentID *uuid.UUID
	StateIn []models.TaskState
	Type    *models.TaskType
	Options pagination.Options
}

// ListTasks returns one page of the tenant's tasks, most recently updated
// first.
func (s *Service) ListTasks(ctx context.Context, tenantID uuid.UUID, input ListTasksInput) (*pagination.Paginated[models.Task], error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE tenant_id = $1`
	args := []any{tenantID}

	if input.AgentID != nil {
		args = append(args, *input.AgentID)
		query += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}
	if len(input.StateIn) > 0 {
		states := make([]string, len(input.StateIn))
		for i, state := range input.StateIn {
			states[i] = string(state)
		}
		args = append(args, states)
		query += fmt.Sprintf(" AND task_state::text = ANY($%d::text[])", len(args))
	}
	if input.Type != nil {
		args = append(args, *input.Type)
		query += fmt.Sprintf(" AND task_type = $%d", len(args))
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	return pagination.Paginate[models.Task](ctx, s.pool, query, args, input.Options)
}
