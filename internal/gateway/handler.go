package gateway

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmesh/a2a-connector/internal/a2a"
	"github.com/taskmesh/a2a-connector/internal/auth"
	"github.com/taskmesh/a2a-connector/internal/events"
	"github.com/taskmesh/a2a-connector/internal/models"
	"github.com/taskmesh/a2a-connector/internal/pagination"
	"github.com/taskmesh/a2a-connector/internal/pushnotify"
	"github.com/taskmesh/a2a-connector/internal/taskstore"
)

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	tasks      *taskstore.Service
	events     *events.Service
	jwtManager *auth.JWTManager
	notifier   *pushnotify.Sender
	pool       *pgxpool.Pool
}

// NewHandler creates a new gateway handler
func NewHandler(tasks *taskstore.Service, eventService *events.Service, jwtManager *auth.JWTManager, notifier *pushnotify.Sender, pool *pgxpool.Pool) *Handler {
	return &Handler{
		tasks:      tasks,
		events:     eventService,
		jwtManager: jwtManager,
		notifier:   notifier,
		pool:       pool,
	}
}

// tenantID reads the tenant scope set by the auth middleware.
func tenantID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(auth.ContextTenantID)
	if !exists {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val.(string))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// agentID reads the agent scope set by the API-key middleware.
func agentID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(auth.ContextAgentID)
	if !exists {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val.(string))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// callerID returns the optional counterparty header value.
func callerID(c *gin.Context) *string {
	val, exists := c.Get(auth.ContextCallerID)
	if !exists {
		return nil
	}
	s := val.(string)
	return &s
}

// requestScope extracts the tenant and agent scope or writes a 401.
func requestScope(c *gin.Context) (tenant, agent uuid.UUID, ok bool) {
	tenant, ok = tenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing tenant scope"})
		return uuid.Nil, uuid.Nil, false
	}
	agent, ok = agentID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing agent scope"})
		return uuid.Nil, uuid.Nil, false
	}
	return tenant, agent, true
}

// respondError maps an application error kind to an HTTP status.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch models.KindOf(err) {
	case models.KindNotFound:
		status = http.StatusNotFound
	case models.KindValidation:
		status = http.StatusBadRequest
	case models.KindConflict:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf(`{"level":"error","message":"Request failed","path":"%s","error":"%v"}`, c.Request.URL.Path, err)
	}
	c.JSON(status, models.ErrorResponse{Error: err.Error(), Code: string(models.KindOf(err))})
}

// pageOptions reads page/per_page/offset query parameters.
func pageOptions(c *gin.Context) pagination.Options {
	var opts pagination.Options
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		opts.Page = &v
	}
	if v, err := strconv.Atoi(c.Query("per_page")); err == nil {
		opts.PerPage = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil {
		opts.Offset = &v
	}
	return opts
}

// SendTaskRequest is the body of a task send. The first send for a task id
// creates the aggregate; later sends append the message to its history.
type SendTaskRequest struct {
	a2a.TaskSendParams
	CounterpartyID *string          `json:"counterparty_id,omitempty"`
	Type           *models.TaskType `json:"task_type,omitempty"`
}

// SendTask godoc
// @Summary Send a task
// @Description Create the task on first send, append the message on re-send
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body SendTaskRequest true "Task send parameters"
// @Success 200 {object} models.Task
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/task [post]
func (h *Handler) SendTask(c *gin.Context) {
	tenant, agent, ok := requestScope(c)
	if !ok {
		return
	}

	var req SendTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	taskType := models.TaskTypeIncoming
	if req.Type != nil {
		taskType = *req.Type
	}

	task, err := h.tasks.UpsertTask(c.Request.Context(), taskstore.UpsertTaskInput{
		TenantID:       tenant,
		AgentID:        agent,
		Params:         req.TaskSendParams,
		CounterpartyID: req.CounterpartyID,
		Type:           taskType,
		CallerID:       callerID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTaskRequest is a partial update command for a task. Any subset of
// the fields may be set.
type UpdateTaskRequest struct {
	Status           *a2a.TaskStatus             `json:"status,omitempty"`
	Messages         []a2a.Message               `json:"messages,omitempty"`
	Artifacts        []a2a.Artifact              `json:"artifacts,omitempty"`
	PushNotification *a2a.PushNotificationConfig `json:"push_notification,omitempty"`
}

// UpdateTask godoc
// @Summary Update a task
// @Description Merge status, messages, and artifact updates into the task document
// @Tags tasks
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param request body UpdateTaskRequest true "Update command"
// @Success 200 {object} models.Task
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/task/{taskId}/update [post]
func (h *Handler) UpdateTask(c *gin.Context) {
	tenant, agent, ok := requestScope(c)
	if !ok {
		return
	}
	taskID := c.Param("taskId")

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), tenant, agent, taskID, taskstore.UpdateTaskParams{
		Status:           req.Status,
		NewMessages:      req.Messages,
		ArtifactUpdates:  req.Artifacts,
		PushNotification: req.PushNotification,
		CallerID:         callerID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.notifier != nil && task.PushNotification != nil && req.Status != nil {
		h.notifier.SendAsync(taskID, a2a.NewStatusUpdateEvent(a2a.TaskStatusUpdateEvent{
			ID:     taskID,
			Status: *req.Status,
			Final:  req.Status.State.IsTerminal(),
		}), task.PushNotification)
	}

	c.JSON(http.StatusOK, task)
}

// GetTask godoc
// @Summary Get a task
// @Description Fetch one task, optionally trimming history to the last N messages
// @Tags tasks
// @Produce json
// @Param taskId path string true "Task ID"
// @Param historyLength query int false "Keep only the last N history messages"
// @Success 200 {object} models.Task
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/task/{taskId} [get]
func (h *Handler) GetTask(c *gin.Context) {
	tenant, agent, ok := requestScope(c)
	if !ok {
		return
	}
	taskID := c.Param("taskId")

	var historyLength *int
	if v, err := strconv.Atoi(c.Query("historyLength")); err == nil {
		historyLength = &v
	}

	task, err := h.tasks.GetTask(c.Request.Context(), tenant, agent, taskID, historyLength)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListTasks godoc
// @Summary List tasks
// @Description One page of the tenant's tasks, most recently updated first
// @Tags tasks
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Param per_page query int false "Page size"
// @Param state query []string false "Filter by task state"
// @Param type query string false "Filter by task type"
// @Success 200 {object} pagination.Paginated[models.Task]
// @Security ApiKeyAuth
// @Router /api/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	tenant, agent, ok := requestScope(c)
	if !ok {
		return
	}

	input := taskstore.ListTasksInput{
		AgentID: &agent,
		Options: pageOptions(c),
	}
	for _, s := range c.QueryArray("state") {
		input.StateIn = append(input.StateIn, models.TaskState(s))
	}
	if t := c.Query("type"); t != "" {
		taskType := models.TaskType(t)
		input.Type = &taskType
	}

	page, err := h.tasks.ListTasks(c.Request.Context(), tenant, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListTaskEvents godoc
// @Summary List task events
// @Description One page of the tenant's task events, newest first
// @Tags events
// @Produce json
// @Param task_id query []string false "Filter by task id"
// @Param id query []string false "Filter by event id"
// @Param page query int false "Page number (1-based)"
// @Param per_page query int false "Page size"
// @Success 200 {object} pagination.Paginated[models.TaskEvent]
// @Security ApiKeyAuth
// @Router /api/task-events [get]
func (h *Handler) ListTaskEvents(c *gin.Context) {
	tenant, _, ok := requestScope(c)
	if !ok {
		return
	}

	input := events.ListEventsInput{
		TaskIDIn: c.QueryArray("task_id"),
		Options:  pageOptions(c),
	}
	for _, raw := range c.QueryArray("id") {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id filter"})
			return
		}
		input.IDIn = append(input.IDIn, id)
	}

	page, err := h.events.ListEvents(c.Request.Context(), tenant, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SubscriptionRequest identifies the subscriber registering for a task.
type SubscriptionRequest struct {
	SubscriberID string `json:"subscriber_id" binding:"required"`
}

// AddSubscription godoc
// @Summary Subscribe to a task's events
// @Description Register a subscriber; re-registering the same pair is a no-op
// @Tags events
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param request body SubscriptionRequest true "Subscriber"
// @Success 201 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/task/{taskId}/subscriptions [post]
func (h *Handler) AddSubscription(c *gin.Context) {
	tenant, _, ok := requestScope(c)
	if !ok {
		return
	}

	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id, err := h.events.AddSubscription(c.Request.Context(), tenant, c.Param("taskId"), req.SubscriberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription_id": id.String()})
}

// RemoveSubscription godoc
// @Summary Unsubscribe from a task's events
// @Tags events
// @Produce json
// @Param taskId path string true "Task ID"
// @Param subscriberId path string true "Subscriber ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/task/{taskId}/subscriptions/{subscriberId} [delete]
func (h *Handler) RemoveSubscription(c *gin.Context) {
	tenant, _, ok := requestScope(c)
	if !ok {
		return
	}

	err := h.events.RemoveSubscription(c.Request.Context(), tenant, c.Param("taskId"), c.Param("subscriberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DequeueRequest asks for pending deliveries for one subscriber.
type DequeueRequest struct {
	SubscriberID string `json:"subscriber_id" binding:"required"`
	Limit        int    `json:"limit"`
}

// DequeueResponse carries the deliveries handed to the subscriber.
type DequeueResponse struct {
	Events []models.DequeuedEvent `json:"events"`
}

// DequeueEvents godoc
// @Summary Dequeue pending event deliveries
// @Description Return up to limit pending deliveries for the subscriber, marking them delivered
// @Tags events
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param request body DequeueRequest true "Subscriber and limit"
// @Success 200 {object} DequeueResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/task/{taskId}/dequeue [post]
func (h *Handler) DequeueEvents(c *gin.Context) {
	tenant, _, ok := requestScope(c)
	if !ok {
		return
	}

	var req DequeueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	dequeued, err := h.events.Dequeue(c.Request.Context(), tenant, req.SubscriberID, c.Param("taskId"), req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DequeueResponse{Events: dequeued})
}
