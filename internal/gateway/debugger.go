package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskmesh/a2a-connector/internal/models"
	"github.com/taskmesh/a2a-connector/internal/pagination"
)

// DebuggerHistoryEntry is one recorded debugger request against a task. The
// (task_id, url) pair is unique; re-recording the same pair replaces the
// payload.
type DebuggerHistoryEntry struct {
	TenantID  uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	ID        uuid.UUID       `json:"id" db:"id"`
	TaskID    string          `json:"task_id" db:"task_id"`
	URL       string          `json:"url" db:"url"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// RecordDebuggerHistoryRequest is the body for recording a debugger request.
type RecordDebuggerHistoryRequest struct {
	TaskID  string          `json:"task_id" binding:"required"`
	URL     string          `json:"url" binding:"required,url"`
	Payload json.RawMessage `json:"payload"`
}

// RecordDebuggerHistory godoc
// @Summary Record a debugger request
// @Description Upsert the payload recorded for a (task, url) pair
// @Tags debugger
// @Accept json
// @Produce json
// @Param request body RecordDebuggerHistoryRequest true "History entry"
// @Success 200 {object} DebuggerHistoryEntry
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/debugger-history [post]
func (h *Handler) RecordDebuggerHistory(c *gin.Context) {
	tenant, tenantOK := tenantID(c)
	if !tenantOK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing tenant scope"})
		return
	}

	var req RecordDebuggerHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var entry DebuggerHistoryEntry
	err := h.pool.QueryRow(c.Request.Context(),
		`INSERT INTO debugger_history (tenant_id, task_id, url, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (task_id, url)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
		 RETURNING tenant_id, id, task_id, url, payload, created_at, updated_at`,
		tenant, req.TaskID, req.URL, req.Payload,
	).Scan(&entry.TenantID, &entry.ID, &entry.TaskID, &entry.URL, &entry.Payload,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		respondError(c, models.StoreError(err, "failed to record debugger history"))
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListDebuggerHistory godoc
// @Summary List debugger history
// @Description One page of recorded debugger requests, newest first
// @Tags debugger
// @Produce json
// @Param task_id query string false "Filter by task id"
// @Param page query int false "Page number (1-based)"
// @Param per_page query int false "Page size"
// @Success 200 {object} pagination.Paginated[DebuggerHistoryEntry]
// @Security ApiKeyAuth
// @Router /api/debugger-history [get]
func (h *Handler) ListDebuggerHistory(c *gin.Context) {
	tenant, tenantOK := tenantID(c)
	if !tenantOK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing tenant scope"})
		return
	}

	query := `SELECT tenant_id, id, task_id, url, payload, created_at, updated_at
		FROM debugger_history WHERE tenant_id = $1`
	args := []any{tenant}
	if taskID := c.Query("task_id"); taskID != "" {
		args = append(args, taskID)
		query += " AND task_id = $2"
	}
	query += " ORDER BY updated_at DESC, id DESC"

	page, err := pagination.Paginate[DebuggerHistoryEntry](c.Request.Context(), h.pool, query, args, pageOptions(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
