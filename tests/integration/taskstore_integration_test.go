package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/a2a-connector/internal/a2a"
	"github.com/taskmesh/a2a-connector/internal/events"
	"github.com/taskmesh/a2a-connector/internal/models"
	"github.com/taskmesh/a2a-connector/internal/pagination"
	"github.com/taskmesh/a2a-connector/internal/taskstore"
	"github.com/taskmesh/a2a-connector/tests/helpers"
)

func TestTaskLifecycleIntegration(t *testing.T) {
	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	ctx := context.Background()
	tenantID := testDB.CreateTestTenant(t, "lifecycle-tenant")
	defer testDB.CleanupTenant(t, tenantID)
	agentID := testDB.CreateTestAgent(t, tenantID, "lifecycle-agent")

	eventService := events.NewService(testDB.Pool, nil)
	taskService := taskstore.NewService(testDB.Pool, eventService, nil)

	taskID := fmt.Sprintf("task-lifecycle-%d", time.Now().UnixNano())

	t.Run("First Send Creates Submitted Task And Event", func(t *testing.T) {
		task, err := taskService.UpsertTask(ctx, taskstore.UpsertTaskInput{
			TenantID: tenantID,
			AgentID:  agentID,
			Params:   helpers.SendParams(taskID, "please summarize the report"),
			Type:     models.TaskTypeIncoming,
		})
		require.NoError(t, err)

		assert.Equal(t, models.TaskStateSubmitted, task.State)
		require.NotNil(t, task.A2ATask)
		assert.Equal(t, a2a.TaskStateSubmitted, task.A2ATask.Status.State)
		require.Len(t, task.A2ATask.History, 1)

		assert.Equal(t, 1, testDB.CountEventsForTask(t, tenantID, taskID))
	})

	t.Run("Re-Send Appends Message To History", func(t *testing.T) {
		task, err := taskService.UpsertTask(ctx, taskstore.UpsertTaskInput{
			TenantID: tenantID,
			AgentID:  agentID,
			Params:   helpers.SendParams(taskID, "include the appendix too"),
			Type:     models.TaskTypeIncoming,
		})
		require.NoError(t, err)

		require.NotNil(t, task.A2ATask)
		assert.Len(t, task.A2ATask.History, 2)
	})

	t.Run("Update Merges Status And Artifacts", func(t *testing.T) {
		status := helpers.WorkingStatus("working on it")
		task, err := taskService.UpdateTask(ctx, tenantID, agentID, taskID, taskstore.UpdateTaskParams{
			Status:          &status,
			ArtifactUpdates: []a2a.Artifact{helpers.TextArtifact(0, "summary", "draft summary")},
		})
		require.NoError(t, err)

		assert.Equal(t, models.TaskStateWorking, task.State)
		require.NotNil(t, task.A2ATask)
		assert.Equal(t, a2a.TaskStateWorking, task.A2ATask.Status.State)
		// The status message joins the history.
		assert.Len(t, task.A2ATask.History, 3)
		require.Len(t, task.A2ATask.Artifacts, 1)

		// One status event plus one artifact event on top of the creation event.
		assert.Equal(t, 3, testDB.CountEventsForTask(t, tenantID, taskID))
	})

	t.Run("Terminal Status Derives Terminal State", func(t *testing.T) {
		status := helpers.CompletedStatus()
		task, err := taskService.UpdateTask(ctx, tenantID, agentID, taskID, taskstore.UpdateTaskParams{
			Status: &status,
		})
		require.NoError(t, err)
		assert.Equal(t, models.TaskStateCompleted, task.State)
	})

	t.Run("Get Task Trims History", func(t *testing.T) {
		historyLength := 1
		task, err := taskService.GetTask(ctx, tenantID, agentID, taskID, &historyLength)
		require.NoError(t, err)
		require.NotNil(t, task.A2ATask)
		assert.Len(t, task.A2ATask.History, 1)

		full, err := taskService.GetTask(ctx, tenantID, agentID, taskID, nil)
		require.NoError(t, err)
		assert.Len(t, full.A2ATask.History, 3)
	})

	t.Run("Unknown Task Is NotFound", func(t *testing.T) {
		status := helpers.CompletedStatus()
		_, err := taskService.UpdateTask(ctx, tenantID, agentID, "no-such-task", taskstore.UpdateTaskParams{
			Status: &status,
		})
		require.Error(t, err)
		assert.Equal(t, models.KindNotFound, models.KindOf(err))
	})
}

func TestConcurrentUpdatesSerializeIntegration(t *testing.T) {
	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	ctx := context.Background()
	tenantID := testDB.CreateTestTenant(t, "locking-tenant")
	defer testDB.CleanupTenant(t, tenantID)
	agentID := testDB.CreateTestAgent(t, tenantID, "locking-agent")

	eventService := events.NewService(testDB.Pool, nil)
	taskService := taskstore.NewService(testDB.Pool, eventService, nil)

	taskID := fmt.Sprintf("task-locking-%d", time.Now().UnixNano())
	_, err := taskService.UpsertTask(ctx, taskstore.UpsertTaskInput{
		TenantID: tenantID,
		AgentID:  agentID,
		Params:   helpers.SendParams(taskID, "start"),
		Type:     models.TaskTypeIncoming,
	})
	require.NoError(t, err)

	// Concurrent merges contend for the row lock; every appended message
	// must survive.
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := taskService.UpdateTask(ctx, tenantID, agentID, taskID, taskstore.UpdateTaskParams{
				NewMessages: []a2a.Message{helpers.AgentTextMessage(fmt.Sprintf("update %d", n))},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	task, err := taskService.GetTask(ctx, tenantID, agentID, taskID, nil)
	require.NoError(t, err)
	require.NotNil(t, task.A2ATask)
	assert.Len(t, task.A2ATask.History, workers+1)
}

func TestListTasksPaginationIntegration(t *testing.T) {
	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	ctx := context.Background()
	tenantID := testDB.CreateTestTenant(t, "pagination-tenant")
	defer testDB.CleanupTenant(t, tenantID)
	agentID := testDB.CreateTestAgent(t, tenantID, "pagination-agent")

	eventService := events.NewService(testDB.Pool, nil)
	taskService := taskstore.NewService(testDB.Pool, eventService, nil)

	const total = 7
	for i := 0; i < total; i++ {
		_, err := taskService.UpsertTask(ctx, taskstore.UpsertTaskInput{
			TenantID: tenantID,
			AgentID:  agentID,
			Params:   helpers.SendParams(fmt.Sprintf("task-page-%d", i), "hello"),
			Type:     models.TaskTypeOutgoing,
		})
		require.NoError(t, err)
	}

	perPage := 3

	page1 := 1
	first, err := taskService.ListTasks(ctx, tenantID, taskstore.ListTasksInput{
		AgentID: &agentID,
		Options: pagination.Options{Page: &page1, PerPage: perPage},
	})
	require.NoError(t, err)
	assert.Len(t, first.Records, perPage)
	assert.Equal(t, int64(total), first.Total)
	assert.True(t, first.HasMore)

	page3 := 3
	last, err := taskService.ListTasks(ctx, tenantID, taskstore.ListTasksInput{
		AgentID: &agentID,
		Options: pagination.Options{Page: &page3, PerPage: perPage},
	})
	require.NoError(t, err)
	assert.Len(t, last.Records, 1)
	assert.Equal(t, int64(total), last.Total)
	assert.False(t, last.HasMore)

	// State filter narrows the listing. Both branches round-trip the enum
	// values through the query parameters.
	submitted, err := taskService.ListTasks(ctx, tenantID, taskstore.ListTasksInput{
		AgentID: &agentID,
		StateIn: []models.TaskState{models.TaskStateSubmitted, models.TaskStateWorking},
	})
	require.NoError(t, err)
	assert.Len(t, submitted.Records, total)
	assert.Equal(t, int64(total), submitted.Total)
	for _, task := range submitted.Records {
		assert.Equal(t, models.TaskStateSubmitted, task.State)
	}

	filtered, err := taskService.ListTasks(ctx, tenantID, taskstore.ListTasksInput{
		AgentID: &agentID,
		StateIn: []models.TaskState{models.TaskStateCompleted},
	})
	require.NoError(t, err)
	assert.Empty(t, filtered.Records)
	assert.Equal(t, int64(0), filtered.Total)
}
