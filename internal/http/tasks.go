package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/tasks"
)

// TasksController reports on and triggers background tasks.
type TasksController struct {
	queue TaskQueue
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// GetTaskStatus handles GET /api/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	statusStr := tasks.StatusString(status)
	if statusStr == "not_found" {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": statusStr,
	})
}

// EnrichAll handles POST /api/tasks/enrich_all_books
// Queues a bulk enrichment of every book missing metadata.
func (tc *TasksController) EnrichAll(c *gin.Context) {
	taskID, err := tc.queue.Enqueue(tasks.EnrichAllBooksTask{Trigger: "manual"})
	if err != nil {
		respondInternalError(c, err, "enqueue bulk enrichment")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"type":    "enrich_all_books",
		"message": "task enqueued",
	})
}
