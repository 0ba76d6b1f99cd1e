package http

import (
	"net/http"
	"testing"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookworms/internal/entities"
	"github.com/mrlokans/bookworms/internal/tasks"
)

func TestTasksController_GetTaskStatus(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.createUser("root", entities.UserRoleAdmin)
	_, parentToken := s.createUser("maria", entities.UserRoleParent)

	requireStatus(t, s.do(http.MethodGet, "/api/tasks/abc", parentToken, nil), http.StatusForbidden)

	w := s.do(http.MethodGet, "/api/tasks/abc", adminToken, nil)
	requireStatus(t, w, http.StatusOK)
	body := decodeJSON[map[string]string](t, w)
	assert.Equal(t, "abc", body["id"])
	assert.Equal(t, "pending", body["status"])

	s.queue.status = backlite.TaskStatusNotFound
	requireStatus(t, s.do(http.MethodGet, "/api/tasks/abc", adminToken, nil), http.StatusNotFound)
}

func TestTasksController_EnrichAll(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.createUser("root", entities.UserRoleAdmin)
	_, teacherToken := s.createUser("teacher", entities.UserRoleTeacher)

	requireStatus(t, s.do(http.MethodPost, "/api/tasks/enrich_all_books", teacherToken, nil), http.StatusForbidden)

	w := s.do(http.MethodPost, "/api/tasks/enrich_all_books", adminToken, nil)
	requireStatus(t, w, http.StatusAccepted)
	assert.Equal(t, "task-enrich_all_books", decodeJSON[map[string]string](t, w)["task_id"])

	queued := s.queue.tasks()
	require.Len(t, queued, 1)
	assert.Equal(t, tasks.EnrichAllBooksTask{Trigger: "manual"}, queued[0])
}

func TestTasksController_DisabledWithoutQueue(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.TaskQueue = nil })
	_, adminToken := s.createUser("root", entities.UserRoleAdmin)

	requireStatus(t, s.do(http.MethodGet, "/api/tasks/abc", adminToken, nil), http.StatusNotFound)
}
