package http

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookworms/internal/entities"
)

type goalList struct {
	Goals []entities.Goal `json:"goals"`
	Count int             `json:"count"`
}

func createClassroom(t *testing.T, s *testServer, token, name string) entities.Classroom {
	t.Helper()
	w := s.do(http.MethodPost, "/api/classrooms", token, map[string]string{"name": name})
	requireStatus(t, w, http.StatusCreated)
	return decodeJSON[entities.Classroom](t, w)
}

func joinClassroom(t *testing.T, s *testServer, token string, childID uint, code string) {
	t.Helper()
	w := s.do(http.MethodPut, fmt.Sprintf("/api/children/%d/classroom", childID), token, map[string]string{"class_code": code})
	requireStatus(t, w, http.StatusOK)
}

func TestClassroomsController_CreateAndJoin(t *testing.T) {
	s := newTestServer(t)
	_, teacherToken := s.createUser("teacher", entities.UserRoleTeacher)
	_, parentToken := s.createUser("maria", entities.UserRoleParent)

	requireStatus(t, s.do(http.MethodPost, "/api/classrooms", parentToken, map[string]string{"name": "Room 4"}), http.StatusForbidden)

	room := createClassroom(t, s, teacherToken, "Room 4")
	assert.Len(t, room.ClassCode, 6)

	child := createChild(t, s, parentToken, "Milo")

	t.Run("unknown code", func(t *testing.T) {
		w := s.do(http.MethodPut, fmt.Sprintf("/api/children/%d/classroom", child.ID), parentToken, map[string]string{"class_code": "ZZZZZZ"})
		requireStatus(t, w, http.StatusNotFound)
	})

	t.Run("code is case insensitive", func(t *testing.T) {
		joinClassroom(t, s, parentToken, child.ID, " "+strings.ToLower(room.ClassCode)+" ")
	})

	t.Run("teacher sees members", func(t *testing.T) {
		w := s.do(http.MethodGet, fmt.Sprintf("/api/classrooms/%d", room.ID), teacherToken, nil)
		requireStatus(t, w, http.StatusOK)
		detail := decodeJSON[ClassroomDetail](t, w)
		require.Len(t, detail.Children, 1)
		assert.Equal(t, "Milo", detail.Children[0].Name)

		// Members are readable by their teacher.
		requireStatus(t, s.do(http.MethodGet, fmt.Sprintf("/api/children/%d", child.ID), teacherToken, nil), http.StatusOK)
	})

	t.Run("listing", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/classrooms", teacherToken, nil)
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, float64(1), decodeJSON[map[string]any](t, w)["count"])
	})

	t.Run("leave", func(t *testing.T) {
		w := s.do(http.MethodDelete, fmt.Sprintf("/api/children/%d/classroom", child.ID), parentToken, nil)
		requireStatus(t, w, http.StatusOK)
		assert.Nil(t, decodeJSON[entities.Child](t, w).ClassroomID)
	})
}

func TestClassroomsController_Ownership(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.createUser("teacher", entities.UserRoleTeacher)
	_, otherToken := s.createUser("other", entities.UserRoleTeacher)
	_, adminToken := s.createUser("root", entities.UserRoleAdmin)
	room := createClassroom(t, s, ownerToken, "Room 4")
	path := fmt.Sprintf("/api/classrooms/%d", room.ID)

	requireStatus(t, s.do(http.MethodGet, path, otherToken, nil), http.StatusForbidden)
	requireStatus(t, s.do(http.MethodDelete, path, otherToken, nil), http.StatusForbidden)
	requireStatus(t, s.do(http.MethodPost, path+"/bookshelves", otherToken, map[string]string{"name": "Mine"}), http.StatusForbidden)
	requireStatus(t, s.do(http.MethodGet, path, adminToken, nil), http.StatusOK)
	requireStatus(t, s.do(http.MethodGet, "/api/classrooms/999", ownerToken, nil), http.StatusNotFound)

	w := s.do(http.MethodPost, path+"/bookshelves", ownerToken, map[string]string{"name": "Class Library"})
	requireStatus(t, w, http.StatusCreated)
	shelf := decodeJSON[entities.Bookshelf](t, w)
	require.NotNil(t, shelf.ClassroomID)
	assert.Equal(t, room.ID, *shelf.ClassroomID)

	w = s.do(http.MethodGet, path+"/bookshelves", ownerToken, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 1, decodeJSON[shelfList](t, w).Count)

	requireStatus(t, s.do(http.MethodDelete, path, ownerToken, nil), http.StatusNoContent)
	requireStatus(t, s.do(http.MethodGet, path, ownerToken, nil), http.StatusNotFound)
	requireStatus(t, s.do(http.MethodGet, fmt.Sprintf("/api/bookshelves/%d", shelf.ID), ownerToken, nil), http.StatusNotFound)
}

func TestClassroomsController_Goals(t *testing.T) {
	s := newTestServer(t)
	_, teacherToken := s.createUser("teacher", entities.UserRoleTeacher)
	_, mariaToken := s.createUser("maria", entities.UserRoleParent)
	_, jonasToken := s.createUser("jonas", entities.UserRoleParent)

	room := createClassroom(t, s, teacherToken, "Room 4")
	milo := createChild(t, s, mariaToken, "Milo")
	joinClassroom(t, s, mariaToken, milo.ID, room.ClassCode)
	outsider := createChild(t, s, jonasToken, "Ada")

	goalsPath := fmt.Sprintf("/api/classrooms/%d/goals", room.ID)

	t.Run("validation", func(t *testing.T) {
		w := s.do(http.MethodPost, goalsPath, teacherToken, map[string]any{"title": "Read", "kind": "pages", "target": 5})
		requireStatus(t, w, http.StatusBadRequest)
		requireStatus(t, s.do(http.MethodPost, goalsPath, mariaToken, map[string]any{"title": "Read", "kind": "books", "target": 5}), http.StatusForbidden)
	})

	w := s.do(http.MethodPost, goalsPath, teacherToken, map[string]any{
		"title":    "Ten books in spring",
		"kind":     "books",
		"target":   10,
		"end_date": "2030-06-01T00:00:00Z",
	})
	requireStatus(t, w, http.StatusCreated)
	goal := decodeJSON[entities.Goal](t, w)
	assert.False(t, goal.StartDate.IsZero())
	progressPath := fmt.Sprintf("/api/goals/%d/progress", goal.ID)

	t.Run("parents of members can list goals", func(t *testing.T) {
		w := s.do(http.MethodGet, goalsPath, mariaToken, nil)
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, 1, decodeJSON[goalList](t, w).Count)

		requireStatus(t, s.do(http.MethodGet, goalsPath, jonasToken, nil), http.StatusForbidden)
	})

	t.Run("parent records progress for own child", func(t *testing.T) {
		w := s.do(http.MethodPut, progressPath, mariaToken, map[string]any{"child_id": milo.ID, "progress": 4})
		requireStatus(t, w, http.StatusOK)
		body := decodeJSON[map[string]any](t, w)
		assert.Equal(t, float64(4), body["progress"])
		assert.Equal(t, false, body["completed"])
	})

	t.Run("teacher completes the goal", func(t *testing.T) {
		w := s.do(http.MethodPut, progressPath, teacherToken, map[string]any{"child_id": milo.ID, "progress": 10})
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, true, decodeJSON[map[string]any](t, w)["completed"])

		list := decodeJSON[goalList](t, s.do(http.MethodGet, goalsPath, teacherToken, nil))
		require.Len(t, list.Goals, 1)
		require.Len(t, list.Goals[0].Progress, 1)
		assert.Equal(t, 10, list.Goals[0].Progress[0].Progress)
	})

	t.Run("other parents are forbidden", func(t *testing.T) {
		w := s.do(http.MethodPut, progressPath, jonasToken, map[string]any{"child_id": milo.ID, "progress": 1})
		requireStatus(t, w, http.StatusForbidden)
	})

	t.Run("non-members are rejected", func(t *testing.T) {
		w := s.do(http.MethodPut, progressPath, teacherToken, map[string]any{"child_id": outsider.ID, "progress": 1})
		requireStatus(t, w, http.StatusUnprocessableEntity)
	})

	t.Run("negative progress", func(t *testing.T) {
		w := s.do(http.MethodPut, progressPath, teacherToken, map[string]any{"child_id": milo.ID, "progress": -1})
		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("delete goal", func(t *testing.T) {
		path := fmt.Sprintf("/api/goals/%d", goal.ID)
		requireStatus(t, s.do(http.MethodDelete, path, mariaToken, nil), http.StatusForbidden)
		requireStatus(t, s.do(http.MethodDelete, path, teacherToken, nil), http.StatusNoContent)
		requireStatus(t, s.do(http.MethodDelete, path, teacherToken, nil), http.StatusNotFound)
	})
}
