package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/auth"
	"github.com/mrlokans/bookworms/internal/config"
	"github.com/mrlokans/bookworms/internal/database/books"
	"github.com/mrlokans/bookworms/internal/database/bookshelves"
	"github.com/mrlokans/bookworms/internal/database/children"
	"github.com/mrlokans/bookworms/internal/database/classrooms"
	"github.com/mrlokans/bookworms/internal/database/dbtest"
	"github.com/mrlokans/bookworms/internal/database/users"
	"github.com/mrlokans/bookworms/internal/entities"
)

const testPassword = "correct-horse-1"

// fakeQueue records enqueued tasks and answers status lookups.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []backlite.Task
	status   backlite.TaskStatus
}

func (q *fakeQueue) Enqueue(task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, task)
	return "task-" + task.Config().Name, nil
}

func (q *fakeQueue) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return q.status, nil
}

func (q *fakeQueue) tasks() []backlite.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]backlite.Task(nil), q.enqueued...)
}

type testServer struct {
	t         *testing.T
	router    *gin.Engine
	db        *gorm.DB
	service   *auth.Service
	usersRepo *users.Repository
	booksRepo *books.Repository
	queue     *fakeQueue
}

// newTestServer builds the full router over a fresh SQLite database.
func newTestServer(t *testing.T, configure ...func(*RouterConfig)) *testServer {
	t.Helper()

	db := dbtest.Open(t)
	usersRepo := users.NewRepository(db)
	booksRepo := books.NewRepository(db)

	secret, err := auth.GenerateSigningSecret()
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(secret, "bookworms-test", 15*time.Minute)
	require.NoError(t, err)
	service, err := auth.NewService(usersRepo, tokens, auth.NewHasher(1000))
	require.NoError(t, err)

	limiter := auth.NewLoginLimiter(config.Auth{MaxLoginAttempts: 3})
	t.Cleanup(limiter.Stop)

	queue := &fakeQueue{status: backlite.TaskStatusPending}
	cfg := RouterConfig{
		Users:        usersRepo,
		Children:     children.NewRepository(db),
		Shelves:      bookshelves.NewRepository(db),
		Books:        booksRepo,
		Rooms:        classrooms.NewRepository(db),
		AuthService:  service,
		Tokens:       tokens,
		LoginLimiter: limiter,
		Version:      "test",
		TaskQueue:    queue,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	return &testServer{
		t:         t,
		router:    NewRouter(cfg),
		db:        db,
		service:   service,
		usersRepo: usersRepo,
		booksRepo: booksRepo,
		queue:     queue,
	}
}

// createUser stores an account directly and returns it with a bearer token.
func (s *testServer) createUser(username string, role entities.UserRole) (*entities.User, string) {
	s.t.Helper()

	user, err := s.service.CreateUser(auth.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Role:     role,
	})
	require.NoError(s.t, err)

	result, err := s.service.IssueToken(user)
	require.NoError(s.t, err)
	return user, result.Token
}

func (s *testServer) createBook(title, authors string) *entities.Book {
	s.t.Helper()
	book := &entities.Book{Title: title, Authors: authors}
	require.NoError(s.t, s.booksRepo.CreateBook(book))
	return book
}

// do sends a request with an optional bearer token and JSON body.
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}
