package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookworms/internal/config"
)

// Client runs the backlite queues on their own SQLite file, separate from
// the catalog database.
type Client struct {
	queue   *backlite.Client
	db      *sql.DB
	workers int

	mu      sync.Mutex
	running bool
}

// DatabasePath derives a tasks database path from a main SQLite database
// path: the same directory and name with a "-tasks" suffix.
func DatabasePath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, name+"-tasks"+ext)
}

// ResolveDatabasePath picks where the queue lives. An explicit
// TASKS_DATABASE_PATH wins; otherwise a SQLite catalog gets a sibling file
// and any other driver falls back to config.DefaultTasksDatabasePath.
func ResolveDatabasePath(settings config.Tasks, db config.Database) string {
	if settings.DatabasePath != "" {
		return settings.DatabasePath
	}
	switch db.Driver {
	case config.DatabaseDriverSQLite, "":
		if db.Path != "" {
			return DatabasePath(db.Path)
		}
		return DatabasePath(config.DefaultDatabasePath)
	default:
		return config.DefaultTasksDatabasePath
	}
}

// NewClient opens (creating if needed) the queue database at path and
// installs the backlite schema.
func NewClient(path string, cfg Config) (*Client, error) {
	if path == "" {
		return nil, fmt.Errorf("tasks database path is empty")
	}

	db, err := openQueueDB(path, cfg.Workers)
	if err != nil {
		return nil, err
	}

	queue, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err == nil {
		err = queue.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("set up task queue in %s: %w", path, err)
	}

	return &Client{queue: queue, db: db, workers: cfg.Workers}, nil
}

// openQueueDB uses WAL so workers and the API can touch the queue at once.
func openQueueDB(path string, workers int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open tasks database %s: %w", path, err)
	}
	db.SetMaxOpenConns(workers + 5)
	db.SetMaxIdleConns(workers + 2)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Register adds queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.queue.Register(q)
	}
}

// Start runs the workers until ctx is cancelled or Stop is called. It does
// not block; repeated calls are ignored.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	log.Printf("[TASK] Queue running with %d workers", c.workers)
	c.queue.Start(ctx)
}

// Stop waits for in-flight tasks until ctx expires and reports whether
// every worker finished.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return true
	}
	c.running = false
	c.mu.Unlock()

	finished := c.queue.Stop(ctx)
	if finished {
		log.Printf("[TASK] Queue stopped")
	} else {
		log.Printf("[TASK] Queue stop timed out; unfinished tasks will be released on next start")
	}
	return finished
}

// Close releases the queue database. Call Stop first.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Enqueue adds a single task and returns its ID.
func (c *Client) Enqueue(task backlite.Task) (string, error) {
	ids, err := c.queue.Add(task).Save()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("task was not enqueued")
	}
	return ids[0], nil
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.queue.Status(ctx, taskID)
}

// StatusString returns the API representation of a task status.
func StatusString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// queueLogger routes backlite's own messages through the [TASK] log prefix.
type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK] ERROR "+message, params...)
}
