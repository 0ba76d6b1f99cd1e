package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookworms/internal/tasks"
)

// PurgeSchedule runs the cache purge at the top of every hour.
const PurgeSchedule = "0 * * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer adds a task to the background queue.
type Enqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

// Options configures which jobs the scheduler registers.
type Options struct {
	// EnrichSchedule is a five-field cron expression for bulk enrichment.
	EnrichSchedule string
	// PurgeCache registers the hourly cache purge job.
	PurgeCache bool
}

// Scheduler periodically enqueues background tasks. It never runs the
// work itself; workers in the task queue do.
type Scheduler struct {
	queue Enqueuer
	opts  Options

	cron       *cron.Cron
	enrichID   cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// New creates a scheduler that enqueues into queue.
func New(queue Enqueuer, opts Options) *Scheduler {
	return &Scheduler{
		queue: queue,
		opts:  opts,
		cron:  cron.New(cron.WithParser(parser)),
	}
}

// Start registers the jobs and starts the cron loop. The scheduler stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.opts.EnrichSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.opts.EnrichSchedule, err)
	}

	entryID, err := s.cron.AddFunc(s.opts.EnrichSchedule, func() {
		s.enqueue(tasks.EnrichAllBooksTask{Trigger: "schedule"})
	})
	if err != nil {
		return fmt.Errorf("failed to schedule enrichment job: %w", err)
	}
	s.enrichID = entryID

	if s.opts.PurgeCache {
		if _, err := s.cron.AddFunc(PurgeSchedule, func() {
			s.enqueue(tasks.PurgeCacheTask{})
		}); err != nil {
			return fmt.Errorf("failed to schedule cache purge job: %w", err)
		}
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.opts.EnrichSchedule, time.Now())
	log.Printf("[SCHEDULER] Started with enrichment schedule '%s'. Next run: %v",
		s.opts.EnrichSchedule, nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the cron loop and waits for in-flight jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("[SCHEDULER] Stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextEnrichment returns when the enrichment job fires next, or nil when
// the scheduler is not running.
func (s *Scheduler) NextEnrichment() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entry := s.cron.Entry(s.enrichID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

// RunNow enqueues a bulk enrichment immediately.
func (s *Scheduler) RunNow() (string, error) {
	return s.queue.Enqueue(tasks.EnrichAllBooksTask{Trigger: "manual"})
}

func (s *Scheduler) enqueue(task backlite.Task) {
	id, err := s.queue.Enqueue(task)
	if err != nil {
		log.Printf("[SCHEDULER] Failed to enqueue %s: %v", task.Config().Name, err)
		return
	}
	log.Printf("[SCHEDULER] Enqueued %s (task %s)", task.Config().Name, id)
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime returns the first activation of schedule after from.
func NextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}
