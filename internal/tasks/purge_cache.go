package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// CachePurger drops expired cache entries.
type CachePurger interface {
	Purge() int
}

// PurgeCacheTask removes expired entries from the in-process cache.
type PurgeCacheTask struct{}

// Config returns the queue configuration for cache purge tasks.
func (t PurgeCacheTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_cache",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeCacheProcessor creates a processor function for PurgeCacheTask.
func PurgeCacheProcessor(purger CachePurger) backlite.QueueProcessor[PurgeCacheTask] {
	return func(ctx context.Context, task PurgeCacheTask) error {
		if purger == nil {
			return fmt.Errorf("cache purger not configured")
		}

		removed := purger.Purge()
		log.Printf("[TASK] Purged %d expired cache entries", removed)
		return nil
	}
}

// NewPurgeCacheQueue creates a backlite queue for cache purge tasks.
func NewPurgeCacheQueue(purger CachePurger) backlite.Queue {
	return backlite.NewQueue(PurgeCacheProcessor(purger))
}
