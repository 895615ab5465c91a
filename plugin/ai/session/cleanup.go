package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupInterval is the default interval between cleanup runs.
const DefaultCleanupInterval = time.Minute

// Cleaner is a session store that needs explicit sweeping. Stores with native expiry
// (redis) do not implement it.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanupJob periodically sweeps expired sessions on a cron schedule.
type CleanupJob struct {
	cleaner  Cleaner
	interval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewCleanupJob creates a cleanup job. A non-positive interval uses DefaultCleanupInterval.
func NewCleanupJob(cleaner Cleaner, interval time.Duration) *CleanupJob {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupJob{
		cleaner:  cleaner,
		interval: interval,
	}
}

// Start schedules the sweep. It is non-blocking and idempotent.
func (j *CleanupJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", j.interval), func() {
		if deleted, err := j.cleaner.CleanupExpired(ctx); err != nil {
			slog.Error("session cleanup failed", "error", err)
		} else if deleted > 0 {
			slog.Info("session cleanup completed", "deleted", deleted)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}
	c.Start()

	j.cron = c
	j.running = true
	slog.Info("session cleanup job started", "interval", j.interval)
	return nil
}

// Stop stops the job and waits for a running sweep to finish.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single sweep immediately.
func (j *CleanupJob) RunOnce(ctx context.Context) (int64, error) {
	return j.cleaner.CleanupExpired(ctx)
}

// IsRunning returns whether the job is scheduled.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
