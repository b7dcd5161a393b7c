package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is the default interval between sweep runs.
const DefaultCleanupInterval = 5 * time.Minute

// CleanupConfig holds configuration for the cleanup job.
type CleanupConfig struct {
	Interval time.Duration // Interval between sweep runs (default: 5m)
}

// DefaultCleanupConfig returns the default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{Interval: DefaultCleanupInterval}
}

// CleanupJob periodically sweeps expired sessions from a Store. At most one
// loop runs per job; Start while running is a no-op.
type CleanupJob struct {
	store  *Store
	config CleanupConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewCleanupJob creates a cleanup job for the given store.
func NewCleanupJob(store *Store, config CleanupConfig) *CleanupJob {
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupInterval
	}
	return &CleanupJob{
		store:  store,
		config: config,
	}
}

// Start begins the periodic sweep loop in a goroutine. Idempotent: a second
// Start while the loop is running does nothing.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}
	j.running = true
	j.stopChan = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.stopChan, j.done)

	slog.Info("session cleanup job started", "interval", j.config.Interval)
}

// Stop cancels the sweep loop and waits for it to exit.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopChan)
	j.running = false
	done := j.done
	j.mu.Unlock()

	<-done
	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single sweep immediately. Useful for tests and manual
// cleanup.
func (j *CleanupJob) RunOnce() int {
	return j.sweep()
}

// IsRunning reports whether the sweep loop is currently active.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *CleanupJob) run(ctx context.Context, stopChan, done chan struct{}) {
	defer func() {
		// The loop may exit on its own when the Start context is cancelled;
		// clear the running flag so a later Start is not refused. Guard on
		// stopChan identity in case the job was already restarted.
		j.mu.Lock()
		if j.stopChan == stopChan {
			j.running = false
		}
		j.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopChan:
			return
		case <-ticker.C:
			if removed := j.sweep(); removed > 0 {
				slog.Info("session cleanup completed", "removed", removed)
			}
		}
	}
}

// sweep runs one sweep pass. A panic from the sweep is logged and swallowed
// so a single bad pass cannot kill the loop.
func (j *CleanupJob) sweep() (removed int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session sweep panicked", "panic", r)
			removed = 0
		}
	}()
	return j.store.SweepExpired()
}
