package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestCleanupJob(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultConfig", func(t *testing.T) {
		job := NewCleanupJob(NewStore(DefaultConfig()), CleanupConfig{})
		if job.config.Interval != DefaultCleanupInterval {
			t.Errorf("expected default interval %v, got %v", DefaultCleanupInterval, job.config.Interval)
		}
	})

	t.Run("RunOnceSweepsExpired", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute})
		var created atomic.Int64
		now := time.Now()
		store.now = func() time.Time { return now }

		if _, err := store.GetOrCreate(ctx, "user-1", newHandleFactory(&created)); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		now = now.Add(2 * time.Minute)

		job := NewCleanupJob(store, DefaultCleanupConfig())
		if removed := job.RunOnce(); removed != 1 {
			t.Errorf("expected 1 session removed, got %d", removed)
		}
	})

	t.Run("IdempotentStart", func(t *testing.T) {
		job := NewCleanupJob(NewStore(DefaultConfig()), CleanupConfig{Interval: time.Hour})
		job.Start(ctx)
		firstStop := job.stopChan
		job.Start(ctx) // No-op while running.
		if job.stopChan != firstStop {
			t.Error("second Start replaced the running loop")
		}
		job.Stop()
		if job.IsRunning() {
			t.Error("job still reported running after Stop")
		}
	})

	t.Run("StopWaitsForLoopExit", func(t *testing.T) {
		job := NewCleanupJob(NewStore(DefaultConfig()), CleanupConfig{Interval: 10 * time.Millisecond})
		job.Start(ctx)
		time.Sleep(30 * time.Millisecond)
		job.Stop()

		select {
		case <-job.done:
		default:
			t.Error("loop goroutine still running after Stop returned")
		}

		// Stop again is a no-op.
		job.Stop()
	})

	t.Run("RestartAfterStop", func(t *testing.T) {
		job := NewCleanupJob(NewStore(DefaultConfig()), CleanupConfig{Interval: time.Hour})
		job.Start(ctx)
		job.Stop()
		job.Start(ctx)
		if !job.IsRunning() {
			t.Error("job did not restart after Stop")
		}
		job.Stop()
	})

	t.Run("SweepPanicIsSwallowed", func(t *testing.T) {
		// A nil store makes SweepExpired panic; the guard must convert that
		// into a zero result instead of killing the caller.
		job := NewCleanupJob(NewStore(DefaultConfig()), DefaultCleanupConfig())
		job.store = nil
		if removed := job.RunOnce(); removed != 0 {
			t.Errorf("expected 0 removals from panicking sweep, got %d", removed)
		}
	})

	t.Run("ContextCancelStopsLoop", func(t *testing.T) {
		loopCtx, cancel := context.WithCancel(ctx)
		job := NewCleanupJob(NewStore(DefaultConfig()), CleanupConfig{Interval: 10 * time.Millisecond})
		job.Start(loopCtx)
		cancel()

		select {
		case <-job.done:
		case <-time.After(time.Second):
			t.Fatal("loop did not exit after context cancellation")
		}

		if job.IsRunning() {
			t.Error("job still reported running after its context was cancelled")
		}

		// A cancelled loop must not block a later Start.
		job.Start(ctx)
		if !job.IsRunning() {
			t.Error("job did not restart after context cancellation")
		}
		job.Stop()
	})
}
