package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newHandleFactory(counter *atomic.Int64) ConversationFactory {
	return func(context.Context) (ConversationHandle, error) {
		return counter.Add(1), nil
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondCallReusesHandle", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute})
		var created atomic.Int64
		factory := newHandleFactory(&created)

		first, err := store.GetOrCreate(ctx, "user-1", factory)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		second, err := store.GetOrCreate(ctx, "user-1", factory)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		if created.Load() != 1 {
			t.Errorf("expected 1 factory invocation, got %d", created.Load())
		}
		if first.Handle != second.Handle {
			t.Errorf("expected same handle, got %v and %v", first.Handle, second.Handle)
		}
		if second.LastActive.Before(first.LastActive) {
			t.Error("last_active went backwards on second access")
		}
	})

	t.Run("ExpiredSessionIsReplaced", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute})
		var created atomic.Int64
		factory := newHandleFactory(&created)

		now := time.Now()
		store.now = func() time.Time { return now }

		first, err := store.GetOrCreate(ctx, "user-1", factory)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		store.AppendHistory("user-1", "user", "hello")

		// Advance past the timeout; the next access must rebuild the session.
		now = now.Add(time.Minute)
		second, err := store.GetOrCreate(ctx, "user-1", factory)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		if created.Load() != 2 {
			t.Errorf("expected 2 factory invocations, got %d", created.Load())
		}
		if first.Handle == second.Handle {
			t.Error("expected a fresh handle after expiry")
		}
		if len(second.History) != 0 {
			t.Errorf("expected empty history after expiry, got %d records", len(second.History))
		}
	})

	t.Run("FactoryErrorLeavesStateUnchanged", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute})
		wantErr := fmt.Errorf("upstream unavailable")

		_, err := store.GetOrCreate(ctx, "user-1", func(context.Context) (ConversationHandle, error) {
			return nil, wantErr
		})
		if err == nil {
			t.Fatal("expected factory error to propagate")
		}
		if _, ok := store.Describe("user-1"); ok {
			t.Error("expected no session after factory failure")
		}
	})

	t.Run("ConcurrentCreateSingleWinner", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute})
		var created atomic.Int64
		factory := newHandleFactory(&created)

		const callers = 16
		handles := make([]ConversationHandle, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sess, err := store.GetOrCreate(ctx, "user-1", factory)
				if err != nil {
					t.Errorf("GetOrCreate failed: %v", err)
					return
				}
				handles[i] = sess.Handle
			}(i)
		}
		wg.Wait()

		// Every caller must observe the same winning handle even though
		// several factories may have run.
		for i := 1; i < callers; i++ {
			if handles[i] != handles[0] {
				t.Fatalf("caller %d observed handle %v, caller 0 observed %v", i, handles[i], handles[0])
			}
		}
		stats := store.Stats()
		if stats.ActiveSessions != 1 {
			t.Errorf("expected exactly 1 live session, got %d", stats.ActiveSessions)
		}
	})
}

func TestStoreAppendHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("TrimsOldestBeyondMax", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute, MaxHistory: 3})
		var created atomic.Int64
		if _, err := store.GetOrCreate(ctx, "user-1", newHandleFactory(&created)); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		for i := 0; i < 5; i++ {
			if !store.AppendHistory("user-1", "user", fmt.Sprintf("msg-%d", i)) {
				t.Fatalf("AppendHistory %d returned false", i)
			}
		}

		sess, err := store.GetOrCreate(ctx, "user-1", newHandleFactory(&created))
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if len(sess.History) != 3 {
			t.Fatalf("expected history length 3, got %d", len(sess.History))
		}
		for i, want := range []string{"msg-2", "msg-3", "msg-4"} {
			if sess.History[i].Content != want {
				t.Errorf("history[%d] = %q, want %q", i, sess.History[i].Content, want)
			}
		}
	})

	t.Run("NoSessionReturnsFalse", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute})
		if store.AppendHistory("ghost", "user", "hello") {
			t.Error("expected false for nonexistent session")
		}
	})

	t.Run("SnapshotIsACopy", func(t *testing.T) {
		store := NewStore(Config{Timeout: time.Minute})
		var created atomic.Int64
		factory := newHandleFactory(&created)
		if _, err := store.GetOrCreate(ctx, "user-1", factory); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		store.AppendHistory("user-1", "user", "original")

		sess, _ := store.GetOrCreate(ctx, "user-1", factory)
		sess.History[0].Content = "mutated"

		again, _ := store.GetOrCreate(ctx, "user-1", factory)
		if again.History[0].Content != "original" {
			t.Error("caller mutation leaked into store-owned history")
		}
	})
}

func TestStoreTouchAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Config{Timeout: time.Minute})
	var created atomic.Int64
	factory := newHandleFactory(&created)

	if store.Touch("user-1") {
		t.Error("Touch on missing session should return false")
	}
	if store.Clear("user-1") {
		t.Error("Clear on missing session should return false")
	}

	if _, err := store.GetOrCreate(ctx, "user-1", factory); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !store.Touch("user-1") {
		t.Error("Touch on live session should return true")
	}
	if !store.Clear("user-1") {
		t.Error("Clear on live session should return true")
	}
	if _, ok := store.Describe("user-1"); ok {
		t.Error("Describe should report absence after Clear")
	}
}

func TestStoreSweepExpired(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Config{Timeout: time.Minute})
	var created atomic.Int64
	factory := newHandleFactory(&created)

	now := time.Now()
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := store.GetOrCreate(ctx, fmt.Sprintf("stale-%d", i), factory); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
	}

	now = now.Add(30 * time.Second)
	if _, err := store.GetOrCreate(ctx, "fresh", factory); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	// A touched stale session must survive the sweep.
	if !store.Touch("stale-0") {
		t.Fatal("Touch failed")
	}

	now = now.Add(45 * time.Second)
	removed := store.SweepExpired()
	if removed != 2 {
		t.Errorf("expected 2 sessions swept, got %d", removed)
	}
	if _, ok := store.Describe("fresh"); !ok {
		t.Error("fresh session was swept")
	}
	if _, ok := store.Describe("stale-0"); !ok {
		t.Error("touched session was swept")
	}

	// Idempotent: a second sweep removes nothing.
	if removed := store.SweepExpired(); removed != 0 {
		t.Errorf("expected idempotent sweep, got %d removals", removed)
	}

	stats := store.Stats()
	if stats.CleanupRuns != 2 {
		t.Errorf("expected 2 cleanup runs, got %d", stats.CleanupRuns)
	}
	if stats.TotalCleaned != 2 {
		t.Errorf("expected 2 total cleaned, got %d", stats.TotalCleaned)
	}
}

func TestStoreStats(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Config{Timeout: time.Minute})
	var created atomic.Int64
	factory := newHandleFactory(&created)

	for i := 0; i < 3; i++ {
		userID := fmt.Sprintf("user-%d", i)
		if _, err := store.GetOrCreate(ctx, userID, factory); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		store.AppendHistory(userID, "user", "hello")
		store.AppendHistory(userID, "assistant", "hi")
	}

	stats := store.Stats()
	if stats.ActiveSessions != 3 {
		t.Errorf("expected 3 active sessions, got %d", stats.ActiveSessions)
	}
	if stats.TotalHistoryEntries != 6 {
		t.Errorf("expected 6 history entries, got %d", stats.TotalHistoryEntries)
	}
}

func TestStoreConcurrentMixedOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Config{Timeout: time.Minute, MaxHistory: 10})
	var created atomic.Int64
	factory := newHandleFactory(&created)

	// Sweeps racing request-driven access on many keys must not corrupt the
	// store; run under -race.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i%4)
			for j := 0; j < 50; j++ {
				if _, err := store.GetOrCreate(ctx, userID, factory); err != nil {
					t.Errorf("GetOrCreate failed: %v", err)
					return
				}
				store.AppendHistory(userID, "user", "ping")
				store.Touch(userID)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			store.SweepExpired()
			store.Stats()
		}
	}()
	wg.Wait()

	if stats := store.Stats(); stats.ActiveSessions != 4 {
		t.Errorf("expected 4 live sessions, got %d", stats.ActiveSessions)
	}
}
