// Package session provides the per-user conversation session store with
// TTL-based expiry and a periodic cleanup job.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTimeout is the idle duration after which a session expires.
	DefaultTimeout = 30 * time.Minute
	// DefaultMaxHistory is the maximum number of history records kept per session.
	DefaultMaxHistory = 20
)

// ConversationHandle is an opaque external resource representing an ongoing
// dialogue (for example a stateful chat-completion context). The store never
// inspects it.
type ConversationHandle any

// ConversationFactory produces a new conversation handle for a freshly
// created session. It is invoked at most once per genuinely-new session and
// never while the store lock is held.
type ConversationFactory func(ctx context.Context) (ConversationHandle, error)

// HistoryRecord is one turn of a conversation.
type HistoryRecord struct {
	Role      string    `json:"role"` // "user" | "assistant" | "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a point-in-time snapshot of one user's conversational state.
// The store owns the live state; callers must re-fetch through the store
// rather than retain a Session across calls.
type Session struct {
	UserID     string
	Handle     ConversationHandle
	History    []HistoryRecord
	CreatedAt  time.Time
	LastActive time.Time
	Metadata   map[string]any
}

// Info describes a session without exposing its handle or history contents.
type Info struct {
	UserID        string
	HistoryLength int
	CreatedAt     time.Time
	LastActive    time.Time
	Expired       bool
}

// Stats is a point-in-time snapshot of store state for observability.
type Stats struct {
	ActiveSessions      int
	TotalHistoryEntries int
	OldestSessionAge    time.Duration
	CleanupRuns         int64
	TotalCleaned        int64
}

// Config holds store construction parameters.
type Config struct {
	Timeout    time.Duration // Idle TTL (default: 30m)
	MaxHistory int           // Max history records per session (default: 20)
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    DefaultTimeout,
		MaxHistory: DefaultMaxHistory,
	}
}

type sessionData struct {
	handle     ConversationHandle
	history    []HistoryRecord
	createdAt  time.Time
	lastActive time.Time
	metadata   map[string]any
}

// Store is a concurrent map from user ID to session state. All read-modify-
// write sequences run under a single mutex held only for in-memory work; the
// conversation factory always runs outside the lock.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionData

	timeout    time.Duration
	maxHistory int

	cleanupRuns  int64
	totalCleaned int64

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates a session store with the given configuration.
func NewStore(cfg Config) *Store {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[string]*sessionData),
		timeout:    cfg.Timeout,
		maxHistory: cfg.MaxHistory,
		now:        time.Now,
	}
}

// Timeout returns the configured idle TTL.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

func (s *Store) expired(data *sessionData, now time.Time) bool {
	return now.Sub(data.lastActive) >= s.timeout
}

// GetOrCreate returns the live session for userID, refreshing its activity
// timestamp. If no live session exists (never created, or expired), the
// factory is invoked to produce a new conversation handle and a fresh session
// replaces any expired one. When two callers race on the same userID, the
// slower caller discards its handle and adopts the session already installed.
func (s *Store) GetOrCreate(ctx context.Context, userID string, factory ConversationFactory) (Session, error) {
	s.mu.Lock()
	now := s.now()
	if data, ok := s.sessions[userID]; ok && !s.expired(data, now) {
		data.lastActive = now
		snap := s.snapshot(userID, data)
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	// Factory runs unlocked so a slow external call cannot block other users.
	handle, err := factory(ctx)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now = s.now()
	if data, ok := s.sessions[userID]; ok && !s.expired(data, now) {
		// Lost the race: another caller installed a live session while the
		// factory ran. Its result is authoritative.
		data.lastActive = now
		return s.snapshot(userID, data), nil
	}

	data := &sessionData{
		handle:     handle,
		history:    make([]HistoryRecord, 0, s.maxHistory),
		createdAt:  now,
		lastActive: now,
		metadata:   make(map[string]any),
	}
	s.sessions[userID] = data
	slog.Debug("session created", "user_id", userID)
	return s.snapshot(userID, data), nil
}

// Touch refreshes last_active for a live session. Returns false when the
// user has no session or it has expired.
func (s *Store) Touch(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[userID]
	now := s.now()
	if !ok || s.expired(data, now) {
		return false
	}
	data.lastActive = now
	return true
}

// AppendHistory appends one record to a live session's history, dropping the
// oldest records once the configured maximum is exceeded. Returns false when
// the user has no live session; callers must GetOrCreate first.
func (s *Store) AppendHistory(userID, role, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[userID]
	now := s.now()
	if !ok || s.expired(data, now) {
		return false
	}

	data.history = append(data.history, HistoryRecord{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	if len(data.history) > s.maxHistory {
		data.history = data.history[len(data.history)-s.maxHistory:]
	}
	data.lastActive = now
	return true
}

// Clear removes the session for userID if present, expired or not. Returns
// whether one was removed.
func (s *Store) Clear(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)
	slog.Debug("session cleared", "user_id", userID)
	return true
}

// Describe returns session metadata for userID. The second return value is
// false when no session record exists at all, even an expired one.
func (s *Store) Describe(userID string) (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[userID]
	if !ok {
		return Info{}, false
	}
	return Info{
		UserID:        userID,
		HistoryLength: len(data.history),
		CreatedAt:     data.createdAt,
		LastActive:    data.lastActive,
		Expired:       s.expired(data, s.now()),
	}, true
}

// SweepExpired removes every expired session and returns the count removed.
// Safe to call concurrently with any other store operation.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, data := range s.sessions {
		if s.expired(data, now) {
			delete(s.sessions, userID)
			removed++
		}
	}
	s.cleanupRuns++
	s.totalCleaned += int64(removed)
	if removed > 0 {
		slog.Info("expired sessions swept", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}

// Stats returns a point-in-time snapshot of store state.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stats := Stats{
		CleanupRuns:  s.cleanupRuns,
		TotalCleaned: s.totalCleaned,
	}
	var oldest time.Time
	for _, data := range s.sessions {
		if s.expired(data, now) {
			continue
		}
		stats.ActiveSessions++
		stats.TotalHistoryEntries += len(data.history)
		if oldest.IsZero() || data.createdAt.Before(oldest) {
			oldest = data.createdAt
		}
	}
	if !oldest.IsZero() {
		stats.OldestSessionAge = now.Sub(oldest)
	}
	return stats
}

// snapshot copies session state for return to a caller. History and metadata
// are copied so callers cannot mutate store-owned state. Caller holds s.mu.
func (s *Store) snapshot(userID string, data *sessionData) Session {
	history := make([]HistoryRecord, len(data.history))
	copy(history, data.history)
	metadata := make(map[string]any, len(data.metadata))
	for k, v := range data.metadata {
		metadata[k] = v
	}
	return Session{
		UserID:     userID,
		Handle:     data.handle,
		History:    history,
		CreatedAt:  data.createdAt,
		LastActive: data.lastActive,
		Metadata:   metadata,
	}
}
