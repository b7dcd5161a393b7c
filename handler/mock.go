package handler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hrygo/botweaver/session"
)

// MockChatHandler is a mock implementation of ChatHandler for testing. Each
// function field may be overridden; the defaults echo the input.
type MockChatHandler struct {
	NewConversationFunc func(ctx context.Context) (session.ConversationHandle, error)
	ChatFunc            func(ctx context.Context, handle session.ConversationHandle, message string) (string, error)

	conversations atomic.Int64
}

// NewMockChatHandler creates a new MockChatHandler.
func NewMockChatHandler() *MockChatHandler {
	return &MockChatHandler{}
}

// NewConversation returns a fresh numbered handle unless overridden.
func (m *MockChatHandler) NewConversation(ctx context.Context) (session.ConversationHandle, error) {
	if m.NewConversationFunc != nil {
		return m.NewConversationFunc(ctx)
	}
	return m.conversations.Add(1), nil
}

// Conversations reports how many default handles were created.
func (m *MockChatHandler) Conversations() int64 {
	return m.conversations.Load()
}

// Chat echoes the message unless overridden.
func (m *MockChatHandler) Chat(ctx context.Context, handle session.ConversationHandle, message string) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, handle, message)
	}
	return "echo: " + message, nil
}

// MockSummarizer is a mock implementation of ContentSummarizer and
// VideoSummarizer for testing. It records the URLs it was asked about.
type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, url, mode string) (string, error)

	mu   sync.Mutex
	urls []string
}

// NewMockSummarizer creates a new MockSummarizer.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize records the URL and returns a canned summary unless overridden.
func (m *MockSummarizer) Summarize(ctx context.Context, url, mode string) (string, error) {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, url, mode)
	}
	return "summary of " + url, nil
}

// URLs returns the URLs seen so far.
func (m *MockSummarizer) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.urls))
	copy(out, m.urls)
	return out
}

// MockImageAnalyzer is a mock implementation of ImageAnalyzer for testing.
type MockImageAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, data []byte, prompt string) (string, error)
}

// Analyze returns a canned description unless overridden.
func (m *MockImageAnalyzer) Analyze(ctx context.Context, data []byte, prompt string) (string, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, data, prompt)
	}
	return "image description", nil
}

// MockLocationSearcher is a mock implementation of LocationSearcher for
// testing.
type MockLocationSearcher struct {
	SearchFunc func(ctx context.Context, lat, lon float64, placeType string) (string, error)
}

// Search returns a canned result unless overridden.
func (m *MockLocationSearcher) Search(ctx context.Context, lat, lon float64, placeType string) (string, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, lat, lon, placeType)
	}
	return "places near you", nil
}

// MockRepoDigester is a mock implementation of RepoDigester for testing.
type MockRepoDigester struct {
	DigestFunc func(ctx context.Context) (string, error)
}

// Digest returns a canned digest unless overridden.
func (m *MockRepoDigester) Digest(ctx context.Context) (string, error) {
	if m.DigestFunc != nil {
		return m.DigestFunc(ctx)
	}
	return "repo digest", nil
}

var (
	_ ChatHandler       = (*MockChatHandler)(nil)
	_ ContentSummarizer = (*MockSummarizer)(nil)
	_ VideoSummarizer   = (*MockSummarizer)(nil)
	_ ImageAnalyzer     = (*MockImageAnalyzer)(nil)
	_ LocationSearcher  = (*MockLocationSearcher)(nil)
	_ RepoDigester      = (*MockRepoDigester)(nil)
)
