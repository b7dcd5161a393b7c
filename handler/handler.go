// Package handler defines the external collaborator interfaces the
// orchestrator dispatches to, plus concrete implementations backed by
// OpenAI-compatible chat completion APIs and plain HTTP services.
package handler

import (
	"context"

	"github.com/hrygo/botweaver/session"
)

// Summary modes accepted by the content and video handlers.
const (
	ModeShort    = "short"
	ModeNormal   = "normal"
	ModeDetailed = "detailed"
)

// ChatHandler carries a stateful conversation. NewConversation produces the
// opaque handle the session store owns; Chat continues the dialogue held by
// that handle.
type ChatHandler interface {
	NewConversation(ctx context.Context) (session.ConversationHandle, error)
	Chat(ctx context.Context, handle session.ConversationHandle, message string) (string, error)
}

// ContentSummarizer summarizes the content behind a non-video URL.
type ContentSummarizer interface {
	Summarize(ctx context.Context, url, mode string) (string, error)
}

// VideoSummarizer summarizes a video-hosting URL.
type VideoSummarizer interface {
	Summarize(ctx context.Context, url, mode string) (string, error)
}

// ImageAnalyzer describes the content of an inbound image.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, data []byte, prompt string) (string, error)
}

// LocationSearcher finds nearby places of a given type.
type LocationSearcher interface {
	Search(ctx context.Context, lat, lon float64, placeType string) (string, error)
}

// RepoDigester produces a digest of recent repository activity.
type RepoDigester interface {
	Digest(ctx context.Context) (string, error)
}

// Set bundles one handler per intent kind for the dispatcher. Entries may be
// nil when a deployment does not configure that capability; dispatching to a
// nil handler yields a failed outcome, never a panic.
type Set struct {
	Chat     ChatHandler
	Content  ContentSummarizer
	Video    VideoSummarizer
	Image    ImageAnalyzer
	Location LocationSearcher
	Repo     RepoDigester
}
