// Package intent classifies inbound chat messages into ordered lists of
// detected intents. Classification is purely rule-based and never fails: a
// message that matches nothing is a plain chat intent.
package intent

// Kind represents the type of a detected intent.
type Kind string

const (
	// KindCommand is an exclusive system command such as /clear or /help.
	KindCommand Kind = "command"
	// KindContentSummary requests summarization of a non-video URL.
	KindContentSummary Kind = "content_summary"
	// KindVideoSummary requests summarization of a video-hosting URL.
	KindVideoSummary Kind = "video_summary"
	// KindImageAnalysis requests analysis of an inbound image.
	KindImageAnalysis Kind = "image_analysis"
	// KindLocationSearch requests a nearby-place search.
	KindLocationSearch Kind = "location_search"
	// KindRepoDigest requests a repository issue digest.
	KindRepoDigest Kind = "repo_digest"
	// KindChat is free-form conversation, the implicit fallback.
	KindChat Kind = "chat"
)

// Payload keys used by the classifier and dispatcher.
const (
	PayloadCommand = "command"
	PayloadURL     = "url"
	PayloadMessage = "message"
)

// Intent is one detected unit of work extracted from an inbound message.
// Confidence is informational only and never gates dispatch.
type Intent struct {
	Kind       Kind
	Confidence float32
	Payload    map[string]string
}
