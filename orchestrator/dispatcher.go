package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/botweaver/handler"
	"github.com/hrygo/botweaver/intent"
	"github.com/hrygo/botweaver/session"
	"github.com/hrygo/botweaver/store"
)

// maxConcurrentIntents bounds the fan-out for one inbound message.
const maxConcurrentIntents = 4

// Options carries per-request dispatch parameters. Fields beyond Mode are
// only consulted by the intent kinds that need them.
type Options struct {
	// Mode selects the summarization mode (short/normal/detailed).
	Mode string

	// ImageData and Prompt feed image-analysis intents.
	ImageData []byte
	Prompt    string

	// Latitude, Longitude and PlaceType feed location-search intents.
	Latitude  float64
	Longitude float64
	PlaceType string
}

// Dispatcher routes intents to handlers. Chat intents consult the session
// store; command intents are handled locally; everything else is delegated
// to exactly one handler selected by intent kind.
type Dispatcher struct {
	sessions  *session.Store
	handlers  handler.Set
	bookmarks *store.Store // Optional; nil disables bookmark persistence
	sem       *semaphore.Weighted
}

// NewDispatcher creates a dispatcher over the given session store and
// handler set. bookmarks may be nil.
func NewDispatcher(sessions *session.Store, handlers handler.Set, bookmarks *store.Store) *Dispatcher {
	return &Dispatcher{
		sessions:  sessions,
		handlers:  handlers,
		bookmarks: bookmarks,
		sem:       semaphore.NewWeighted(maxConcurrentIntents),
	}
}

// Sessions exposes the underlying session store, used by callers that wire
// the cleanup job.
func (d *Dispatcher) Sessions() *session.Store {
	return d.sessions
}

// ProcessText classifies one inbound text message and dispatches the
// detected intents.
func (d *Dispatcher) ProcessText(ctx context.Context, userID, message string, opts Options) AggregatedResult {
	intents := intent.Classify(message)
	slog.Info("intents detected", "user_id", userID, "count", len(intents))
	return d.Dispatch(ctx, userID, intents, opts)
}

// ProcessImage dispatches a single image-analysis intent for an inbound
// image message.
func (d *Dispatcher) ProcessImage(ctx context.Context, userID string, data []byte, prompt string) AggregatedResult {
	opts := Options{ImageData: data, Prompt: prompt}
	intents := []intent.Intent{{Kind: intent.KindImageAnalysis, Confidence: 1.0, Payload: map[string]string{}}}
	return d.Dispatch(ctx, userID, intents, opts)
}

// ProcessLocation dispatches a single location-search intent for an inbound
// location message.
func (d *Dispatcher) ProcessLocation(ctx context.Context, userID string, lat, lon float64, placeType string) AggregatedResult {
	opts := Options{Latitude: lat, Longitude: lon, PlaceType: placeType}
	intents := []intent.Intent{{Kind: intent.KindLocationSearch, Confidence: 1.0, Payload: map[string]string{}}}
	return d.Dispatch(ctx, userID, intents, opts)
}

// Dispatch executes the given intents and aggregates their outcomes in the
// original intent order. A single intent runs inline; multiple intents run
// concurrently. One intent's failure never aborts its siblings, and the call
// always returns normally with per-outcome detail.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, intents []intent.Intent, opts Options) AggregatedResult {
	outcomes := make([]DispatchOutcome, len(intents))

	switch {
	case len(intents) == 0:
		// Nothing to do; classification normally guarantees at least one.
	case len(intents) == 1:
		outcomes[0] = d.executeSafe(ctx, userID, intents[0], opts)
	default:
		var wg sync.WaitGroup
		for i, it := range intents {
			wg.Add(1)
			go func(i int, it intent.Intent) {
				defer wg.Done()
				if err := d.sem.Acquire(ctx, 1); err != nil {
					outcomes[i] = failedOutcome(it.Kind, ErrCodeCanceled, "dispatch canceled", err)
					return
				}
				defer d.sem.Release(1)
				outcomes[i] = d.executeSafe(ctx, userID, it, opts)
			}(i, it)
		}
		wg.Wait()
	}

	overall := true
	for _, outcome := range outcomes {
		if !outcome.Succeeded {
			overall = false
			break
		}
	}
	return AggregatedResult{OverallSuccess: overall, Outcomes: outcomes}
}

// executeSafe runs one intent's handler, converting a panic into a failed
// outcome so sibling intents are never aborted.
func (d *Dispatcher) executeSafe(ctx context.Context, userID string, it intent.Intent, opts Options) (outcome DispatchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("intent handler panicked", "kind", it.Kind, "user_id", userID, "panic", r)
			outcome = failedOutcome(it.Kind, ErrCodeHandlerPanic, "handler panicked", nil)
		}
	}()
	return d.execute(ctx, userID, it, opts)
}

func (d *Dispatcher) execute(ctx context.Context, userID string, it intent.Intent, opts Options) DispatchOutcome {
	switch it.Kind {
	case intent.KindCommand:
		return d.executeCommand(ctx, userID, it.Payload[intent.PayloadCommand])

	case intent.KindChat:
		return d.executeChat(ctx, userID, it.Payload[intent.PayloadMessage])

	case intent.KindContentSummary:
		if d.handlers.Content == nil {
			return failedOutcome(it.Kind, ErrCodeHandlerMissing, "content summarizer not configured", nil)
		}
		url := it.Payload[intent.PayloadURL]
		summary, err := d.handlers.Content.Summarize(ctx, url, opts.Mode)
		if err != nil {
			return failedOutcome(it.Kind, ErrCodeHandlerFailed, "content summary failed", err)
		}
		d.saveBookmark(ctx, userID, url, summary, opts.Mode)
		return successOutcome(it.Kind, summary)

	case intent.KindVideoSummary:
		if d.handlers.Video == nil {
			return failedOutcome(it.Kind, ErrCodeHandlerMissing, "video summarizer not configured", nil)
		}
		url := it.Payload[intent.PayloadURL]
		summary, err := d.handlers.Video.Summarize(ctx, url, opts.Mode)
		if err != nil {
			return failedOutcome(it.Kind, ErrCodeHandlerFailed, "video summary failed", err)
		}
		d.saveBookmark(ctx, userID, url, summary, opts.Mode)
		return successOutcome(it.Kind, summary)

	case intent.KindImageAnalysis:
		if d.handlers.Image == nil {
			return failedOutcome(it.Kind, ErrCodeHandlerMissing, "image analyzer not configured", nil)
		}
		result, err := d.handlers.Image.Analyze(ctx, opts.ImageData, opts.Prompt)
		if err != nil {
			return failedOutcome(it.Kind, ErrCodeHandlerFailed, "image analysis failed", err)
		}
		return successOutcome(it.Kind, result)

	case intent.KindLocationSearch:
		if d.handlers.Location == nil {
			return failedOutcome(it.Kind, ErrCodeHandlerMissing, "location searcher not configured", nil)
		}
		result, err := d.handlers.Location.Search(ctx, opts.Latitude, opts.Longitude, opts.PlaceType)
		if err != nil {
			return failedOutcome(it.Kind, ErrCodeHandlerFailed, "location search failed", err)
		}
		return successOutcome(it.Kind, result)

	case intent.KindRepoDigest:
		if d.handlers.Repo == nil {
			return failedOutcome(it.Kind, ErrCodeHandlerMissing, "repo digester not configured", nil)
		}
		digest, err := d.handlers.Repo.Digest(ctx)
		if err != nil {
			return failedOutcome(it.Kind, ErrCodeHandlerFailed, "repo digest failed", err)
		}
		return successOutcome(it.Kind, digest)

	default:
		return failedOutcome(it.Kind, ErrCodeHandlerMissing, "unknown intent kind", nil)
	}
}

// executeChat obtains the user's conversation through the session store,
// delegates to the chat handler, and records both turns in history only
// after the handler succeeds.
func (d *Dispatcher) executeChat(ctx context.Context, userID, message string) DispatchOutcome {
	if d.handlers.Chat == nil {
		return failedOutcome(intent.KindChat, ErrCodeHandlerMissing, "chat handler not configured", nil)
	}

	sess, err := d.sessions.GetOrCreate(ctx, userID, d.handlers.Chat.NewConversation)
	if err != nil {
		return failedOutcome(intent.KindChat, ErrCodeFactoryFailed, "conversation factory failed", err)
	}

	reply, err := d.handlers.Chat.Chat(ctx, sess.Handle, message)
	if err != nil {
		return failedOutcome(intent.KindChat, ErrCodeHandlerFailed, "chat failed", err)
	}

	d.sessions.AppendHistory(userID, "user", message)
	d.sessions.AppendHistory(userID, "assistant", reply)
	return successOutcome(intent.KindChat, reply)
}

// saveBookmark persists a successful summary when bookmarking is enabled.
// Persistence failures degrade to a log line; the summary itself already
// succeeded.
func (d *Dispatcher) saveBookmark(ctx context.Context, userID, url, summary, mode string) {
	if d.bookmarks == nil {
		return
	}
	if _, err := d.bookmarks.CreateBookmark(ctx, &store.Bookmark{
		UserID:      userID,
		URL:         url,
		Summary:     summary,
		SummaryMode: mode,
	}); err != nil {
		slog.Warn("failed to save bookmark", "user_id", userID, "url", url, "error", err)
	}
}
