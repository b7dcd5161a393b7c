package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Messenger delivers replies back to the chat platform and fetches message
// attachments. The webhook handler only depends on this interface.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	GetContent(ctx context.Context, messageID string) ([]byte, error)
}

const (
	lineReplyURL   = "https://api.line.me/v2/bot/message/reply"
	lineContentURL = "https://api-data.line.me/v2/bot/message/%s/content"

	// maxReplyLength is the platform's per-message limit in characters.
	maxReplyLength = 5000
	// replyLengthBuffer keeps split chunks comfortably under the limit.
	replyLengthBuffer = 100
	// maxReplyMessages is the platform's per-reply message count limit.
	maxReplyMessages = 5
	// maxContentBytes caps attachment downloads.
	maxContentBytes = 10 << 20
)

// LineMessenger implements Messenger against the LINE Messaging API.
type LineMessenger struct {
	http        *http.Client
	accessToken string
	replyURL    string
	contentURL  string
}

// LineMessengerConfig holds configuration for the LINE messenger.
type LineMessengerConfig struct {
	AccessToken string
	ReplyURL    string // Override for tests
	ContentURL  string // Override for tests
	HTTPTimeout time.Duration
}

// NewLineMessenger creates a messenger from the configuration.
func NewLineMessenger(cfg LineMessengerConfig) *LineMessenger {
	replyURL := cfg.ReplyURL
	if replyURL == "" {
		replyURL = lineReplyURL
	}
	contentURL := cfg.ContentURL
	if contentURL == "" {
		contentURL = lineContentURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LineMessenger{
		http:        &http.Client{Timeout: timeout},
		accessToken: cfg.AccessToken,
		replyURL:    replyURL,
		contentURL:  contentURL,
	}
}

// Reply sends the text using the reply token of the inbound event. Text over
// the length limit is split into multiple messages at paragraph boundaries.
func (m *LineMessenger) Reply(ctx context.Context, replyToken, text string) error {
	messages := make([]map[string]string, 0, maxReplyMessages)
	for _, chunk := range splitReplyText(text) {
		messages = append(messages, map[string]string{"type": "text", "text": chunk})
	}

	payload, err := json.Marshal(map[string]any{
		"replyToken": replyToken,
		"messages":   messages,
	})
	if err != nil {
		return errors.Wrap(err, "marshal reply")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.replyURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build reply request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send reply")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("send reply: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// splitReplyText splits reply text into per-message chunks. Short text is a
// single chunk; longer text is accumulated paragraph by paragraph so no chunk
// exceeds the limit, and at most maxReplyMessages chunks are kept. Lengths
// count runes, since the platform limit is characters, so a CJK reply is
// never cut mid-rune.
func splitReplyText(text string) []string {
	const limit = maxReplyLength - replyLengthBuffer
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	current := ""
	for _, paragraph := range strings.Split(text, "\n\n") {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(paragraph)+2 > limit {
			if current != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			// A single paragraph over the limit is cut on a rune boundary.
			current = truncateRunes(paragraph, limit)
			continue
		}
		if current != "" {
			current += "\n\n"
		}
		current += paragraph
	}
	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	if len(chunks) > maxReplyMessages {
		chunks = chunks[:maxReplyMessages]
	}
	return chunks
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

// GetContent downloads the binary content of a message attachment.
func (m *LineMessenger) GetContent(ctx context.Context, messageID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(m.contentURL, messageID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build content request")
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch content")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch content: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
}

var _ Messenger = (*LineMessenger)(nil)
