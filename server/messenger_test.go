package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineMessengerReply(t *testing.T) {
	var captured struct {
		auth string
		body map[string]any
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := NewLineMessenger(LineMessengerConfig{
		AccessToken: "token-abc",
		ReplyURL:    ts.URL,
	})

	err := m.Reply(context.Background(), "tok-1", "你好")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-abc", captured.auth)
	assert.Equal(t, "tok-1", captured.body["replyToken"])
	messages, ok := captured.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	message := messages[0].(map[string]any)
	assert.Equal(t, "text", message["type"])
	assert.Equal(t, "你好", message["text"])
}

func TestLineMessengerReplySplitsLongText(t *testing.T) {
	var gotTexts []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Text string `json:"text"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, message := range body.Messages {
			gotTexts = append(gotTexts, message.Text)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := NewLineMessenger(LineMessengerConfig{AccessToken: "t", ReplyURL: ts.URL})

	paragraph := strings.Repeat("段落內容，", 600) // 3000 runes
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph
	err := m.Reply(context.Background(), "tok", text)
	require.NoError(t, err)

	require.Len(t, gotTexts, 3)
	for _, delivered := range gotTexts {
		assert.True(t, utf8.ValidString(delivered))
		assert.LessOrEqual(t, utf8.RuneCountInString(delivered), maxReplyLength)
	}
}

func TestSplitReplyText(t *testing.T) {
	t.Run("ShortTextIsOneChunk", func(t *testing.T) {
		chunks := splitReplyText("短訊息")
		assert.Equal(t, []string{"短訊息"}, chunks)
	})

	t.Run("SplitsAtParagraphBoundaries", func(t *testing.T) {
		paragraph := strings.Repeat("字", 3000)
		chunks := splitReplyText(paragraph + "\n\n" + paragraph)
		require.Len(t, chunks, 2)
		assert.Equal(t, paragraph, chunks[0])
		assert.Equal(t, paragraph, chunks[1])
	})

	t.Run("CJKNeverCutMidRune", func(t *testing.T) {
		// A single unsplittable CJK paragraph longer than the limit must be
		// cut on a rune boundary, never a byte index.
		chunks := splitReplyText(strings.Repeat("蛤", maxReplyLength+500))
		require.Len(t, chunks, 1)
		assert.True(t, utf8.ValidString(chunks[0]))
		assert.Equal(t, maxReplyLength-replyLengthBuffer, utf8.RuneCountInString(chunks[0]))
	})

	t.Run("CapsAtFiveMessages", func(t *testing.T) {
		paragraph := strings.Repeat("字", 4800)
		parts := make([]string, 8)
		for i := range parts {
			parts[i] = paragraph
		}
		chunks := splitReplyText(strings.Join(parts, "\n\n"))
		assert.Len(t, chunks, maxReplyMessages)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(chunk), maxReplyLength)
		}
	})
}

func TestLineMessengerReplyErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid reply token"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	m := NewLineMessenger(LineMessengerConfig{AccessToken: "t", ReplyURL: ts.URL})

	err := m.Reply(context.Background(), "tok", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "invalid reply token")
}

func TestLineMessengerGetContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/m99/content", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Write([]byte("binary-image"))
	}))
	defer ts.Close()

	m := NewLineMessenger(LineMessengerConfig{
		AccessToken: "token-abc",
		ContentURL:  ts.URL + "/%s/content",
	})

	data, err := m.GetContent(context.Background(), "m99")
	require.NoError(t, err)
	assert.Equal(t, []byte("binary-image"), data)
}

func TestLineMessengerGetContentErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	m := NewLineMessenger(LineMessengerConfig{AccessToken: "t", ContentURL: ts.URL + "/%s"})

	_, err := m.GetContent(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
