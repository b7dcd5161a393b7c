package handler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// VideoConfig holds configuration for the video summarizer.
type VideoConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	HTTPTimeout   time.Duration // Default: 30s
	TranscriptURL string        // Caption endpoint template, default: YouTube timedtext
	Language      string        // Caption language, default: "en"
}

const defaultTranscriptURL = "https://video.google.com/timedtext"

// YouTubeVideo implements VideoSummarizer by fetching the video's caption
// track and summarizing it with a chat completion call.
type YouTubeVideo struct {
	client        *openai.Client
	http          *http.Client
	model         string
	transcriptURL string
	language      string
}

// NewYouTubeVideo creates a video summarizer from the given configuration.
func NewYouTubeVideo(cfg VideoConfig) *YouTubeVideo {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultChatModel
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transcriptURL := cfg.TranscriptURL
	if transcriptURL == "" {
		transcriptURL = defaultTranscriptURL
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &YouTubeVideo{
		client:        openai.NewClientWithConfig(clientConfig),
		http:          &http.Client{Timeout: timeout},
		model:         model,
		transcriptURL: transcriptURL,
		language:      language,
	}
}

// Summarize fetches the caption track for videoURL and returns a summary in
// the requested mode.
func (h *YouTubeVideo) Summarize(ctx context.Context, videoURL, mode string) (string, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return "", err
	}

	transcript, err := h.fetchTranscript(ctx, videoID)
	if err != nil {
		return "", err
	}
	if len(transcript) > maxExtractChars {
		transcript = transcript[:maxExtractChars]
	}

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: h.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryInstruction(mode)},
			{Role: openai.ChatMessageRoleUser, Content: "以下是影片字幕逐字稿：\n" + transcript},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "video summary completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("video summary completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractVideoID pulls the video identifier out of the supported YouTube URL
// shapes (watch?v=, youtu.be/, shorts/, embed/).
func ExtractVideoID(videoURL string) (string, error) {
	u, err := url.Parse(videoURL)
	if err != nil {
		return "", errors.Wrapf(err, "parse video url %s", videoURL)
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
	case "youtube.com", "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				if id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/"); id != "" {
					return id, nil
				}
			}
		}
	}
	return "", errors.Errorf("no video id in %s", videoURL)
}

// timedText mirrors the caption XML returned by the timedtext endpoint.
type timedText struct {
	Texts []struct {
		Body string `xml:",chardata"`
	} `xml:"text"`
}

func (h *YouTubeVideo) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	endpoint := fmt.Sprintf("%s?lang=%s&v=%s", h.transcriptURL, url.QueryEscape(h.language), url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "build transcript request")
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "fetch transcript for %s", videoID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("fetch transcript for %s: unexpected status %d", videoID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", errors.Wrap(err, "read transcript body")
	}

	var captions timedText
	if err := xml.Unmarshal(body, &captions); err != nil {
		return "", errors.Wrapf(err, "parse transcript for %s", videoID)
	}
	if len(captions.Texts) == 0 {
		return "", errors.Errorf("no captions available for %s", videoID)
	}

	var sb strings.Builder
	for _, t := range captions.Texts {
		if trimmed := strings.TrimSpace(t.Body); trimmed != "" {
			sb.WriteString(trimmed)
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

var _ VideoSummarizer = (*YouTubeVideo)(nil)
