package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/net/html"
)

const (
	// maxPageBytes caps how much of a fetched page is read.
	maxPageBytes = 1 << 20
	// maxExtractChars caps how much extracted text is sent for summarization.
	maxExtractChars = 12000
)

// ContentConfig holds configuration for the URL content summarizer.
type ContentConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	HTTPTimeout time.Duration // Default: 30s
	UserAgent   string
}

// URLContent implements ContentSummarizer by fetching a page, extracting its
// readable text, and summarizing it with a chat completion call.
type URLContent struct {
	client    *openai.Client
	http      *http.Client
	model     string
	userAgent string
}

// NewURLContent creates a content summarizer from the given configuration.
func NewURLContent(cfg ContentConfig) *URLContent {
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
	return &URLContent{
		client:    openai.NewClientWithConfig(clientConfig),
		http:      &http.Client{Timeout: timeout},
		model:     model,
		userAgent: cfg.UserAgent,
	}
}

// Summarize fetches url and returns a summary in the requested mode.
func (h *URLContent) Summarize(ctx context.Context, url, mode string) (string, error) {
	title, text, err := h.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.Errorf("no readable text extracted from %s", url)
	}
	if len(text) > maxExtractChars {
		text = text[:maxExtractChars]
	}
	return h.summarize(ctx, title, text, mode)
}

// Title fetches only the page title, used when bookmarking without a summary.
func (h *URLContent) Title(ctx context.Context, url string) (string, error) {
	title, _, err := h.fetch(ctx, url)
	return title, err
}

func (h *URLContent) fetch(ctx context.Context, url string) (title, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", errors.Wrap(err, "build request")
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return "", "", errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", errors.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", errors.Wrapf(err, "parse %s", url)
	}

	title, text = extractReadable(doc)
	return title, text, nil
}

// extractReadable walks the parsed document collecting the title and the
// visible text, skipping script/style/nav subtrees.
func extractReadable(doc *html.Node) (title, text string) {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "footer", "iframe":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, sb.String()
}

func (h *URLContent) summarize(ctx context.Context, title, text, mode string) (string, error) {
	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: h.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryInstruction(mode)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("標題：%s\n\n內文：\n%s", title, text)},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "summary completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("summary completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func summaryInstruction(mode string) string {
	switch mode {
	case ModeShort:
		return "你是內容摘要助手。請用三句話以內摘要以下內容，使用繁體中文。"
	case ModeDetailed:
		return "你是內容摘要助手。請詳細摘要以下內容，列出重點條目與結論，使用繁體中文。"
	default:
		return "你是內容摘要助手。請摘要以下內容的重點，使用繁體中文。"
	}
}

var _ ContentSummarizer = (*URLContent)(nil)
