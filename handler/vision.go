package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

const defaultVisionPrompt = "請描述這張圖片的內容，使用繁體中文。如果圖片包含文字，請一併列出。"

// VisionConfig holds configuration for the image analysis handler.
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Model   string // Must be a multimodal model
}

// OpenAIVision implements ImageAnalyzer with a multimodal chat completion
// call carrying the image inline as a data URL.
type OpenAIVision struct {
	client *openai.Client
	model  string
}

// NewOpenAIVision creates an image analysis handler from the configuration.
func NewOpenAIVision(cfg VisionConfig) *OpenAIVision {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIVision{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// Analyze describes the given image bytes. An empty prompt falls back to the
// default description prompt.
func (h *OpenAIVision) Analyze(ctx context.Context, data []byte, prompt string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image data")
	}
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	mimeType := http.DetectContentType(data)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: h.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "image analysis completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("image analysis completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ ImageAnalyzer = (*OpenAIVision)(nil)
