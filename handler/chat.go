package handler

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/botweaver/session"
)

const defaultChatModel = openai.GPT4oMini

// ChatConfig holds configuration for the OpenAI-backed chat handler.
type ChatConfig struct {
	APIKey       string
	BaseURL      string // Optional OpenAI-compatible endpoint
	Model        string // Default: gpt-4o-mini
	SystemPrompt string // Optional persona prompt for new conversations
	MaxTokens    int
}

// OpenAIChat implements ChatHandler on an OpenAI-compatible chat completion
// API. Each conversation handle carries its own message context so the model
// sees the full dialogue on every turn.
type OpenAIChat struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int
}

// NewOpenAIChat creates a chat handler from the given configuration.
func NewOpenAIChat(cfg ChatConfig) *OpenAIChat {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultChatModel
	}

	return &OpenAIChat{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
	}
}

// conversation is the opaque handle stored in the session store. The mutex
// guards the message slice against concurrent chat turns on one session.
type conversation struct {
	mu       sync.Mutex
	messages []openai.ChatCompletionMessage
}

// NewConversation starts a fresh dialogue context.
func (h *OpenAIChat) NewConversation(_ context.Context) (session.ConversationHandle, error) {
	conv := &conversation{}
	if h.systemPrompt != "" {
		conv.messages = append(conv.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: h.systemPrompt,
		})
	}
	return conv, nil
}

// Chat sends one user turn on the given conversation and returns the model
// reply. A failed completion leaves the conversation context unchanged.
func (h *OpenAIChat) Chat(ctx context.Context, handle session.ConversationHandle, message string) (string, error) {
	conv, ok := handle.(*conversation)
	if !ok {
		return "", errors.Errorf("unexpected conversation handle type %T", handle)
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	messages := append(conv.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     h.model,
		MaxTokens: h.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	reply := resp.Choices[0].Message.Content
	conv.messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})
	return reply, nil
}

var _ ChatHandler = (*OpenAIChat)(nil)
