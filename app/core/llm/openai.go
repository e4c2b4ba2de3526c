package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lumen/app/core/voice"
)

// Client adapts the OpenAI chat completion API to the voice.Completer
// contract. A client built without an API key stays inert and reports
// voice.ErrCompleterNotConfigured on every call.
type Client struct {
	api        openai.Client
	model      string
	maxTokens  int64
	configured bool
}

func NewClient(apiKey string, model string, maxTokens int) *Client {
	return &Client{
		api:        openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		maxTokens:  int64(maxTokens),
		configured: strings.TrimSpace(apiKey) != "",
	}
}

func (c *Client) Complete(ctx context.Context, system string, history []voice.Turn, message string) (string, error) {
	if !c.configured {
		return "", voice.ErrCompleterNotConfigured
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range history {
		if turn.Role == voice.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Content))
			continue
		}
		messages = append(messages, openai.UserMessage(turn.Content))
	}
	messages = append(messages, openai.UserMessage(message))

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(c.maxTokens),
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "I couldn't generate a response.", nil
	}
	return completion.Choices[0].Message.Content, nil
}
