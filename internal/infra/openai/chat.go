package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"chaos-car/internal/llm"
)

const DefaultChatModel = "gpt-4o-mini"

// ChatClient completes prompts with the chat completions API. Retries are
// left to the caller so attempts stay visible in the extraction result.
type ChatClient struct {
	client openai.Client
	model  string
}

func NewChatClient(apiKey, model string) *ChatClient {
	return NewChatClientWithURL(apiKey, model, "")
}

func NewChatClientWithURL(apiKey, model, baseURL string) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ChatClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *ChatClient) Name() string {
	return "openai"
}

func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:               openai.ChatModel(c.model),
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(150),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyCompletion
	}
	return content, nil
}
