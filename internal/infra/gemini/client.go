package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"chaos-car/internal/llm"
)

const DefaultModel = "gemini-2.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	return NewClientWithURL(ctx, apiKey, model, "")
}

// NewClientWithURL points the SDK at baseURL instead of the public endpoint.
// An empty baseURL keeps the default.
func NewClientWithURL(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Name() string {
	return "gemini"
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx,
		c.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
			MaxOutputTokens:   256,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrEmptyCompletion
	}
	return text, nil
}
