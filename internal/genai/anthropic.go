package genai

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// messageService defines the minimal Anthropic Messages interface the client needs.
type messageService interface {
	Create(ctx context.Context, params anthropic.MessageNewParams) (anthropic.Message, error)
}

// anthropicMessages adapts the SDK message service to messageService.
type anthropicMessages struct {
	svc *anthropic.MessageService
}

func newAnthropicMessages(apiKey, baseURL string, timeout time.Duration) *anthropicMessages {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	cli := anthropic.NewClient(opts...)
	return &anthropicMessages{svc: &cli.Messages}
}

func (a *anthropicMessages) Create(ctx context.Context, params anthropic.MessageNewParams) (anthropic.Message, error) {
	msg, err := a.svc.New(ctx, params)
	if err != nil {
		return anthropic.Message{}, err
	}
	return *msg, nil
}

func (c *Client) completeAnthropic(ctx context.Context, instruction string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(instruction)),
		},
	}
	if c.temperature != nil {
		params.Temperature = anthropic.Float(*c.temperature)
	}

	resp, err := c.messages.Create(ctx, params)
	c.writeDebug("Complete", params, resp, err)
	if err != nil {
		return "", wrapProviderError(ProviderAnthropic, err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", ErrNoTextContent
}
