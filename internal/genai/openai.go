package genai

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChat adapts the SDK chat completion service to chatService.
type openaiChat struct {
	svc *openai.ChatCompletionService
}

func newOpenAIChat(apiKey, baseURL string, timeout time.Duration) *openaiChat {
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
	cli := openai.NewClient(opts...)
	return &openaiChat{svc: &cli.Chat.Completions}
}

func (o *openaiChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := o.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

func (c *Client) completeOpenAI(ctx context.Context, instruction string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(instruction),
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
	}
	if c.temperature != nil {
		params.Temperature = openai.Float(*c.temperature)
	}

	resp, err := c.chat.Create(ctx, params)
	c.writeDebug("Complete", params, resp, err)
	if err != nil {
		return "", wrapProviderError(ProviderOpenAI, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoTextContent
	}
	return resp.Choices[0].Message.Content, nil
}
