package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultMaxTokens   = 600
	defaultTemperature = 0.2
)

type openAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIClient builds a completion client against any OpenAI-compatible
// chat endpoint. Output length and decoding temperature are fixed at
// construction; the answers are meant to be near-deterministic.
func NewOpenAIClient(opts Options) (Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("completion api key not set")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	return &openAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

func (c *openAIClient) Generate(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	req.Messages = make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}

	return resp.Choices[0].Message.Content, nil
}
