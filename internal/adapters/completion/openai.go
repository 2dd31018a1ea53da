package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"echoly/internal/domain"
	openai "echoly/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI реализует domain.Completer через Chat Completions.
type OpenAI struct {
	client      chatClient
	model       string
	temperature float64
	timeout     time.Duration
}

var _ domain.Completer = (*OpenAI)(nil)

// NewOpenAI создаёт провайдера дополнения текста.
func NewOpenAI(client chatClient, model string, temperature float64, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAI{client: client, model: model, temperature: temperature, timeout: timeout}
}

// Complete отправляет системную инструкцию и пользовательский текст модели.
func (c *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: system},
			{Role: openai.RoleUser, Content: user},
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion: пустой ответ модели")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
