package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"echoly/internal/domain"
	"echoly/internal/infra/metrics"
)

// Whisper реализует domain.Transcriber через OpenAI-совместимый
// endpoint транскрипции (whisper-large-v3 у Groq).
type Whisper struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ domain.Transcriber = (*Whisper)(nil)

// NewWhisper создаёт провайдера транскрипции.
func NewWhisper(apiKey, baseURL, model string, timeout time.Duration) *Whisper {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = "whisper-large-v3"
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Whisper{client: openai.NewClientWithConfig(clientConfig), model: model, timeout: timeout}
}

// Transcribe отправляет локальный аудиофайл и возвращает текст.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
	})
	metrics.ObserveNetworkRequest("whisper", "transcriptions", w.model, start, err)
	if err != nil {
		return "", fmt.Errorf("транскрипция %s: %w", audioPath, err)
	}
	return resp.Text, nil
}
