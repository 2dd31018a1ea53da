package generate

import (
	"context"
	"fmt"
	"strings"
)

const imagePromptSystem = "You are a professional prompt engineer. Return ONLY a 20-word visual description. DO NOT use quotes, DO NOT use bolding, DO NOT say 'Here is your prompt'. Just raw text."

var imagePromptScrubber = strings.NewReplacer(`"`, "", "'", "", "*", "", "#", "", "\n", " ")

// ImagePrompt строит короткое визуальное описание для генерации
// изображения по содержимому черновика.
func (g *Generator) ImagePrompt(ctx context.Context, content string) (string, error) {
	raw, err := g.completer.Complete(ctx, imagePromptSystem, "Context: "+content)
	if err != nil {
		return "", fmt.Errorf("визуальный промпт: %w", err)
	}
	return strings.TrimSpace(imagePromptScrubber.Replace(raw)), nil
}
