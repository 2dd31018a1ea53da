package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"echoly/internal/domain"
)

const (
	// maxSourceRunes — префикс исходного текста, уходящий в модель.
	// Черновики строятся по началу источника, а не по полному тексту:
	// это ограничивает стоимость и латентность каждого вызова.
	maxSourceRunes = 1000
	maxAttempts    = 3
)

var headingExpr = regexp.MustCompile(`#+`)

// Generator создаёт черновики для платформ через внешнюю способность
// дополнения. Без состояния: повторные вызовы независимы.
type Generator struct {
	completer domain.Completer
	attempts  int
	baseDelay time.Duration
}

var _ domain.DraftGenerator = (*Generator)(nil)

// NewGenerator создаёт генератор. baseDelay — база линейного бэк-оффа
// при лимите запросов (2s → паузы 2s, 4s).
func NewGenerator(completer domain.Completer, baseDelay time.Duration) *Generator {
	return &Generator{completer: completer, attempts: maxAttempts, baseDelay: baseDelay}
}

// Generate строит черновик одной платформы. Повторяется только лимит
// запросов; любой другой сбой сразу становится GenerationError.
func (g *Generator) Generate(ctx context.Context, platform domain.PlatformSpec, text, tone string) (string, error) {
	system := fmt.Sprintf("%s Tone: %s. Be concise.", platform.Prompt, tone)
	user := clipRunes(text, maxSourceRunes)

	raw, err := withRetry(ctx, g.attempts, linearBackoff(g.baseDelay), isRateLimited, func(ctx context.Context) (string, error) {
		return g.completer.Complete(ctx, system, user)
	})
	if err != nil {
		return "", &domain.GenerationError{Platform: platform.ID, Err: err}
	}
	return stripMarkdown(raw), nil
}

func isRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// stripMarkdown нормализует ответ модели в плоский текст:
// убирает маркеры жирного начертания и заголовков.
func stripMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	return headingExpr.ReplaceAllString(text, "")
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
