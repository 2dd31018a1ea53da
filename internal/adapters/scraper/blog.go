package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"echoly/internal/domain"
	"echoly/internal/infra/metrics"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

// Blog выгружает основной текст статьи по URL.
type Blog struct {
	client    *http.Client
	userAgent string
}

var _ domain.Scraper = (*Blog)(nil)

// NewBlog создаёт скрейпер. Таймаут ограничивает весь запрос целиком.
func NewBlog(timeout time.Duration, userAgent string) *Blog {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0"
	}
	return &Blog{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Scrape скачивает страницу, вырезает навигацию и служебные элементы и
// возвращает первый непустой текст из article, затем main, затем body.
// Пустой результат не считается ошибкой: длину проверяет конвейер.
func (b *Blog) Scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("скрейпинг: build request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)

	start := time.Now()
	resp, err := b.client.Do(req)
	metrics.ObserveNetworkRequest("scraper", "fetch", "blog", start, err)
	if err != nil {
		return "", fmt.Errorf("скрейпинг %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("скрейпинг %s: статус %s", url, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("скрейпинг %s: разбор html: %w", url, err)
	}

	doc.Find("nav, footer, script, style").Remove()

	for _, selector := range []string{"article", "main", "body"} {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return whitespaceExpr.ReplaceAllString(text, " "), nil
		}
	}
	return "", nil
}
