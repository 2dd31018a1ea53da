package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapePrefersArticle(t *testing.T) {
	srv := serve(t, `<html><body><nav>меню</nav><article>Главный текст статьи</article><main>второстепенное</main></body></html>`)
	b := NewBlog(5*time.Second, "")
	text, err := b.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if text != "Главный текст статьи" {
		t.Fatalf("ожидали текст article, получили %q", text)
	}
}

func TestScrapeFallsBackToMain(t *testing.T) {
	srv := serve(t, `<html><body><main>Контент в main</main><p>прочее</p></body></html>`)
	b := NewBlog(5*time.Second, "")
	text, err := b.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if text != "Контент в main" {
		t.Fatalf("ожидали текст main, получили %q", text)
	}
}

func TestScrapeFallsBackToBody(t *testing.T) {
	srv := serve(t, `<html><body><p>Просто абзац текста</p></body></html>`)
	b := NewBlog(5*time.Second, "")
	text, err := b.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(text, "Просто абзац текста") {
		t.Fatalf("ожидали текст body, получили %q", text)
	}
}

func TestScrapeStripsJunk(t *testing.T) {
	srv := serve(t, `<html><body><article>Статья<script>var x=1;</script><style>.a{}</style><footer>подвал</footer></article></body></html>`)
	b := NewBlog(5*time.Second, "")
	text, err := b.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if strings.Contains(text, "var x") || strings.Contains(text, "подвал") {
		t.Fatalf("служебные элементы не вырезаны: %q", text)
	}
}

func TestScrapeSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><article>текст</article></body></html>`))
	}))
	defer srv.Close()

	b := NewBlog(5*time.Second, "Mozilla/5.0")
	if _, err := b.Scrape(context.Background(), srv.URL); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if gotUA != "Mozilla/5.0" {
		t.Fatalf("ожидали подменённый User-Agent, получили %q", gotUA)
	}
}

func TestScrapeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	b := NewBlog(5*time.Second, "")
	if _, err := b.Scrape(context.Background(), srv.URL); err == nil {
		t.Fatal("ожидали ошибку на статус 403")
	}
}
