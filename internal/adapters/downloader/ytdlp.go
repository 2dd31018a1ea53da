package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"echoly/internal/domain"
	"echoly/internal/infra/metrics"
)

// YTDLP скачивает аудиодорожку видео через бинарь yt-dlp.
type YTDLP struct {
	binary  string
	timeout time.Duration
}

var _ domain.Downloader = (*YTDLP)(nil)

// NewYTDLP создаёт загрузчик. Путь к бинарю по умолчанию берётся из PATH.
func NewYTDLP(binary string, timeout time.Duration) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &YTDLP{binary: binary, timeout: timeout}
}

// DownloadAudio извлекает mp3-дорожку в destDir и возвращает путь к файлу.
func (d *YTDLP) DownloadAudio(ctx context.Context, url, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out := filepath.Join(destDir, fmt.Sprintf("yt-%d.mp3", time.Now().UnixNano()))
	cmd := exec.CommandContext(ctx, d.binary,
		"--extract-audio",
		"--audio-format", "mp3",
		"--output", out,
		"--no-playlist",
		url,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ObserveNetworkRequest("ytdlp", "download_audio", "youtube", start, err)
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return "", fmt.Errorf("yt-dlp: %s: %w", msg, err)
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("yt-dlp: аудиофайл не создан: %w", err)
	}
	return out, nil
}
