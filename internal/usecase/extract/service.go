package extract

import (
	"context"
	"errors"
	"fmt"
	"os"

	"echoly/internal/domain"
)

// Service реализует извлечение текста из всех видов источников.
// Временные файлы принадлежат одному запуску и удаляются на любом
// пути выхода, включая ошибочный.
type Service struct {
	scraper     domain.Scraper
	downloader  domain.Downloader
	transcriber domain.Transcriber
	storage     domain.ObjectStorage
	tempBase    string
}

var _ domain.Extractor = (*Service)(nil)

// NewService создаёт извлекатель. tempBase — базовый каталог для
// временных файлов; каждый запуск получает собственный подкаталог.
func NewService(scraper domain.Scraper, downloader domain.Downloader, transcriber domain.Transcriber, storage domain.ObjectStorage, tempBase string) *Service {
	if tempBase == "" {
		tempBase = os.TempDir()
	}
	return &Service{
		scraper:     scraper,
		downloader:  downloader,
		transcriber: transcriber,
		storage:     storage,
		tempBase:    tempBase,
	}
}

// Extract выбирает ветку по типу источника и возвращает извлечённый текст.
// Промежуточные статусы подэтапов отправляются в sink.
func (s *Service) Extract(ctx context.Context, src domain.Source, sink domain.EventSink) (domain.ExtractedText, error) {
	switch src.Kind {
	case domain.SourceText:
		return domain.ExtractedText{Kind: src.Kind, Text: src.Body, SourceURL: "TEXT_INPUT"}, nil
	case domain.SourceBlog:
		return s.extractBlog(ctx, src, sink)
	case domain.SourceYouTube:
		return s.extractYouTube(ctx, src, sink)
	case domain.SourceFile:
		return s.extractFile(ctx, src, sink)
	default:
		return domain.ExtractedText{}, &domain.ExtractionError{Err: fmt.Errorf("неизвестный тип источника %q", src.Kind)}
	}
}

func (s *Service) extractBlog(ctx context.Context, src domain.Source, sink domain.EventSink) (domain.ExtractedText, error) {
	_ = sink.Send(domain.ProgressEvent{Status: "Scraping Blog Content...", Progress: 10})
	text, err := s.scraper.Scrape(ctx, src.URL)
	if err != nil {
		return domain.ExtractedText{}, &domain.ExtractionError{Err: err}
	}
	return domain.ExtractedText{Kind: src.Kind, Text: text, SourceURL: src.URL}, nil
}

func (s *Service) extractYouTube(ctx context.Context, src domain.Source, sink domain.EventSink) (domain.ExtractedText, error) {
	_ = sink.Send(domain.ProgressEvent{Status: "Downloading YouTube Audio...", Progress: 10})

	runDir, err := os.MkdirTemp(s.tempBase, "run-")
	if err != nil {
		return domain.ExtractedText{}, &domain.ExtractionError{Err: fmt.Errorf("временный каталог: %w", err)}
	}
	defer os.RemoveAll(runDir)

	audioPath, err := s.downloader.DownloadAudio(ctx, src.URL, runDir)
	if err != nil {
		return domain.ExtractedText{}, &domain.ExtractionError{Err: err}
	}

	_ = sink.Send(domain.ProgressEvent{Status: "Transcribing Video Content...", Progress: 15})
	text, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return domain.ExtractedText{}, &domain.ExtractionError{Err: err}
	}
	return domain.ExtractedText{Kind: src.Kind, Text: text, SourceURL: src.URL}, nil
}

func (s *Service) extractFile(ctx context.Context, src domain.Source, sink domain.EventSink) (domain.ExtractedText, error) {
	if src.Upload == nil {
		return domain.ExtractedText{}, &domain.ExtractionError{Err: errors.New("источник FILE без файла")}
	}
	defer os.Remove(src.Upload.Path)

	_ = sink.Send(domain.ProgressEvent{Status: "Uploading Audio to Cloud...", Progress: 10})
	obj, err := s.storage.Upload(ctx, src.Upload.Path, src.Upload.OriginalName)
	if err != nil {
		return domain.ExtractedText{}, &domain.ExtractionError{Err: err}
	}

	_ = sink.Send(domain.ProgressEvent{Status: "Transcribing with AI...", Progress: 15})
	text, err := s.transcriber.Transcribe(ctx, src.Upload.Path)
	if err != nil {
		return domain.ExtractedText{}, &domain.ExtractionError{Err: err}
	}
	return domain.ExtractedText{Kind: src.Kind, Text: text, SourceURL: obj.URL, ObjectKey: obj.Key}, nil
}
