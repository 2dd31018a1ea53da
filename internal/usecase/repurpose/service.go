package repurpose

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echoly/internal/domain"
	"echoly/internal/infra/metrics"
)

// Service — оркестратор конвейера: извлечение, валидация, последовательная
// генерация по платформам, сохранение проекта. Платформы обходятся строго
// по порядку и без параллелизма: так соблюдаются внешние лимиты запросов,
// а прогресс растёт монотонно.
type Service struct {
	extractor domain.Extractor
	generator domain.DraftGenerator
	projects  domain.ProjectRepo
	platforms []domain.PlatformSpec
	delay     time.Duration
	minLen    int
	now       func() time.Time
	log       zerolog.Logger
}

// RunInput описывает один запуск конвейера.
type RunInput struct {
	UserID uuid.UUID
	Source domain.Source
	Tone   string
}

// NewService создаёт оркестратор. delay — пауза между вызовами генерации,
// minLen — минимальная длина извлечённого текста в рунах.
func NewService(extractor domain.Extractor, generator domain.DraftGenerator, projects domain.ProjectRepo, platforms []domain.PlatformSpec, delay time.Duration, minLen int, logger zerolog.Logger) *Service {
	if minLen <= 0 {
		minLen = 10
	}
	return &Service{
		extractor: extractor,
		generator: generator,
		projects:  projects,
		platforms: platforms,
		delay:     delay,
		minLen:    minLen,
		now:       time.Now,
		log:       logger,
	}
}

// Run выполняет запуск от начала до конца. Любая терминальная ошибка
// отправляется в sink ровно одним событием error; частично сгенерированные
// черновики при этом не сохраняются.
func (s *Service) Run(ctx context.Context, in RunInput, sink domain.EventSink) error {
	start := s.now()
	err := s.run(ctx, in, sink)
	metrics.PipelineRunSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IncPipelineRun("error")
		s.log.Error().Err(err).Str("user", in.UserID.String()).Str("source", string(in.Source.Kind)).Msg("конвейер: запуск завершился ошибкой")
		_ = sink.Send(domain.ProgressEvent{Error: err.Error()})
		return err
	}
	metrics.IncPipelineRun("success")
	return nil
}

func (s *Service) run(ctx context.Context, in RunInput, sink domain.EventSink) error {
	if err := sink.Send(domain.ProgressEvent{Status: "Initializing Engine...", Progress: 5}); err != nil {
		return err
	}

	extractStart := s.now()
	extracted, err := s.extractor.Extract(ctx, in.Source, sink)
	metrics.ObservePipelineStage("extract", extractStart)
	if err != nil {
		return err
	}

	if utf8.RuneCountInString(extracted.Text) < s.minLen {
		return &domain.ValidationError{Err: domain.ErrSourceTooShort}
	}
	if err := sink.Send(domain.ProgressEvent{Status: "Source Verified. Starting AI Generation...", Progress: 20}); err != nil {
		return err
	}

	assets := make([]domain.GeneratedAsset, 0, len(s.platforms))
	bundle := make(map[string]string, len(s.platforms))

	generateStart := s.now()
	for i, platform := range s.platforms {
		// Отключившийся клиент отменяет контекст запроса: оставшиеся
		// платформы не генерируются, ресурсы освобождаются сразу.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("конвейер прерван: %w", err)
		}

		content, err := s.generator.Generate(ctx, platform, extracted.Text, in.Tone)
		if err != nil {
			return err
		}

		progress := 20 + int(math.Round(75*float64(i+1)/float64(len(s.platforms))))
		if err := sink.Send(domain.ProgressEvent{
			Status:   strings.ToUpper(platform.ID) + " Generated!",
			Progress: progress,
			PartialResult: &domain.PartialResult{
				Platform: strings.ToLower(platform.ID),
				Content:  content,
			},
		}); err != nil {
			return err
		}

		assets = append(assets, domain.GeneratedAsset{
			Platform:    strings.ToUpper(platform.ID),
			Content:     content,
			Status:      domain.AssetStatusCompleted,
			GeneratedAt: s.now().UTC(),
		})
		bundle[strings.ToLower(platform.ID)] = content

		if s.delay > 0 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				return fmt.Errorf("конвейер прерван: %w", err)
			}
		}
	}
	metrics.ObservePipelineStage("generate", generateStart)

	if err := sink.Send(domain.ProgressEvent{Status: "Saving to Vault...", Progress: 98}); err != nil {
		return err
	}

	persistStart := s.now()
	saved, err := s.projects.Save(ctx, domain.Project{
		UserID: in.UserID,
		Title:  titleFor(in.Source),
		Source: domain.ProjectSource{
			Type:          in.Source.Kind,
			URL:           extracted.SourceURL,
			ObjectKey:     extracted.ObjectKey,
			RawTranscript: extracted.Text,
		},
		Assets: assets,
	})
	metrics.ObservePipelineStage("persist", persistStart)
	if err != nil {
		return &domain.PersistenceError{Err: err}
	}

	return sink.Send(domain.ProgressEvent{
		Success:   true,
		Bundle:    bundle,
		ProjectID: saved.ID.String(),
		Progress:  100,
		Status:    "Mission Accomplished",
	})
}

// titleFor выводит заголовок проекта из источника: имя файла для загрузки,
// фиксированный заголовок для текста, усечённый URL для ссылок.
func titleFor(src domain.Source) string {
	switch src.Kind {
	case domain.SourceFile:
		if src.Upload != nil {
			return src.Upload.OriginalName
		}
		return "Uploaded Media"
	case domain.SourceText:
		return "Text Draft"
	default:
		runes := []rune(src.URL)
		if len(runes) > 30 {
			return string(runes[:30])
		}
		return src.URL
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
