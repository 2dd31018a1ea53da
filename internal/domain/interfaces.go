package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventSink принимает события прогресса одного запуска конвейера.
// Порядок вызовов Send сохраняется на проводе.
type EventSink interface {
	Send(ev ProgressEvent) error
}

// Extractor превращает источник в извлечённый текст. Промежуточные
// статусы подэтапов (загрузка, транскрипция, скрейпинг) отправляются в sink.
type Extractor interface {
	Extract(ctx context.Context, src Source, sink EventSink) (ExtractedText, error)
}

// DraftGenerator создаёт черновик для одной платформы.
type DraftGenerator interface {
	Generate(ctx context.Context, platform PlatformSpec, text, tone string) (string, error)
}

// Completer — внешняя способность дополнения текста (LLM).
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Transcriber превращает локальный аудиофайл в текст.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Downloader скачивает аудиодорожку видео во временный каталог
// и возвращает путь к файлу.
type Downloader interface {
	DownloadAudio(ctx context.Context, url, destDir string) (string, error)
}

// Scraper выгружает основной текст статьи по URL.
// Пустая строка без ошибки допустима: валидация длины выполняется конвейером.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// StoredObject — загруженный в постоянное хранилище объект.
type StoredObject struct {
	Key string
	URL string
}

// ObjectStorage хранит загруженные пользователями медиафайлы.
type ObjectStorage interface {
	Upload(ctx context.Context, localPath, originalName string) (StoredObject, error)
	Remove(ctx context.Context, key string) error
}

// ProjectRepo управляет сохранёнными проектами.
type ProjectRepo interface {
	Save(ctx context.Context, project Project) (Project, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Project, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (Project, error)
	DeleteByID(ctx context.Context, id, userID uuid.UUID) error
	RemoveAsset(ctx context.Context, id, userID uuid.UUID, platform string) (Project, error)
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) error
}

// UserRepo управляет пользователями.
type UserRepo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

// Cache используется для простых TTL-хранилищ и блокировок.
type Cache interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
