package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind определяет тип исходного контента.
type SourceKind string

const (
	// SourceText — текст, вставленный пользователем напрямую.
	SourceText SourceKind = "TEXT"
	// SourceBlog — ссылка на статью в блоге.
	SourceBlog SourceKind = "BLOG"
	// SourceYouTube — ссылка на видео YouTube.
	SourceYouTube SourceKind = "YOUTUBE"
	// SourceFile — загруженный аудио- или видеофайл.
	SourceFile SourceKind = "FILE"
)

// Upload описывает временный файл, принятый от клиента.
// Файл принадлежит одному запуску конвейера и удаляется этим же запуском.
type Upload struct {
	Path         string
	OriginalName string
}

// Source — источник контента для одного запуска конвейера.
// Заполнено ровно одно из полей Body/URL/Upload в зависимости от Kind.
type Source struct {
	Kind   SourceKind
	Body   string
	URL    string
	Upload *Upload
}

// ExtractedText — результат извлечения текста из источника.
type ExtractedText struct {
	Kind SourceKind
	Text string
	// SourceURL — постоянная ссылка на источник: исходный URL либо
	// ссылка на загруженный объект в хранилище.
	SourceURL string
	// ObjectKey — ключ объекта в хранилище, нужен для последующего удаления.
	ObjectKey string
}

// AssetStatusCompleted — статус готового черновика.
const AssetStatusCompleted = "COMPLETED"

// GeneratedAsset — черновик, сгенерированный для одной платформы.
type GeneratedAsset struct {
	Platform    string    `json:"platform"`
	Content     string    `json:"content"`
	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ProjectSource хранит описание источника внутри проекта.
type ProjectSource struct {
	Type          SourceKind `json:"type"`
	URL           string     `json:"url"`
	ObjectKey     string     `json:"objectKey,omitempty"`
	RawTranscript string     `json:"rawTranscript"`
}

// Project — итог одного успешного запуска конвейера.
type Project struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"-"`
	Title     string           `json:"title"`
	Source    ProjectSource    `json:"source"`
	Assets    []GeneratedAsset `json:"assets"`
	CreatedAt time.Time        `json:"createdAt"`
}

// User описывает зарегистрированного пользователя.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PlatformSpec — статическая конфигурация одной целевой платформы.
type PlatformSpec struct {
	ID     string
	Prompt string
}

// PartialResult — готовый черновик одной платформы внутри события прогресса.
type PartialResult struct {
	Platform string `json:"platform"`
	Content  string `json:"content"`
}

// ProgressEvent — одно событие канала прогресса. Поля опциональны:
// промежуточные события несут status/progress, финальное — success/bundle/projectId,
// ошибочное — только error.
type ProgressEvent struct {
	Status        string            `json:"status,omitempty"`
	Progress      int               `json:"progress,omitempty"`
	PartialResult *PartialResult    `json:"partialResult,omitempty"`
	Success       bool              `json:"success,omitempty"`
	Bundle        map[string]string `json:"bundle,omitempty"`
	ProjectID     string            `json:"projectId,omitempty"`
	Error         string            `json:"error,omitempty"`
}
