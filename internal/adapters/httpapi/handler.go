package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echoly/internal/domain"
	httpinfra "echoly/internal/infra/http"
	"echoly/internal/usecase/repurpose"
)

// pipelineRunner запускает конвейер и стримит прогресс в sink.
type pipelineRunner interface {
	Run(ctx context.Context, in repurpose.RunInput, sink domain.EventSink) error
}

// authService закрывает регистрацию и вход.
type authService interface {
	Register(ctx context.Context, name, email, password string) (string, domain.User, error)
	Login(ctx context.Context, email, password string) (string, domain.User, error)
	Me(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// projectService закрывает операции над историей проектов.
type projectService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Project, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	RemoveAsset(ctx context.Context, userID, id uuid.UUID, platform string) (domain.Project, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// promptGenerator строит промпт для генерации обложки по тексту черновика.
type promptGenerator interface {
	ImagePrompt(ctx context.Context, content string) (string, error)
}

// Config — параметры HTTP-обвязки.
type Config struct {
	JWTSecret      string
	TempDir        string
	MaxUploadBytes int64
	RunLockTTL     time.Duration
}

// Handler связывает HTTP-маршруты с юзкейсами.
type Handler struct {
	pipeline pipelineRunner
	auth     authService
	projects projectService
	prompts  promptGenerator
	cache    domain.Cache
	cfg      Config
	log      zerolog.Logger
}

// NewHandler создаёт обработчик API.
func NewHandler(pipeline pipelineRunner, auth authService, projects projectService, prompts promptGenerator, cache domain.Cache, cfg Config, logger zerolog.Logger) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.RunLockTTL <= 0 {
		cfg.RunLockTTL = 30 * time.Minute
	}
	return &Handler{
		pipeline: pipeline,
		auth:     auth,
		projects: projects,
		prompts:  prompts,
		cache:    cache,
		cfg:      cfg,
		log:      logger,
	}
}

// Routes монтирует маршруты API.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(httpinfra.AuthMiddleware(h.cfg.JWTSecret))
			r.Get("/auth/me", h.me)
			r.Post("/repurpose-all", h.repurposeAll)
			r.Post("/image-prompt", h.imagePrompt)
			r.Get("/history", h.listHistory)
			r.Delete("/history", h.clearHistory)
			r.Delete("/projects/{id}", h.deleteProject)
			r.Delete("/projects/{id}/asset/{platform}", h.deleteAsset)
		})
	})
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type userView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if errors.Is(err, domain.ErrUserExists) {
		httpinfra.WriteError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("api: регистрация не удалась")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, authResponse{Token: token, User: userView{ID: user.ID, Name: user.Name, Email: user.Email}})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		httpinfra.WriteError(w, http.StatusBadRequest, "Invalid Credentials")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("api: вход не удался")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, authResponse{Token: token, User: userView{ID: user.ID, Name: user.Name, Email: user.Email}})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpinfra.UserID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}
	user, err := h.auth.Me(r.Context(), userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		httpinfra.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, userView{ID: user.ID, Name: user.Name, Email: user.Email})
}

// repurposeAll — единственный стриминговый маршрут: отвечает потоком
// server-sent events и держит соединение до конца запуска. Параллельные
// запуски одного пользователя отсекаются блокировкой в Redis.
func (h *Handler) repurposeAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpinfra.UserID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}

	lockKey := "repurpose:active:" + userID.String()
	acquired, err := h.cache.SetNX(r.Context(), lockKey, h.cfg.RunLockTTL)
	if err != nil {
		h.log.Error().Err(err).Msg("api: не удалось взять блокировку запуска")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	if !acquired {
		httpinfra.WriteError(w, http.StatusConflict, "Another run is already in progress")
		return
	}
	defer func() {
		// Блокировку снимаем свежим контекстом: контекст запроса к этому
		// моменту может быть уже отменён отключившимся клиентом.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.cache.Del(ctx, lockKey); err != nil {
			h.log.Warn().Err(err).Msg("api: блокировка запуска не снята")
		}
	}()

	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	source, cleanup, err := h.buildSource(r)
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	stream, err := httpinfra.NewStream(w)
	if err != nil {
		httpinfra.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	in := repurpose.RunInput{
		UserID: userID,
		Source: source,
		Tone:   r.FormValue("tone"),
	}
	// Ошибки запуска уходят клиенту событием error внутри потока.
	if err := h.pipeline.Run(r.Context(), in, stream); err != nil {
		h.log.Error().Err(err).Str("user", userID.String()).Msg("api: запуск конвейера завершился ошибкой")
	}
}

// buildSource собирает источник запуска из multipart-формы. Для загруженного
// файла создаётся каталог, живущий не дольше запроса.
func (h *Handler) buildSource(r *http.Request) (domain.Source, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		if mkErr := os.MkdirAll(h.cfg.TempDir, 0o755); mkErr != nil {
			return domain.Source{}, noop, errors.New("upload failed")
		}
		dir, mkErr := os.MkdirTemp(h.cfg.TempDir, "run-")
		if mkErr != nil {
			return domain.Source{}, noop, errors.New("upload failed")
		}
		cleanup := func() { _ = os.RemoveAll(dir) }

		path := filepath.Join(dir, "upload"+filepath.Ext(header.Filename))
		dst, createErr := os.Create(path)
		if createErr != nil {
			return domain.Source{}, cleanup, errors.New("upload failed")
		}
		_, copyErr := io.Copy(dst, file)
		if closeErr := dst.Close(); copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			return domain.Source{}, cleanup, errors.New("upload failed")
		}
		return domain.Source{
			Kind:   domain.SourceFile,
			Upload: &domain.Upload{Path: path, OriginalName: header.Filename},
		}, cleanup, nil
	}

	content := r.FormValue("content")
	switch strings.ToLower(r.FormValue("type")) {
	case "youtube":
		return domain.Source{Kind: domain.SourceYouTube, URL: content}, noop, nil
	case "blog":
		return domain.Source{Kind: domain.SourceBlog, URL: content}, noop, nil
	default:
		return domain.Source{Kind: domain.SourceText, Body: content}, noop, nil
	}
}

func (h *Handler) imagePrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		httpinfra.WriteError(w, http.StatusBadRequest, "content is required")
		return
	}
	prompt, err := h.prompts.ImagePrompt(r.Context(), req.Content)
	if err != nil {
		h.log.Error().Err(err).Msg("api: генерация промпта обложки не удалась")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpinfra.UserID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}
	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("api: история не загрузилась")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	httpinfra.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpinfra.UserID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}
	if err := h.projects.Clear(r.Context(), userID); err != nil {
		h.log.Error().Err(err).Msg("api: очистка истории не удалась")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"msg": "History cleared"})
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpinfra.UserID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	err = h.projects.Delete(r.Context(), userID, id)
	if errors.Is(err, domain.ErrProjectNotFound) {
		httpinfra.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("api: удаление проекта не удалось")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"msg": "Project removed"})
}

func (h *Handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpinfra.UserID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	platform := chi.URLParam(r, "platform")
	project, err := h.projects.RemoveAsset(r.Context(), userID, id, platform)
	if errors.Is(err, domain.ErrProjectNotFound) {
		httpinfra.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("api: удаление черновика не удалось")
		httpinfra.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, project)
}
