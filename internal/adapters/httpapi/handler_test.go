package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echoly/internal/domain"
	httpinfra "echoly/internal/infra/http"
	"echoly/internal/usecase/repurpose"
)

const testSecret = "test-secret"

type stubPipeline struct {
	events []domain.ProgressEvent
	runErr error
	inputs []repurpose.RunInput
}

func (p *stubPipeline) Run(_ context.Context, in repurpose.RunInput, sink domain.EventSink) error {
	p.inputs = append(p.inputs, in)
	for _, ev := range p.events {
		if err := sink.Send(ev); err != nil {
			return err
		}
	}
	return p.runErr
}

type stubAuth struct {
	registerErr error
	loginErr    error
	user        domain.User
}

func (a *stubAuth) Register(_ context.Context, name, email, _ string) (string, domain.User, error) {
	if a.registerErr != nil {
		return "", domain.User{}, a.registerErr
	}
	a.user = domain.User{ID: uuid.New(), Name: name, Email: email}
	return "token-123", a.user, nil
}

func (a *stubAuth) Login(_ context.Context, email, _ string) (string, domain.User, error) {
	if a.loginErr != nil {
		return "", domain.User{}, a.loginErr
	}
	a.user = domain.User{ID: uuid.New(), Email: email}
	return "token-123", a.user, nil
}

func (a *stubAuth) Me(_ context.Context, id uuid.UUID) (domain.User, error) {
	if a.user.ID != id {
		return domain.User{}, domain.ErrUserNotFound
	}
	return a.user, nil
}

type stubProjects struct {
	list       []domain.Project
	removed    []string
	cleared    bool
	deletedIDs []uuid.UUID
}

func (p *stubProjects) List(context.Context, uuid.UUID) ([]domain.Project, error) {
	return p.list, nil
}

func (p *stubProjects) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	p.deletedIDs = append(p.deletedIDs, id)
	return nil
}

func (p *stubProjects) RemoveAsset(_ context.Context, _, id uuid.UUID, platform string) (domain.Project, error) {
	p.removed = append(p.removed, platform)
	return domain.Project{ID: id}, nil
}

func (p *stubProjects) Clear(context.Context, uuid.UUID) error {
	p.cleared = true
	return nil
}

type stubPrompts struct{}

func (stubPrompts) ImagePrompt(_ context.Context, content string) (string, error) {
	if content == "" {
		return "", errors.New("пустой контент")
	}
	return "cover prompt", nil
}

type stubCache struct {
	locked map[string]bool
	busy   bool
}

func newStubCache() *stubCache { return &stubCache{locked: map[string]bool{}} }

func (c *stubCache) SetNX(_ context.Context, key string, _ time.Duration) (bool, error) {
	if c.busy || c.locked[key] {
		return false, nil
	}
	c.locked[key] = true
	return true, nil
}

func (c *stubCache) Del(_ context.Context, key string) error {
	delete(c.locked, key)
	return nil
}

func (c *stubCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (c *stubCache) Get(context.Context, string) ([]byte, error) { return nil, nil }

type testEnv struct {
	router   chi.Router
	pipeline *stubPipeline
	projects *stubProjects
	auth     *stubAuth
	cache    *stubCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		pipeline: &stubPipeline{},
		projects: &stubProjects{},
		auth:     &stubAuth{},
		cache:    newStubCache(),
	}
	h := NewHandler(env.pipeline, env.auth, env.projects, stubPrompts{}, env.cache, Config{
		JWTSecret: testSecret,
		TempDir:   t.TempDir(),
	}, zerolog.Nop())
	env.router = chi.NewRouter()
	h.Routes(env.router)
	return env
}

func issueToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("не удалось подписать токен: %v", err)
	}
	return token
}

func authedRequest(t *testing.T, method, target string, body *bytes.Buffer, userID uuid.UUID) *http.Request {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("x-auth-token", issueToken(t, userID))
	return req
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf, mw.FormDataContentType()
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body, _ := json.Marshal(map[string]string{"name": "Ира", "email": "ira@example.com", "password": "pass123"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Fatal("ответ должен содержать токен")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.auth.registerErr = domain.ErrUserExists
	body, _ := json.Marshal(map[string]string{"name": "Ира", "email": "ira@example.com", "password": "pass123"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидали 400, получили %d", rec.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.auth.loginErr = domain.ErrInvalidCredentials
	body, _ := json.Marshal(map[string]string{"email": "ira@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидали 400, получили %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{"/api/history", "/api/auth/me"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s без токена должен отдавать 401, получили %d", target, rec.Code)
		}
	}
}

func TestRepurposeAllStreamsEvents(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.events = []domain.ProgressEvent{
		{Status: "Initializing Engine...", Progress: 5},
		{Success: true, Progress: 100, Status: "Mission Accomplished"},
	}

	userID := uuid.New()
	body, contentType := multipartBody(t, map[string]string{
		"type":    "text",
		"content": "длинный исходный текст для обработки",
		"tone":    "Professional",
	})
	req := authedRequest(t, http.MethodPost, "/api/repurpose-all", body, userID)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("ожидали text/event-stream, получили %q", got)
	}
	events, err := httpinfra.ReadEvents(rec.Body)
	if err != nil {
		t.Fatalf("поток должен декодироваться: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ожидали 2 события, получили %d", len(events))
	}
	if !events[1].Success || events[1].Progress != 100 {
		t.Fatalf("финальное событие искажено: %+v", events[1])
	}

	if len(env.pipeline.inputs) != 1 {
		t.Fatalf("ожидали один запуск, получили %d", len(env.pipeline.inputs))
	}
	in := env.pipeline.inputs[0]
	if in.UserID != userID || in.Source.Kind != domain.SourceText || in.Tone != "Professional" {
		t.Fatalf("вход конвейера собран неверно: %+v", in)
	}
	if len(env.cache.locked) != 0 {
		t.Fatal("блокировка запуска должна сниматься после завершения")
	}
}

func TestRepurposeAllConcurrentRunRejected(t *testing.T) {
	env := newTestEnv(t)
	env.cache.busy = true

	body, contentType := multipartBody(t, map[string]string{"type": "text", "content": "текст"})
	req := authedRequest(t, http.MethodPost, "/api/repurpose-all", body, uuid.New())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("параллельный запуск должен отдавать 409, получили %d", rec.Code)
	}
	if len(env.pipeline.inputs) != 0 {
		t.Fatal("конвейер не должен запускаться при занятой блокировке")
	}
}

func TestRepurposeAllSourceKinds(t *testing.T) {
	cases := []struct {
		formType string
		want     domain.SourceKind
	}{
		{"youtube", domain.SourceYouTube},
		{"blog", domain.SourceBlog},
		{"text", domain.SourceText},
	}
	for _, tc := range cases {
		env := newTestEnv(t)
		body, contentType := multipartBody(t, map[string]string{
			"type":    tc.formType,
			"content": "https://example.com/post",
		})
		req := authedRequest(t, http.MethodPost, "/api/repurpose-all", body, uuid.New())
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		if len(env.pipeline.inputs) != 1 {
			t.Fatalf("%s: ожидали один запуск", tc.formType)
		}
		if got := env.pipeline.inputs[0].Source.Kind; got != tc.want {
			t.Fatalf("%s: ожидали вид %s, получили %s", tc.formType, tc.want, got)
		}
	}
}

func TestRepurposeAllUploadedFile(t *testing.T) {
	env := newTestEnv(t)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", "lecture.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("fake audio bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("tone", "Casual"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := authedRequest(t, http.MethodPost, "/api/repurpose-all", buf, uuid.New())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if len(env.pipeline.inputs) != 1 {
		t.Fatal("ожидали один запуск")
	}
	src := env.pipeline.inputs[0].Source
	if src.Kind != domain.SourceFile || src.Upload == nil {
		t.Fatalf("источник должен быть загруженным файлом: %+v", src)
	}
	if src.Upload.OriginalName != "lecture.mp3" {
		t.Fatalf("имя файла должно сохраняться: %q", src.Upload.OriginalName)
	}
	if !strings.HasSuffix(src.Upload.Path, ".mp3") {
		t.Fatalf("расширение файла должно сохраняться в пути: %q", src.Upload.Path)
	}
}

func TestDeleteAssetRoute(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	req := authedRequest(t, http.MethodDelete, "/api/projects/"+id.String()+"/asset/TWITTER", nil, uuid.New())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if len(env.projects.removed) != 1 || env.projects.removed[0] != "TWITTER" {
		t.Fatalf("платформа должна передаваться из пути: %v", env.projects.removed)
	}
}

func TestHistoryEmptyList(t *testing.T) {
	env := newTestEnv(t)
	req := authedRequest(t, http.MethodGet, "/api/history", nil, uuid.New())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("пустая история должна отдавать [], получили %q", got)
	}
}

func TestClearHistory(t *testing.T) {
	env := newTestEnv(t)
	req := authedRequest(t, http.MethodDelete, "/api/history", nil, uuid.New())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if !env.projects.cleared {
		t.Fatal("история должна очищаться")
	}
}

func TestImagePromptEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body, _ := json.Marshal(map[string]string{"content": "черновик поста"})
	req := authedRequest(t, http.MethodPost, "/api/image-prompt", bytes.NewBuffer(body), uuid.New())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["prompt"] != "cover prompt" {
		t.Fatalf("неожиданный промпт: %q", resp["prompt"])
	}
}
