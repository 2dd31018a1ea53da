package projects

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echoly/internal/domain"
)

type stubProjectRepo struct {
	projects map[uuid.UUID]domain.Project
}

func newStubProjectRepo() *stubProjectRepo {
	return &stubProjectRepo{projects: map[uuid.UUID]domain.Project{}}
}

func (r *stubProjectRepo) add(userID uuid.UUID, objectKey string, platforms ...string) domain.Project {
	p := domain.Project{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "Text Draft",
		Source:    domain.ProjectSource{Type: domain.SourceText, ObjectKey: objectKey, RawTranscript: "исходный текст"},
		CreatedAt: time.Now().UTC(),
	}
	for _, platform := range platforms {
		p.Assets = append(p.Assets, domain.GeneratedAsset{
			Platform: strings.ToUpper(platform),
			Content:  "черновик " + platform,
			Status:   domain.AssetStatusCompleted,
		})
	}
	r.projects[p.ID] = p
	return p
}

func (r *stubProjectRepo) Save(_ context.Context, p domain.Project) (domain.Project, error) {
	p.ID = uuid.New()
	r.projects[p.ID] = p
	return p, nil
}

func (r *stubProjectRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Project, error) {
	var out []domain.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProjectRepo) GetByID(_ context.Context, id, userID uuid.UUID) (domain.Project, error) {
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	return p, nil
}

func (r *stubProjectRepo) DeleteByID(_ context.Context, id, userID uuid.UUID) error {
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return domain.ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *stubProjectRepo) RemoveAsset(_ context.Context, id, userID uuid.UUID, platform string) (domain.Project, error) {
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	kept := p.Assets[:0:0]
	for _, asset := range p.Assets {
		if asset.Platform != platform {
			kept = append(kept, asset)
		}
	}
	p.Assets = kept
	r.projects[id] = p
	return p, nil
}

func (r *stubProjectRepo) DeleteAllByUser(_ context.Context, userID uuid.UUID) error {
	for id, p := range r.projects {
		if p.UserID == userID {
			delete(r.projects, id)
		}
	}
	return nil
}

type stubStorage struct {
	removed   []string
	removeErr error
}

func (s *stubStorage) Upload(context.Context, string, string) (domain.StoredObject, error) {
	return domain.StoredObject{}, errors.New("не используется")
}

func (s *stubStorage) Remove(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	return s.removeErr
}

func TestRemoveAssetKeepsOthers(t *testing.T) {
	repo := newStubProjectRepo()
	storage := &stubStorage{}
	svc := NewService(repo, storage, zerolog.Nop())

	userID := uuid.New()
	p := repo.add(userID, "", "linkedin", "twitter", "blog")

	got, err := svc.RemoveAsset(context.Background(), userID, p.ID, "twitter")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(got.Assets) != 2 {
		t.Fatalf("ожидали 2 оставшихся черновика, получили %d", len(got.Assets))
	}
	for _, asset := range got.Assets {
		if asset.Platform == "TWITTER" {
			t.Fatal("удалённый черновик не должен оставаться в проекте")
		}
	}
	if got.Source.RawTranscript != "исходный текст" {
		t.Fatal("источник проекта не должен меняться при удалении черновика")
	}
}

func TestRemoveAssetLowercaseName(t *testing.T) {
	repo := newStubProjectRepo()
	svc := NewService(repo, &stubStorage{}, zerolog.Nop())

	userID := uuid.New()
	p := repo.add(userID, "", "linkedin")

	got, err := svc.RemoveAsset(context.Background(), userID, p.ID, "linkedin")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(got.Assets) != 0 {
		t.Fatal("имя платформы в нижнем регистре должно совпадать с сохранённым")
	}
}

func TestDeleteRemovesStorageObject(t *testing.T) {
	repo := newStubProjectRepo()
	storage := &stubStorage{}
	svc := NewService(repo, storage, zerolog.Nop())

	userID := uuid.New()
	p := repo.add(userID, "uploads/abc.mp3", "linkedin")

	if err := svc.Delete(context.Background(), userID, p.ID); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), p.ID, userID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatal("проект должен быть удалён")
	}
	if len(storage.removed) != 1 || storage.removed[0] != "uploads/abc.mp3" {
		t.Fatalf("медиафайл должен удаляться из хранилища, удалено: %v", storage.removed)
	}
}

func TestDeleteStorageFailureDoesNotBlock(t *testing.T) {
	repo := newStubProjectRepo()
	storage := &stubStorage{removeErr: errors.New("хранилище недоступно")}
	svc := NewService(repo, storage, zerolog.Nop())

	userID := uuid.New()
	p := repo.add(userID, "uploads/abc.mp3")

	if err := svc.Delete(context.Background(), userID, p.ID); err != nil {
		t.Fatalf("сбой хранилища не должен блокировать удаление записи: %v", err)
	}
}

func TestDeleteForeignProject(t *testing.T) {
	repo := newStubProjectRepo()
	svc := NewService(repo, &stubStorage{}, zerolog.Nop())

	p := repo.add(uuid.New(), "")
	err := svc.Delete(context.Background(), uuid.New(), p.ID)
	if !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("чужой проект должен быть невидим: %v", err)
	}
}

func TestClear(t *testing.T) {
	repo := newStubProjectRepo()
	storage := &stubStorage{}
	svc := NewService(repo, storage, zerolog.Nop())

	userID := uuid.New()
	repo.add(userID, "uploads/a.mp3")
	repo.add(userID, "")
	other := repo.add(uuid.New(), "uploads/b.mp3")

	if err := svc.Clear(context.Background(), userID); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	mine, _ := repo.ListByUser(context.Background(), userID)
	if len(mine) != 0 {
		t.Fatalf("история пользователя должна опустеть, осталось %d", len(mine))
	}
	if _, err := repo.GetByID(context.Background(), other.ID, other.UserID); err != nil {
		t.Fatal("чужие проекты не должны затрагиваться")
	}
	if len(storage.removed) != 1 || storage.removed[0] != "uploads/a.mp3" {
		t.Fatalf("удаляться должны только медиафайлы пользователя, удалено: %v", storage.removed)
	}
}
