package projects

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echoly/internal/domain"
)

// Service управляет историей проектов пользователя.
type Service struct {
	repo    domain.ProjectRepo
	storage domain.ObjectStorage
	log     zerolog.Logger
}

// NewService создаёт сервис истории.
func NewService(repo domain.ProjectRepo, storage domain.ObjectStorage, logger zerolog.Logger) *Service {
	return &Service{repo: repo, storage: storage, log: logger}
}

// List возвращает проекты пользователя, новые первыми.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete удаляет проект целиком вместе с загруженным медиафайлом.
// Недоступность хранилища не блокирует удаление записи.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	project, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	s.removeObject(ctx, project)
	return s.repo.DeleteByID(ctx, id, userID)
}

// RemoveAsset удаляет один черновик по имени платформы, не трогая
// остальные черновики и источник проекта.
func (s *Service) RemoveAsset(ctx context.Context, userID, id uuid.UUID, platform string) (domain.Project, error) {
	return s.repo.RemoveAsset(ctx, id, userID, strings.ToUpper(platform))
}

// Clear удаляет все проекты пользователя и их медиафайлы.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, project := range list {
		s.removeObject(ctx, project)
	}
	return s.repo.DeleteAllByUser(ctx, userID)
}

func (s *Service) removeObject(ctx context.Context, project domain.Project) {
	if project.Source.ObjectKey == "" || s.storage == nil {
		return
	}
	if err := s.storage.Remove(ctx, project.Source.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("project", project.ID.String()).Msg("история: объект хранилища не удалён")
	}
}
