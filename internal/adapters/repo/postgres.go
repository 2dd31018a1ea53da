package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"echoly/internal/domain"
	"echoly/internal/infra/metrics"
)

// Postgres держит пул соединений и раздаёт репозитории.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Users возвращает репозиторий пользователей.
func (p *Postgres) Users() *Users {
	return &Users{pool: p.pool}
}

// Projects возвращает репозиторий проектов.
func (p *Postgres) Projects() *Projects {
	return &Projects{pool: p.pool}
}

func connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id        UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title          TEXT NOT NULL,
    source_type    TEXT NOT NULL,
    source_url     TEXT NOT NULL DEFAULT '',
    object_key     TEXT NOT NULL DEFAULT '',
    raw_transcript TEXT NOT NULL DEFAULT '',
    assets         JSONB NOT NULL DEFAULT '[]',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS projects_user_created_idx ON projects (user_id, created_at DESC);
`)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "schema", start, err)
	return err
}

// Users реализует domain.UserRepo.
type Users struct {
	pool *pgxpool.Pool
}

var _ domain.UserRepo = (*Users)(nil)

// Create вставляет пользователя; занятый email даёт ErrUserExists.
func (r *Users) Create(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (name, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id, created_at
`, user.Name, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_insert", "users", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, domain.ErrUserExists
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *Users) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	var user domain.User
	start := time.Now()
	err := r.pool.QueryRow(ctx, `
SELECT id, name, email, password_hash, created_at FROM users WHERE email=$1
`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_by_email", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

// GetByID возвращает пользователя по ID.
func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	var user domain.User
	start := time.Now()
	err := r.pool.QueryRow(ctx, `
SELECT id, name, email, password_hash, created_at FROM users WHERE id=$1
`, id).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_by_id", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

// Projects реализует domain.ProjectRepo. Черновики проекта хранятся одной
// JSONB-колонкой: список мал (не больше числа платформ) и всегда читается
// целиком вместе с проектом.
type Projects struct {
	pool *pgxpool.Pool
}

var _ domain.ProjectRepo = (*Projects)(nil)

// Save сохраняет собранный проект вместе со всеми черновиками.
func (r *Projects) Save(ctx context.Context, project domain.Project) (domain.Project, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	assets, err := json.Marshal(project.Assets)
	if err != nil {
		return domain.Project{}, fmt.Errorf("сериализация черновиков: %w", err)
	}

	start := time.Now()
	err = r.pool.QueryRow(ctx, `
INSERT INTO projects (user_id, title, source_type, source_url, object_key, raw_transcript, assets)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at
`, project.UserID, project.Title, string(project.Source.Type), project.Source.URL, project.Source.ObjectKey, project.Source.RawTranscript, assets).Scan(&project.ID, &project.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "projects_insert", "projects", start, err)
	if err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// ListByUser возвращает проекты пользователя, новые первыми.
func (r *Projects) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, title, source_type, source_url, object_key, raw_transcript, assets, created_at
FROM projects WHERE user_id=$1
ORDER BY created_at DESC
`, userID)
	metrics.ObserveNetworkRequest("postgres", "projects_list_by_user", "projects", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// GetByID возвращает проект пользователя; чужие проекты невидимы.
func (r *Projects) GetByID(ctx context.Context, id, userID uuid.UUID) (domain.Project, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, title, source_type, source_url, object_key, raw_transcript, assets, created_at
FROM projects WHERE id=$1 AND user_id=$2
`, id, userID)
	project, err := scanProject(row)
	metrics.ObserveNetworkRequest("postgres", "projects_get_by_id", "projects", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	return project, err
}

// DeleteByID удаляет проект пользователя.
func (r *Projects) DeleteByID(ctx context.Context, id, userID uuid.UUID) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id=$1 AND user_id=$2`, id, userID)
	metrics.ObserveNetworkRequest("postgres", "projects_delete", "projects", start, err)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// RemoveAsset убирает один черновик по имени платформы и возвращает
// обновлённый проект. Остальные черновики и источник не затрагиваются.
func (r *Projects) RemoveAsset(ctx context.Context, id, userID uuid.UUID, platform string) (domain.Project, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := r.pool.QueryRow(ctx, `
UPDATE projects
SET assets = COALESCE(
    (SELECT jsonb_agg(asset) FROM jsonb_array_elements(projects.assets) AS asset
     WHERE asset->>'platform' <> $3),
    '[]'::jsonb)
WHERE id=$1 AND user_id=$2
RETURNING id, user_id, title, source_type, source_url, object_key, raw_transcript, assets, created_at
`, id, userID, platform)
	project, err := scanProject(row)
	metrics.ObserveNetworkRequest("postgres", "projects_remove_asset", "projects", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	return project, err
}

// DeleteAllByUser очищает историю пользователя.
func (r *Projects) DeleteAllByUser(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE user_id=$1`, userID)
	metrics.ObserveNetworkRequest("postgres", "projects_delete_all", "projects", start, err)
	return err
}

func scanProject(row pgx.Row) (domain.Project, error) {
	var (
		project    domain.Project
		sourceType string
		assets     []byte
	)
	if err := row.Scan(&project.ID, &project.UserID, &project.Title, &sourceType, &project.Source.URL, &project.Source.ObjectKey, &project.Source.RawTranscript, &assets, &project.CreatedAt); err != nil {
		return domain.Project{}, err
	}
	project.Source.Type = domain.SourceKind(sourceType)
	if len(assets) > 0 {
		if err := json.Unmarshal(assets, &project.Assets); err != nil {
			return domain.Project{}, fmt.Errorf("чтение черновиков: %w", err)
		}
	}
	return project, nil
}
