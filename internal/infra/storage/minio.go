package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"echoly/internal/domain"
	"echoly/internal/infra/metrics"
)

// Config описывает подключение к MinIO.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

// MinIO реализует domain.ObjectStorage поверх MinIO.
type MinIO struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

var _ domain.ObjectStorage = (*MinIO)(nil)

// NewMinIO создаёт клиента и гарантирует существование бакета.
func NewMinIO(ctx context.Context, cfg Config) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: create bucket: %w", err)
		}
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &MinIO{client: client, bucket: cfg.Bucket, urlExpiry: expiry}, nil
}

// Upload кладёт локальный файл в бакет и возвращает ключ с подписанной ссылкой.
func (m *MinIO) Upload(ctx context.Context, localPath, originalName string) (domain.StoredObject, error) {
	ext := filepath.Ext(originalName)
	key := fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	metrics.ObserveNetworkRequest("minio", "put_object", m.bucket, start, err)
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("minio: upload %s: %w", originalName, err)
	}

	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.urlExpiry, nil)
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("minio: presign %s: %w", key, err)
	}
	return domain.StoredObject{Key: key, URL: url.String()}, nil
}

// Remove удаляет объект по ключу.
func (m *MinIO) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	metrics.ObserveNetworkRequest("minio", "remove_object", m.bucket, start, err)
	if err != nil {
		return fmt.Errorf("minio: remove %s: %w", key, err)
	}
	return nil
}
