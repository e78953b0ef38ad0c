package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("file storage backend is not configured")

// Bucket is the object storage backend used by StorageService.
type Bucket interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, keys []string) error
	URL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

// FileRef is one stored object under a user's converter folder.
type FileRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type StorageService struct {
	bucket     Bucket
	logger     *zap.Logger
	numWorkers int
}

func NewStorageService(bucket Bucket, logger *zap.Logger) *StorageService {
	return &StorageService{
		bucket:     bucket,
		logger:     logger,
		numWorkers: 5,
	}
}

// FolderPath is the storage prefix {user}/converter/{relative}.
func FolderPath(userID, relativePath string) string {
	relativePath = strings.Trim(relativePath, "/")
	if relativePath == "" {
		return fmt.Sprintf("%s/converter", userID)
	}
	return fmt.Sprintf("%s/converter/%s", userID, relativePath)
}

// ZipPath is where the archive of a folder is written.
func ZipPath(userID, relativePath string) string {
	name := strings.ReplaceAll(strings.Trim(relativePath, "/"), "/", "_")
	return fmt.Sprintf("%s/converter/webpeditor_%s.zip", userID, name)
}

func (s *StorageService) HealthCheck(ctx context.Context) error {
	return s.bucket.Ping(ctx)
}
