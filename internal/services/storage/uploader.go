package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Upload stores data under {user}/converter/{relativePath} and returns its URL.
func (s *StorageService) Upload(ctx context.Context, userID, relativePath string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	key := FolderPath(userID, relativePath)
	if err := s.bucket.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url, err := s.bucket.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve url of %s: %w", key, err)
	}
	return url, nil
}

// ListFiles returns the objects stored under {user}/converter/{relativePath}.
func (s *StorageService) ListFiles(ctx context.Context, userID, relativePath string) ([]FileRef, error) {
	prefix := FolderPath(userID, relativePath)

	keys, err := s.bucket.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	files := make([]FileRef, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix+"/") {
			continue
		}
		files = append(files, FileRef{Key: key, Name: path.Base(key)})
	}
	return files, nil
}

// DeleteFiles removes every object under {user}/converter/{relativePath}.
// A folder that cannot be listed has nothing to delete.
func (s *StorageService) DeleteFiles(ctx context.Context, userID, relativePath string) error {
	files, err := s.ListFiles(ctx, userID, relativePath)
	if err != nil {
		s.logger.Warn("Nothing to delete, folder listing failed",
			zap.String("user_id", userID),
			zap.String("path", relativePath),
			zap.Error(err))
		return nil
	}
	if len(files) == 0 {
		return nil
	}

	keys := make([]string, len(files))
	for i, file := range files {
		keys[i] = file.Key
	}

	if err := s.bucket.Remove(ctx, keys); err != nil {
		return fmt.Errorf("failed to delete files under %s: %w", FolderPath(userID, relativePath), err)
	}

	s.logger.Info("Deleted files",
		zap.String("user_id", userID),
		zap.String("path", relativePath),
		zap.Int("count", len(keys)))
	return nil
}
