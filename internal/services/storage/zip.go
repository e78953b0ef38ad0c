package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"go.uber.org/zap"
)

const zipContentType = "application/zip"

// ZipFolder archives every file under {user}/converter/{relativePath},
// uploads the archive and returns its URL.
func (s *StorageService) ZipFolder(ctx context.Context, userID, relativePath string) (string, error) {
	files, err := s.ListFiles(ctx, userID, relativePath)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", apperror.NotFound("No files to archive", fmt.Sprintf("Folder '%s' is empty", relativePath))
	}

	contents, err := s.downloadMultiple(ctx, files)
	if err != nil {
		return "", err
	}

	buffer := &bytes.Buffer{}
	archive := zip.NewWriter(buffer)
	for i, file := range files {
		w, err := archive.Create(file.Name)
		if err != nil {
			return "", fmt.Errorf("failed to add %s to archive: %w", file.Name, err)
		}
		if _, err := w.Write(contents[i]); err != nil {
			return "", fmt.Errorf("failed to write %s to archive: %w", file.Name, err)
		}
	}
	if err := archive.Close(); err != nil {
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}

	key := ZipPath(userID, relativePath)
	if err := s.bucket.Put(ctx, key, buffer.Bytes(), zipContentType); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}

	s.logger.Info("Archive created",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.Int("files", len(files)))

	return s.bucket.URL(ctx, key)
}

// downloadMultiple fetches files with a small worker pool. Contents are
// returned in the order of files.
func (s *StorageService) downloadMultiple(ctx context.Context, files []FileRef) ([][]byte, error) {
	contents := make([][]byte, len(files))
	errors := make([]error, len(files))

	numWorkers := s.numWorkers
	if len(files) < numWorkers {
		numWorkers = len(files)
	}

	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				contents[i], errors[i] = s.bucket.Get(ctx, files[i].Key)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	var failed []string
	for i, err := range errors {
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", files[i].Name, err))
		}
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("failed to download %d files: %s", len(failed), strings.Join(failed, "; "))
	}

	return contents, nil
}
