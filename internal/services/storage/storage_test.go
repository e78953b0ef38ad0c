package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memBucket struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	listErr      error
	removeErr    error
}

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (b *memBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.contentTypes[key] = contentType
	return nil
}

func (b *memBucket) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (b *memBucket) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	var keys []string
	for key := range b.objects {
		if strings.HasPrefix(key, prefix+"/") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *memBucket) Remove(ctx context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removeErr != nil {
		return b.removeErr
	}
	for _, key := range keys {
		delete(b.objects, key)
	}
	return nil
}

func (b *memBucket) URL(ctx context.Context, key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

func (b *memBucket) Ping(ctx context.Context) error {
	return nil
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "u1/converter/original", FolderPath("u1", "original"))
	assert.Equal(t, "u1/converter/original/a.png", FolderPath("u1", "/original/a.png"))
	assert.Equal(t, "u1/converter", FolderPath("u1", ""))
	assert.Equal(t, "u1/converter/webpeditor_converted.zip", ZipPath("u1", "converted"))
	assert.Equal(t, "u1/converter/webpeditor_converted_nested.zip", ZipPath("u1", "converted/nested"))
}

func TestUploadAndList(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket()
	s := NewStorageService(bucket, zap.NewNop())

	url, err := s.Upload(ctx, "u1", "original/photo.png", []byte("\x89PNG\r\n\x1a\n0000"), "")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/u1/converter/original/photo.png", url)
	assert.Equal(t, "image/png", bucket.contentTypes["u1/converter/original/photo.png"])

	_, err = s.Upload(ctx, "u1", "converted/photo.webp", []byte("data"), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", bucket.contentTypes["u1/converter/converted/photo.webp"])

	files, err := s.ListFiles(ctx, "u1", "original")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, FileRef{Key: "u1/converter/original/photo.png", Name: "photo.png"}, files[0])
}

func TestDeleteFiles(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket()
	s := NewStorageService(bucket, zap.NewNop())

	for _, key := range []string{"original/a.png", "original/b.png", "converted/a.webp"} {
		_, err := s.Upload(ctx, "u1", key, []byte("x"), "image/png")
		require.NoError(t, err)
	}
	_, err := s.Upload(ctx, "u2", "original/a.png", []byte("x"), "image/png")
	require.NoError(t, err)

	require.NoError(t, s.DeleteFiles(ctx, "u1", "original"))

	assert.NotContains(t, bucket.objects, "u1/converter/original/a.png")
	assert.NotContains(t, bucket.objects, "u1/converter/original/b.png")
	assert.Contains(t, bucket.objects, "u1/converter/converted/a.webp")
	assert.Contains(t, bucket.objects, "u2/converter/original/a.png")
}

func TestDeleteFilesTreatsListFailureAsEmpty(t *testing.T) {
	bucket := newMemBucket()
	bucket.listErr = errors.New("folder not found")
	s := NewStorageService(bucket, zap.NewNop())

	assert.NoError(t, s.DeleteFiles(context.Background(), "u1", "original"))
}

func TestDeleteFilesReportsRemoveFailure(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket()
	s := NewStorageService(bucket, zap.NewNop())
	_, err := s.Upload(ctx, "u1", "original/a.png", []byte("x"), "image/png")
	require.NoError(t, err)

	bucket.removeErr = errors.New("permission denied")
	assert.Error(t, s.DeleteFiles(ctx, "u1", "original"))
}

func TestZipFolder(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket()
	s := NewStorageService(bucket, zap.NewNop())

	want := map[string]string{
		"webpeditor_a.webp": "first",
		"webpeditor_b.webp": "second",
		"webpeditor_c.webp": "third",
	}
	for name, content := range want {
		_, err := s.Upload(ctx, "u1", "converted/"+name, []byte(content), "image/webp")
		require.NoError(t, err)
	}

	url, err := s.ZipFolder(ctx, "u1", "converted")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/u1/converter/webpeditor_converted.zip", url)
	assert.Equal(t, zipContentType, bucket.contentTypes["u1/converter/webpeditor_converted.zip"])

	data := bucket.objects["u1/converter/webpeditor_converted.zip"]
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	got := map[string]string{}
	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		got[file.Name] = string(content)
	}
	assert.Equal(t, want, got)
}

func TestZipFolderEmpty(t *testing.T) {
	s := NewStorageService(newMemBucket(), zap.NewNop())

	_, err := s.ZipFolder(context.Background(), "u1", "converted")
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)
}

func TestHealthCheck(t *testing.T) {
	status := HealthCheck(context.Background(), map[string]Pinger{
		"storage": newMemBucket(),
		"redis":   PingerFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
		"queue":   nil,
	})

	assert.Equal(t, StatusHealthy, status["storage"])
	assert.Equal(t, "unhealthy: connection refused", status["redis"])
	assert.Equal(t, StatusNotConfigured, status["queue"])
	assert.Equal(t, "unhealthy", OverallHealth(status))

	delete(status, "redis")
	assert.Equal(t, StatusHealthy, OverallHealth(status))
}
