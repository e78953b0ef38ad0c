package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/phambaophuc/webp-converter/internal/config"
	storage_go "github.com/supabase-community/storage-go"
)

const (
	listLimit              = 1000
	emptyFolderPlaceholder = ".emptyFolderPlaceholder"
)

// SupabaseBucket stores objects in a Supabase Storage bucket.
type SupabaseBucket struct {
	sbClient *storage_go.Client
	bucket   string
}

func NewSupabaseBucket(cfg config.SupabaseConfig) (*SupabaseBucket, error) {
	if cfg.URL == "" || cfg.BUCKET == "" {
		return nil, ErrNotConfigured
	}

	return &SupabaseBucket{
		sbClient: storage_go.NewClient(cfg.URL+"/storage/v1", cfg.KEY, nil),
		bucket:   cfg.BUCKET,
	}, nil
}

func (b *SupabaseBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	upsert := true
	_, err := b.sbClient.UploadFile(b.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to supabase: %w", err)
	}
	return nil
}

func (b *SupabaseBucket) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.sbClient.DownloadFile(b.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download from supabase: %w", err)
	}
	return data, nil
}

// List returns full object keys directly under prefix.
func (b *SupabaseBucket) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := b.sbClient.ListFiles(b.bucket, prefix, storage_go.FileSearchOptions{Limit: listLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list supabase folder: %w", err)
	}

	keys := make([]string, 0, len(objects))
	for _, object := range objects {
		if object.Name == "" || object.Name == emptyFolderPlaceholder {
			continue
		}
		keys = append(keys, strings.TrimSuffix(prefix, "/")+"/"+object.Name)
	}
	return keys, nil
}

func (b *SupabaseBucket) Remove(ctx context.Context, keys []string) error {
	if _, err := b.sbClient.RemoveFile(b.bucket, keys); err != nil {
		return fmt.Errorf("failed to remove from supabase: %w", err)
	}
	return nil
}

func (b *SupabaseBucket) URL(ctx context.Context, key string) (string, error) {
	return b.sbClient.GetPublicUrl(b.bucket, key).SignedURL, nil
}

func (b *SupabaseBucket) Ping(ctx context.Context) error {
	if _, err := b.sbClient.ListFiles(b.bucket, "", storage_go.FileSearchOptions{}); err != nil {
		return fmt.Errorf("supabase storage unavailable: %w", err)
	}
	return nil
}
