package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/services/processor"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAssetNotFound = apperror.NotFound("Conversion asset not found")

// Repository persists conversion assets with gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AssetExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Asset{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check asset: %w", err)
	}
	return count > 0, nil
}

// GetAsset loads the asset of a user together with its files.
func (r *Repository) GetAsset(ctx context.Context, userID string) (*Asset, error) {
	var asset Asset
	err := r.db.WithContext(ctx).Preload("Files").Where("user_id = ?", userID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// DeleteAsset removes the asset of a user and all of its file records.
func (r *Repository) DeleteAsset(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset Asset
		if err := tx.Where("user_id = ?", userID).First(&asset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssetNotFound
			}
			return fmt.Errorf("failed to find asset: %w", err)
		}

		if err := tx.Where("asset_id = ?", asset.ID).Delete(&AssetFile{}).Error; err != nil {
			return fmt.Errorf("failed to delete asset files: %w", err)
		}
		if err := tx.Delete(&asset).Error; err != nil {
			return fmt.Errorf("failed to delete asset: %w", err)
		}
		return nil
	})
}

func (r *Repository) GetOrCreateAsset(ctx context.Context, userID string) (*Asset, error) {
	var asset Asset
	err := r.db.WithContext(ctx).Where(Asset{UserID: userID}).FirstOrCreate(&asset).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create asset: %w", err)
	}
	return &asset, nil
}

// CreateAssetFile records one uploaded image of the given kind.
func (r *Repository) CreateAssetFile(
	ctx context.Context,
	kind string,
	info *processor.ImageFileInfo,
	fileURL string,
	asset *Asset,
) (*AssetFile, error) {
	exif := make(datatypes.JSONMap, len(info.FileDetails.Exif))
	for key, value := range info.FileDetails.Exif {
		exif[key] = value
	}

	file := &AssetFile{
		AssetID:           asset.ID,
		Kind:              kind,
		FileURL:           fileURL,
		Filename:          info.FilenameDetails.Fullname,
		FilenameShorter:   info.FilenameDetails.Shortname,
		ContentType:       info.ContentType(),
		Format:            info.FileDetails.Format,
		FormatDescription: info.FileDetails.FormatDescription,
		Size:              info.FileDetails.Size,
		Width:             info.FileDetails.Width,
		Height:            info.FileDetails.Height,
		AspectRatio:       info.FileDetails.AspectRatio,
		ColorMode:         info.FileDetails.ColorMode,
		ExifData:          exif,
	}

	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s asset file: %w", kind, err)
	}
	return file, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
