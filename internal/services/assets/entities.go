package assets

import (
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	KindOriginal  = "original"
	KindConverted = "converted"
)

// Asset groups the files of a user's current conversion session.
type Asset struct {
	ID        string      `gorm:"type:varchar(36);primaryKey"`
	UserID    string      `gorm:"type:varchar(64);uniqueIndex;not null"`
	Files     []AssetFile `gorm:"foreignKey:AssetID"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}

func (Asset) TableName() string {
	return "converter_image_assets"
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AssetFile is one stored original or converted image.
type AssetFile struct {
	ID                string          `gorm:"type:varchar(36);primaryKey"`
	AssetID           string          `gorm:"type:varchar(36);index;not null"`
	Kind              string          `gorm:"type:varchar(16);index;not null"`
	FileURL           string          `gorm:"type:text;not null"`
	Filename          string          `gorm:"type:varchar(255);not null"`
	FilenameShorter   string          `gorm:"type:varchar(64)"`
	ContentType       string          `gorm:"type:varchar(64)"`
	Format            string          `gorm:"type:varchar(16)"`
	FormatDescription string          `gorm:"type:varchar(64)"`
	Size              int64           `gorm:"not null"`
	Width             int             `gorm:"not null"`
	Height            int             `gorm:"not null"`
	AspectRatio       decimal.Decimal `gorm:"type:numeric(8,1)"`
	ColorMode         string          `gorm:"type:varchar(16)"`
	ExifData          datatypes.JSONMap
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (AssetFile) TableName() string {
	return "converter_image_asset_files"
}

func (f *AssetFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// ImageData projects the record for API responses.
func (f *AssetFile) ImageData() models.ImageData {
	exif := make(map[string]string, len(f.ExifData))
	for key, value := range f.ExifData {
		if s, ok := value.(string); ok {
			exif[key] = s
		}
	}

	return models.ImageData{
		ID:                f.ID,
		URL:               f.FileURL,
		Filename:          f.Filename,
		FilenameShorter:   f.FilenameShorter,
		ContentType:       f.ContentType,
		Format:            f.Format,
		FormatDescription: f.FormatDescription,
		Size:              f.Size,
		Width:             f.Width,
		Height:            f.Height,
		AspectRatio:       f.AspectRatio.InexactFloat64(),
		ColorMode:         f.ColorMode,
		Exif:              exif,
	}
}
