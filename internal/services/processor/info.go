package processor

import (
	"path/filepath"
	"strings"

	"github.com/phambaophuc/webp-converter/pkg/utils"
	"github.com/shopspring/decimal"
)

const ShortFilenameLength = 25

var formatDescriptions = map[string]string{
	"JPEG": "JPEG (ISO 10918)",
	"PNG":  "Portable network graphics",
	"GIF":  "Compuserve GIF",
	"BMP":  "Windows Bitmap",
	"TIFF": "Adobe TIFF",
	"WEBP": "WebP image",
	"ICO":  "Windows Icon",
}

type FilenameDetails struct {
	Fullname  string
	Basename  string
	Shortname string
}

type FileDetails struct {
	Format            string
	FormatDescription string
	Content           []byte
	Size              int64
	Width             int
	Height            int
	AspectRatio       decimal.Decimal
	ColorMode         string
	Exif              map[string]string
}

// ImageFileInfo is the structural metadata of one image.
type ImageFileInfo struct {
	FilenameDetails FilenameDetails
	FileDetails     FileDetails
}

func (i *ImageFileInfo) ContentType() string {
	return "image/" + strings.ToLower(i.FileDetails.Format)
}

// GetInfo extracts the metadata of img. EXIF is best effort and never fails
// the call.
func (p *ImageProcessor) GetInfo(img *ImageFile) (*ImageFileInfo, error) {
	fullname, err := utils.NormalizeFilename(img.Filename)
	if err != nil {
		return nil, err
	}
	shortname, err := utils.TrimFilename(img.Filename, ShortFilenameLength)
	if err != nil {
		return nil, err
	}

	pixels, err := img.Image()
	if err != nil {
		return nil, err
	}
	content, err := p.Encode(img)
	if err != nil {
		return nil, err
	}

	width, height := pixels.Bounds().Dx(), pixels.Bounds().Dy()

	return &ImageFileInfo{
		FilenameDetails: FilenameDetails{
			Fullname:  fullname,
			Basename:  strings.TrimSuffix(fullname, filepath.Ext(fullname)),
			Shortname: shortname,
		},
		FileDetails: FileDetails{
			Format:            img.Format,
			FormatDescription: formatDescriptions[img.Format],
			Content:           content,
			Size:              int64(len(content)),
			Width:             width,
			Height:            height,
			AspectRatio:       AspectRatio(width, height),
			ColorMode:         ColorMode(pixels),
			Exif:              ExtractExif(content),
		},
	}, nil
}

// AspectRatio is width/height rounded up to one decimal place.
func AspectRatio(width, height int) decimal.Decimal {
	if height == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(width)).Div(decimal.NewFromInt(int64(height))).RoundUp(1)
}
