package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "github.com/biessek/golang-ico"
	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/pkg/utils"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageFile is an uploaded or converted image together with the bytes it
// was decoded from.
type ImageFile struct {
	Filename string
	Format   string

	img    image.Image
	data   []byte
	closed bool
}

// OpenImage identifies the format of data without decoding the pixels.
func OpenImage(filename string, data []byte) (*ImageFile, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(filename, err)
	}

	return &ImageFile{
		Filename: filename,
		Format:   strings.ToUpper(format),
		data:     data,
	}, nil
}

// NewImageFile wraps an in-memory image that has no encoded form yet.
func NewImageFile(filename, format string, img image.Image) *ImageFile {
	return &ImageFile{Filename: filename, Format: format, img: img}
}

// SetFilename attaches a normalized filename. Pixels are untouched.
func (f *ImageFile) SetFilename(filename string) error {
	normalized, err := utils.NormalizeFilename(filename)
	if err != nil {
		return err
	}
	f.Filename = normalized
	return nil
}

// VerifyIntegrity fully decodes the image bytes.
func (f *ImageFile) VerifyIntegrity() error {
	if f.closed {
		return apperror.ServerError(fmt.Sprintf("Image file '%s' is closed", f.Filename))
	}
	if f.data == nil {
		if f.img == nil {
			return apperror.ServerError(fmt.Sprintf("Image file '%s' has no content", f.Filename))
		}
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(f.data))
	if err != nil {
		return decodeError(f.Filename, err)
	}
	f.img = img
	return nil
}

// Image returns the decoded pixels, decoding on first use.
func (f *ImageFile) Image() (image.Image, error) {
	if f.img == nil {
		if err := f.VerifyIntegrity(); err != nil {
			return nil, err
		}
	}
	return f.img, nil
}

// Bytes returns the encoded form the image was read from, if any.
func (f *ImageFile) Bytes() []byte {
	return f.data
}

func (f *ImageFile) Close() error {
	f.img = nil
	f.data = nil
	f.closed = true
	return nil
}

func decodeError(filename string, err error) error {
	if errors.Is(err, image.ErrFormat) {
		return apperror.BadRequest(
			fmt.Sprintf("File '%s' cannot be processed. Incompatible file type", filename))
	}
	return apperror.BadRequest("Corrupted or damaged file", fmt.Sprintf("File '%s': %v", filename, err))
}
