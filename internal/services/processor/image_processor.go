package processor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/phambaophuc/webp-converter/pkg/utils"
)

type ImageProcessor struct{}

func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{}
}

// Convert renders img in the requested output format. The returned image is
// decoded from the freshly encoded bytes and carries the
// webpeditor_{basename}.{ext} filename.
func (p *ImageProcessor) Convert(img *ImageFile, options models.ConversionOptions) (*ImageFile, error) {
	if img.Format == "" {
		return nil, apperror.ServerError("Unable to convert image. Invalid image format")
	}

	basename, err := utils.GetBasename(img.Filename)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("webpeditor_%s.%s", basename, strings.ToLower(options.OutputFormat))

	src, err := img.Image()
	if err != nil {
		return nil, err
	}

	resized := p.limitImageSize(src)

	sourceHasAlpha := ColorMode(resized) == ModeRGBA || models.IsAlphaFormat(img.Format)
	targetHasAlpha := models.IsAlphaFormat(options.OutputFormat)
	prepared := reconcileColorMode(resized, sourceHasAlpha, targetHasAlpha)

	buffer := &bytes.Buffer{}
	if err := p.encodeImage(buffer, prepared, options.OutputFormat, options.Quality); err != nil {
		return nil, apperror.ServerError(
			fmt.Sprintf("Failed to convert image '%s' to %s", img.Filename, options.OutputFormat), err.Error())
	}

	converted, err := OpenImage(filename, buffer.Bytes())
	if err != nil {
		return nil, err
	}
	if err := converted.VerifyIntegrity(); err != nil {
		return nil, err
	}
	return converted, nil
}

// Encode serializes img in its own format with default settings.
func (p *ImageProcessor) Encode(img *ImageFile) ([]byte, error) {
	if data := img.Bytes(); data != nil {
		return data, nil
	}

	pixels, err := img.Image()
	if err != nil {
		return nil, err
	}

	buffer := &bytes.Buffer{}
	if err := p.encodeImage(buffer, pixels, img.Format, defaultQuality); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buffer.Bytes(), nil
}

const defaultQuality = 95
