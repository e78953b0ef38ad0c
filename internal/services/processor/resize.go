package processor

import (
	"image"

	"github.com/disintegration/imaging"
)

const MaxImageDimension = 4000

// limitImageSize scales img down so neither side exceeds MaxImageDimension.
// Dimensions are floored and the aspect ratio is kept.
func (p *ImageProcessor) limitImageSize(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= MaxImageDimension && bounds.Dy() <= MaxImageDimension {
		return img
	}

	// bicubic
	return imaging.Fit(img, MaxImageDimension, MaxImageDimension, imaging.CatmullRom)
}
