package processor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	ModeRGB     = "RGB"
	ModeRGBA    = "RGBA"
	ModePalette = "P"
)

// ColorMode names the pixel layout of img using the conventional short
// mode names (P, RGB, RGBA, L, ...).
func ColorMode(img image.Image) string {
	switch m := img.(type) {
	case *image.Paletted:
		return ModePalette
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return ModeRGBA
	case *image.RGBA:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.RGBA64:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.YCbCr:
		return ModeRGB
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.CMYK:
		return "CMYK"
	default:
		return ModeRGBA
	}
}

// toRGBA copies img into a non-premultiplied RGBA image.
func toRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// toRGB drops the alpha channel without blending.
func toRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// flattenOnWhite composites img over an opaque white background.
func flattenOnWhite(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	bg := imaging.New(src.Bounds().Dx(), src.Bounds().Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}

// reconcileColorMode prepares img for a target with or without alpha.
func reconcileColorMode(img image.Image, sourceHasAlpha, targetHasAlpha bool) *image.NRGBA {
	switch {
	case ColorMode(img) == ModePalette:
		if targetHasAlpha {
			return toRGBA(img)
		}
		return toRGB(img)
	case sourceHasAlpha && !targetHasAlpha:
		return flattenOnWhite(img)
	case targetHasAlpha:
		return toRGBA(img)
	default:
		return toRGB(img)
	}
}
