package processor

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"

	ico "github.com/biessek/golang-ico"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/jpegli"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/phambaophuc/webp-converter/internal/models"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

const (
	// SafeArea is the pixel count above which encoders favour speed.
	SafeArea = 1_000_000

	maxIconDimension = 256
	losslessLevel    = 6
)

func (p *ImageProcessor) encodeImage(w io.Writer, img image.Image, format string, quality int) error {
	area := img.Bounds().Dx() * img.Bounds().Dy()

	switch format {
	case models.FormatJPEG:
		return encodeJPEG(w, img, quality, area)
	case models.FormatPNG:
		return encodePNG(w, img, area)
	case models.FormatWebP:
		return encodeWebP(w, img, quality)
	case models.FormatTIFF:
		return encodeTIFF(w, img)
	case models.FormatBMP:
		return bmp.Encode(w, img)
	case models.FormatGIF:
		return encodeGIF(w, img)
	case models.FormatICO:
		return encodeICO(w, img)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func jpegOptions(quality, area int) *jpegli.EncodingOptions {
	opts := &jpegli.EncodingOptions{
		Quality:              quality,
		ChromaSubsampling:    image.YCbCrSubsampleRatio420,
		OptimizeCoding:       true,
		AdaptiveQuantization: true,
	}
	if quality >= 95 {
		opts.ChromaSubsampling = image.YCbCrSubsampleRatio444
	}
	if area > SafeArea {
		opts.ProgressiveLevel = 2
	}
	return opts
}

func encodeJPEG(w io.Writer, img image.Image, quality, area int) error {
	return jpegli.Encode(w, img, jpegOptions(quality, area))
}

func pngLevel(area int) png.CompressionLevel {
	if area >= SafeArea {
		return png.DefaultCompression
	}
	return png.BestCompression
}

func encodePNG(w io.Writer, img image.Image, area int) error {
	enc := png.Encoder{CompressionLevel: pngLevel(area)}
	return enc.Encode(w, img)
}

type webpSettings struct {
	lossless bool
	quality  float32
	method   int
}

func webpParams(quality int) webpSettings {
	settings := webpSettings{quality: float32(quality), method: 5}
	if quality >= 98 {
		settings.lossless = true
	}
	if quality < 90 {
		settings.method = 4
	}
	return settings
}

func webpOptions(quality int) (*encoder.Options, error) {
	settings := webpParams(quality)

	var (
		opts *encoder.Options
		err  error
	)
	if settings.lossless {
		opts, err = encoder.NewLosslessEncoderOptions(encoder.PresetDefault, losslessLevel)
	} else {
		opts, err = encoder.NewLossyEncoderOptions(encoder.PresetDefault, settings.quality)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build webp options: %w", err)
	}

	opts.Method = settings.method
	return opts, nil
}

func encodeWebP(w io.Writer, img image.Image, quality int) error {
	opts, err := webpOptions(quality)
	if err != nil {
		return err
	}
	return webp.Encode(w, img, opts)
}

func encodeTIFF(w io.Writer, img image.Image) error {
	// RGB images get the predictor as the lossless stand-in for JPEG-in-TIFF.
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: isOpaque(img)})
}

func encodeGIF(w io.Writer, img image.Image) error {
	if paletted, ok := img.(*image.Paletted); ok {
		return gif.Encode(w, paletted, nil)
	}

	colors := make(color.Palette, 0, 256)
	colors = append(colors, color.Transparent)
	colors = append(colors, palette.Plan9[:255]...)

	bounds := img.Bounds()
	dst := image.NewPaletted(bounds, colors)
	draw.FloydSteinberg.Draw(dst, bounds, img, bounds.Min)
	return gif.Encode(w, dst, &gif.Options{NumColors: len(colors)})
}

func encodeICO(w io.Writer, img image.Image) error {
	if img.Bounds().Dx() > maxIconDimension || img.Bounds().Dy() > maxIconDimension {
		img = imaging.Fit(img, maxIconDimension, maxIconDimension, imaging.Lanczos)
	}
	return ico.Encode(w, img)
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
