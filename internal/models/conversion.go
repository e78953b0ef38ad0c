package models

import "strings"

type ConversionOptions struct {
	OutputFormat string `json:"output_format"`
	Quality      int    `json:"quality"`
}

type UploadedFile struct {
	Filename string
	Size     int64
	Data     []byte
}

type ConversionRequest struct {
	Files   []UploadedFile
	Options ConversionOptions
}

const (
	FormatJPEG = "JPEG"
	FormatBMP  = "BMP"
	FormatTIFF = "TIFF"
	FormatWebP = "WEBP"
	FormatPNG  = "PNG"
	FormatGIF  = "GIF"
	FormatICO  = "ICO"
)

// OutputFormats lists every format a conversion can target.
var OutputFormats = []string{FormatJPEG, FormatBMP, FormatTIFF, FormatWebP, FormatPNG, FormatGIF, FormatICO}

// AlphaFormats can store an alpha channel.
var AlphaFormats = []string{FormatWebP, FormatPNG, FormatGIF, FormatICO}

func IsOutputFormat(format string) bool {
	return contains(OutputFormats, format)
}

func IsAlphaFormat(format string) bool {
	return contains(AlphaFormats, strings.ToUpper(format))
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
