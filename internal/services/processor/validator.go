package processor

import (
	"fmt"
	"unicode/utf8"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/phambaophuc/webp-converter/pkg/utils"
)

const (
	MinQuality    = 5
	MaxQuality    = 100
	MaxFileSize   = 6_291_456
	MaxFilesLimit = 10

	mebibyte = 1024 * 1024
)

// ValidateRequest checks a conversion request and reports every problem at
// once.
func (p *ImageProcessor) ValidateRequest(req *models.ConversionRequest) error {
	var reasons []string

	switch {
	case len(req.Files) == 0:
		reasons = append(reasons, "No files uploaded")
	case len(req.Files) > MaxFilesLimit:
		reasons = append(reasons, fmt.Sprintf("Too many files uploaded. Allowed %d files to upload", MaxFilesLimit))
	}

	for _, file := range req.Files {
		reasons = append(reasons, validateFile(file)...)
	}

	if !models.IsOutputFormat(req.Options.OutputFormat) {
		reasons = append(reasons, fmt.Sprintf("Invalid output format '%s'", req.Options.OutputFormat))
	}
	if req.Options.Quality < MinQuality || req.Options.Quality > MaxQuality {
		reasons = append(reasons, fmt.Sprintf("Quality must be between %d and %d", MinQuality, MaxQuality))
	}

	if len(reasons) > 0 {
		return apperror.BadRequest("Invalid request", reasons...)
	}
	return nil
}

func validateFile(file models.UploadedFile) []string {
	var reasons []string

	switch {
	case file.Filename == "":
		reasons = append(reasons, "Filename must not be empty")
	case utf8.RuneCountInString(file.Filename) > utils.MaxFilenameLength:
		reasons = append(reasons,
			fmt.Sprintf("Filename '%s' is too long (max length: %d)", file.Filename, utils.MaxFilenameLength))
	case utils.IsReservedFilename(file.Filename):
		reasons = append(reasons,
			fmt.Sprintf("Filename '%s' is a reserved name that cannot be used as a file name", file.Filename))
	}

	switch {
	case file.Size == 0:
		reasons = append(reasons, fmt.Sprintf("File '%s' does not have size", file.Filename))
	case file.Size > MaxFileSize:
		reasons = append(reasons, fmt.Sprintf("File '%s' is too large (%.2f MiB). Max allowed size is %.2f MiB",
			file.Filename, float64(file.Size)/mebibyte, float64(MaxFileSize)/mebibyte))
	}

	return reasons
}
