package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/phambaophuc/webp-converter/internal/apperror"
)

const (
	MinFilenameLength = 5
	MaxFilenameLength = 120
	filenameEllipsis  = "..."
)

var filenamePattern = regexp.MustCompile("[\\s!@#%$&^*/{}\\[\\]+<>,?;:`~]+")

var reservedFilenames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// IsReservedFilename reports whether the basename of filename is a Windows
// device name.
func IsReservedFilename(filename string) bool {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	_, ok := reservedFilenames[strings.ToUpper(base)]
	return ok
}

// NormalizeFilename replaces runs of whitespace and shell-unfriendly
// characters with a single underscore. Only undecodable names are rejected.
func NormalizeFilename(filename string) (string, error) {
	if !utf8.ValidString(filename) {
		return "", apperror.ServerError(fmt.Sprintf("Invalid filename: %q", filename))
	}
	return filenamePattern.ReplaceAllString(filename, "_"), nil
}

// TrimFilename normalizes filename and shortens it to at most maxLength
// characters, keeping the extension behind an ellipsis. It panics when
// maxLength is not positive.
func TrimFilename(filename string, maxLength int) (string, error) {
	if maxLength <= 0 {
		panic(fmt.Sprintf("maximum length must be greater than 0, got %d", maxLength))
	}

	normalized, err := NormalizeFilename(filename)
	if err != nil {
		return "", err
	}

	length := utf8.RuneCountInString(normalized)
	if length > maxLength {
		return shorten(normalized, maxLength), nil
	}

	if length >= MinFilenameLength {
		return normalized, nil
	}

	return "", apperror.BadRequest(
		fmt.Sprintf("Filename '%s' is too short. Minimal length: %d", normalized, MinFilenameLength))
}

func shorten(filename string, maxLength int) string {
	ext := []rune(filepath.Ext(filename))
	base := []rune(strings.TrimSuffix(filename, string(ext)))
	ellipsis := []rune(filenameEllipsis)

	keep := maxLength - len(ellipsis) - len(ext)
	if keep >= 0 {
		return string(base[:min(keep, len(base))]) + filenameEllipsis + string(ext)
	}

	// extension alone does not fit
	tail := append(ellipsis, ext...)
	return string(tail[:maxLength])
}

// GetBasename normalizes filename and strips its extension.
func GetBasename(filename string) (string, error) {
	normalized, err := NormalizeFilename(filename)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(normalized, filepath.Ext(normalized)), nil
}
