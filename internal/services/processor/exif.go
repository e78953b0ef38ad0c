package processor

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

var errBinaryExif = errors.New("exif value is not utf-8 text")

// exifWalker collects the tags of the primary image directory (IFD0).
// Exif, GPS and interoperability sub-directories are skipped.
type exifWalker struct {
	primary map[*tiff.Tag]struct{}
	fields  map[string]string
}

func newExifWalker(dir *tiff.Dir) *exifWalker {
	primary := make(map[*tiff.Tag]struct{}, len(dir.Tags))
	for _, tag := range dir.Tags {
		primary[tag] = struct{}{}
	}
	return &exifWalker{primary: primary, fields: make(map[string]string)}
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if _, ok := w.primary[tag]; !ok {
		return nil
	}

	switch tag.Format() {
	case tiff.StringVal:
		value, err := tag.StringVal()
		if err != nil {
			return err
		}
		w.fields[string(name)] = strings.TrimRight(value, "\x00")
	case tiff.UndefVal:
		if !utf8.Valid(tag.Val) {
			return errBinaryExif
		}
		w.fields[string(name)] = string(bytes.TrimRight(tag.Val, "\x00"))
	default:
		w.fields[string(name)] = tag.String()
	}
	return nil
}

// ExtractExif returns the primary EXIF fields of an encoded image keyed by
// tag name. Any failure yields an empty map.
func ExtractExif(data []byte) (fields map[string]string) {
	defer func() {
		if recover() != nil {
			fields = map[string]string{}
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return map[string]string{}
	}
	if x.Tiff == nil || len(x.Tiff.Dirs) == 0 {
		return map[string]string{}
	}

	walker := newExifWalker(x.Tiff.Dirs[0])
	if err := x.Walk(walker); err != nil {
		return map[string]string{}
	}
	return walker.fields
}
