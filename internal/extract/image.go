package extract

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	// Decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ImageExtractor reads image dimensions and EXIF tags.
type ImageExtractor struct{}

func NewImageExtractor() *ImageExtractor {
	return &ImageExtractor{}
}

func (e *ImageExtractor) Kind() Kind {
	return KindImage
}

// Extract returns image.* dimension keys and exif.* tag keys. Files without
// EXIF data still yield dimensions; files no registered decoder understands
// are reported as unavailable.
func (e *ImageExtractor) Extract(ctx context.Context, path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	values := map[string]string{
		"image.width":  strconv.Itoa(config.Width),
		"image.height": strconv.Itoa(config.Height),
		"image.format": format,
	}

	// EXIF is optional; most PNGs and GIFs simply don't carry it.
	if _, err := f.Seek(0, 0); err != nil {
		return values, nil
	}
	x, err := exif.Decode(f)
	if err != nil {
		return values, nil
	}

	walker := exifWalker{values: values}
	_ = x.Walk(&walker)

	return values, nil
}

// exifWalker flattens EXIF fields into exif.* keys.
type exifWalker struct {
	values map[string]string
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	key := "exif." + strings.ToLower(string(name))

	if value, err := tag.StringVal(); err == nil {
		w.values[key] = strings.TrimSpace(value)
		return nil
	}
	w.values[key] = tag.String()
	return nil
}
