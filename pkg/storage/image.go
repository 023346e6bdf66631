package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// Bounding boxes for uploaded images. Larger images are downscaled preserving aspect ratio.
const (
	ProfilePhotoMaxSide = 512
	MediaMaxSide        = 1600
)

// ErrNotImage is returned when an upload does not decode as a supported image.
var ErrNotImage = errors.New("file is not a supported image")

// IsImageContentType reports whether a declared MIME type is image/*.
func IsImageContentType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "image/")
}

// NormalizeImage decodes an uploaded image, applies EXIF orientation, fits it inside
// maxSide x maxSide and re-encodes it. PNG and GIF stay PNG; everything else becomes JPEG.
// Returns the encoded bytes and the resulting content type.
func NormalizeImage(r io.Reader, contentType string, maxSide int) ([]byte, string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	format, outType := imaging.JPEG, "image/jpeg"
	switch strings.ToLower(contentType) {
	case "image/png", "image/gif":
		format, outType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), outType, nil
}

// ImageExtension returns the file extension for a content type produced by NormalizeImage.
func ImageExtension(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
