// Package media prepares downloaded images for vision providers.
package media

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultMaxSide is the longest image side sent to providers.
const DefaultMaxSide = 2048

// AllowedImageTypes are passed through to providers as-is; other image types are sent as JPEG.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// NormalizeMime maps a declared MIME type onto AllowedImageTypes.
// Empty and unknown image types become image/jpeg.
func NormalizeMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if AllowedImageTypes[mime] {
		return mime
	}
	return "image/jpeg"
}

// IsImage reports whether a document MIME type can be analysed.
// An empty type is accepted and treated as JPEG.
func IsImage(mime string) bool {
	mime = strings.TrimSpace(mime)
	return mime == "" || strings.HasPrefix(strings.ToLower(mime), "image/")
}

// Normalize downscales images whose longest side exceeds maxSide and
// re-encodes them as JPEG. Images within bounds, and formats imaging cannot
// decode, are returned unchanged.
func Normalize(data []byte, mime string, maxSide int) ([]byte, string, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return data, mime, nil
	}
	if cfg.Width <= maxSide && cfg.Height <= maxSide {
		return data, mime, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
