package imageprocessing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	mimePNG     = "image/png"
	mimeSVG     = "image/svg+xml"
	mimeDefault = "application/octet-stream"
)

// ErrDecode is returned when a file cannot be turned into a preview.
var ErrDecode = errors.New("failed to decode preview")

// PreviewGenerator turns image files into data URLs. With a zero max width the
// file bytes are embedded unchanged; otherwise a PNG thumbnail is embedded.
type PreviewGenerator struct {
	maxWidth int
}

func NewPreviewGenerator(maxWidth int) *PreviewGenerator {
	if maxWidth < 0 {
		maxWidth = 0
	}
	return &PreviewGenerator{maxWidth: maxWidth}
}

// IsImageMediaType reports whether a declared media type is an image type.
func IsImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// DataURL encodes data as a base64 data URL of the given media type.
func DataURL(mediaType string, data []byte) string {
	if mediaType == "" {
		mediaType = mimeDefault
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Generate reads the whole file from r and returns its preview data URL.
func (g *PreviewGenerator) Generate(mediaType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if g.maxWidth == 0 {
		return DataURL(mediaType, data), nil
	}

	thumbnail, err := g.thumbnail(mediaType, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return DataURL(mimePNG, thumbnail), nil
}

func (g *PreviewGenerator) thumbnail(mediaType string, data []byte) ([]byte, error) {
	if strings.EqualFold(mediaType, mimeSVG) || isSVGData(data) {
		slog.Debug("PreviewGenerator: rendering SVG preview", "max_width", g.maxWidth)
		return renderSVGToPNG(data, g.maxWidth)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	slog.Debug("PreviewGenerator: decoded raster image",
		"format", format,
		"orig_width", img.Bounds().Dx(),
		"orig_height", img.Bounds().Dy())

	return encodePNG(scaleToWidth(img, g.maxWidth))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
