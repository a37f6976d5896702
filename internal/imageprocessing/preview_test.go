package imageprocessing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func createPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, dataURL string) (string, []byte) {
	t.Helper()
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		t.Fatalf("not a data URL: %q", dataURL)
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("invalid base64 payload: %v", err)
	}
	return mediaType, data
}

func TestIsImageMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      bool
	}{
		{"image/jpeg", true},
		{"IMAGE/PNG", true},
		{"image/svg+xml", true},
		{"application/pdf", false},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsImageMediaType(tt.mediaType); got != tt.want {
			t.Errorf("IsImageMediaType(%q) = %v, want %v", tt.mediaType, got, tt.want)
		}
	}
}

func TestDataURL(t *testing.T) {
	got := DataURL("image/jpeg", []byte{0xff, 0xd8, 0xff})
	if got != "data:image/jpeg;base64,/9j/" {
		t.Fatalf("unexpected data URL %q", got)
	}
	if got := DataURL("", []byte("x")); !strings.HasPrefix(got, "data:application/octet-stream;base64,") {
		t.Fatalf("expected default media type, got %q", got)
	}
}

func TestGenerate_RawPreviewEmbedsFileBytes(t *testing.T) {
	data := []byte("not really a jpeg but raw previews do not decode")
	preview, err := NewPreviewGenerator(0).Generate("image/jpeg", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	mediaType, payload := decodeDataURL(t, preview)
	if mediaType != "image/jpeg" {
		t.Errorf("expected media type image/jpeg, got %q", mediaType)
	}
	if !bytes.Equal(payload, data) {
		t.Errorf("expected payload to equal the input bytes")
	}
}

func TestGenerate_ThumbnailScalesDown(t *testing.T) {
	preview, err := NewPreviewGenerator(100).Generate("image/png", bytes.NewReader(createPNG(t, 400, 200)))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	mediaType, payload := decodeDataURL(t, preview)
	if mediaType != "image/png" {
		t.Fatalf("expected PNG thumbnail, got %q", mediaType)
	}
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Fatalf("expected 100x50 thumbnail, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestGenerate_ThumbnailKeepsSmallImages(t *testing.T) {
	preview, err := NewPreviewGenerator(100).Generate("image/png", bytes.NewReader(createPNG(t, 40, 30)))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	_, payload := decodeDataURL(t, preview)
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Fatalf("expected 40x30 preview, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestGenerate_ThumbnailFromSVG(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100"><rect x="0" y="0" width="200" height="100" fill="#ff0000"/></svg>`
	preview, err := NewPreviewGenerator(50).Generate("image/svg+xml", strings.NewReader(svg))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	_, payload := decodeDataURL(t, preview)
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("SVG preview is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Fatalf("expected 50x25 preview, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestGenerate_ThumbnailDecodeError(t *testing.T) {
	_, err := NewPreviewGenerator(100).Generate("image/png", strings.NewReader("garbage"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestGenerate_ReadError(t *testing.T) {
	_, err := NewPreviewGenerator(0).Generate("image/png", failingReader{})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestComputeScaledDimensions(t *testing.T) {
	tests := []struct {
		w, h, target int
		wantW, wantH int
	}{
		{400, 200, 100, 100, 50},
		{100, 400, 50, 50, 200},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		gotW, gotH := computeScaledDimensions(tt.w, tt.h, tt.target)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("computeScaledDimensions(%d,%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, tt.target, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}
