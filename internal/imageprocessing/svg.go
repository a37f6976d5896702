package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// isSVGData performs a lightweight detection of SVG content from raw bytes.
func isSVGData(data []byte) bool {
	n := len(data)
	if n == 0 {
		return false
	}
	// Only inspect the first ~4KB for detection
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\""))
}

// renderSVGToPNG rasterizes an SVG at the given width on a white canvas; the
// height follows the viewBox aspect ratio, or is square without one.
func renderSVGToPNG(svgData []byte, targetW int) ([]byte, error) {
	if targetW <= 0 {
		return nil, fmt.Errorf("invalid target width for SVG rendering: %d", targetW)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	targetH := targetW
	if icon.ViewBox.W > 0 && icon.ViewBox.H > 0 {
		_, targetH = computeScaledDimensions(int(icon.ViewBox.W), int(icon.ViewBox.H), targetW)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	return encodePNG(dst)
}
