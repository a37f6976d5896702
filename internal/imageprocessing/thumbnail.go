package imageprocessing

import (
	"image"

	"golang.org/x/image/draw"
)

// scaleToWidth shrinks img so it is at most maxWidth wide, keeping the aspect
// ratio. Images that already fit are returned as they are.
func scaleToWidth(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return img
	}
	width, height := computeScaledDimensions(bounds.Dx(), bounds.Dy(), maxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func computeScaledDimensions(originalWidth, originalHeight, targetWidth int) (int, int) {
	if originalWidth <= 0 || originalHeight <= 0 {
		return targetWidth, targetWidth
	}
	height := int(float64(targetWidth) * float64(originalHeight) / float64(originalWidth))
	if height < 1 {
		height = 1
	}
	return targetWidth, height
}
