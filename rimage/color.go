package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// NeutralGray is the color given to points when no color source is used.
var NeutralGray = color.RGBA{R: 200, G: 200, B: 200, A: 255}

var (
	nearColor = colorful.Hsv(240, 0.9, 0.9)
	farColor  = colorful.Hsv(0, 0.9, 0.9)
)

// Luminance returns the brightness of the pixel at (x, y) of img, in image coordinates.
// Out of bounds pixels are black. Planar YCbCr and gray images are read directly from their luma
// plane; anything else goes through CIE L*.
func Luminance(img image.Image, x, y int) uint8 {
	if !(image.Point{x, y}).In(img.Bounds()) {
		return 0
	}
	switch typed := img.(type) {
	case *image.YCbCr:
		return typed.Y[typed.YOffset(x, y)]
	case *image.Gray:
		return typed.GrayAt(x, y).Y
	}
	cc, ok := colorful.MakeColor(img.At(x, y))
	if !ok {
		// fully transparent
		return 0
	}
	l, _, _ := cc.Lab()
	return uint8(math.Round(math.Min(1, math.Max(0, l)) * 255))
}

// DepthRamp maps z in [minDepth, maxDepth] onto a blue (near) to red (far) ramp blended in HCL.
func DepthRamp(z, minDepth, maxDepth float32) (uint8, uint8, uint8) {
	t := 0.0
	if maxDepth > minDepth {
		t = float64((z - minDepth) / (maxDepth - minDepth))
	}
	t = math.Min(1, math.Max(0, t))
	return nearColor.BlendHcl(farColor, t).Clamped().RGB255()
}

// AlignToDepth resamples img to width x height so that pixel (u, v) of the result lines up
// with depth pixel (u, v). The image is returned unchanged when it already has that size.
func AlignToDepth(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height && b.Min == (image.Point{}) {
		return img
	}
	return imaging.Resize(img, width, height, imaging.NearestNeighbor)
}
