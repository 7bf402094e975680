package rimage

import (
	"image"
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDepthMapBasics(t *testing.T) {
	dm := NewEmptyDepthMap(3, 2)
	test.That(t, dm.Width(), test.ShouldEqual, 3)
	test.That(t, dm.Height(), test.ShouldEqual, 2)

	dm.Set(2, 1, 4.5)
	test.That(t, dm.At(2, 1), test.ShouldEqual, float32(4.5))
	// Row-major layout.
	test.That(t, dm.Data()[5], test.ShouldEqual, float32(4.5))

	clone := dm.Clone()
	clone.Set(2, 1, 1)
	test.That(t, dm.At(2, 1), test.ShouldEqual, float32(4.5))

	_, err := NewDepthMapFromData(2, 2, []float32{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDepthMapFromData(0, 2, nil)
	test.That(t, err, test.ShouldNotBeNil)
	wrapped, err := NewDepthMapFromData(2, 2, []float32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wrapped.At(1, 1), test.ShouldEqual, float32(4))
}

func TestValidDepth(t *testing.T) {
	const lo, hi = 0.1, 8.0
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, tc := range []struct {
		z        float32
		expected bool
	}{
		{0.05, false},
		{0.1, false},
		{0.1001, true},
		{4, true},
		{8, true},
		{8.1, false},
		{0, false},
		{-1, false},
		{nan, false},
		{inf, false},
	} {
		test.That(t, ValidDepth(tc.z, lo, hi), test.ShouldEqual, tc.expected)
	}
}

func TestDepthStats(t *testing.T) {
	dm, err := NewDepthMapFromData(3, 2, []float32{0, 1, 2, 3, 4, float32(math.NaN())})
	test.That(t, err, test.ShouldBeNil)

	s := dm.Stats(0.1, 8)
	test.That(t, s.Total, test.ShouldEqual, 6)
	test.That(t, s.Valid, test.ShouldEqual, 4)
	test.That(t, s.Coverage(), test.ShouldAlmostEqual, 4.0/6.0)
	test.That(t, s.Min, test.ShouldEqual, 1.0)
	test.That(t, s.Max, test.ShouldEqual, 4.0)
	test.That(t, s.Median, test.ShouldAlmostEqual, 2.5)

	empty := NewEmptyDepthMap(2, 2).Stats(0.1, 8)
	test.That(t, empty.Valid, test.ShouldEqual, 0)
	test.That(t, empty.Coverage(), test.ShouldEqual, 0.0)
}

func TestLuminance(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 1, color.Gray{Y: 77})
	test.That(t, Luminance(gray, 1, 1), test.ShouldEqual, uint8(77))
	test.That(t, Luminance(gray, 5, 5), test.ShouldEqual, uint8(0))

	ycc := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	ycc.Y[ycc.YOffset(2, 3)] = 140
	test.That(t, Luminance(ycc, 2, 3), test.ShouldEqual, uint8(140))

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 2))
	rgba.Set(0, 0, color.RGBA{255, 255, 255, 255})
	rgba.Set(0, 1, color.RGBA{0, 0, 0, 255})
	test.That(t, Luminance(rgba, 0, 0), test.ShouldEqual, uint8(255))
	test.That(t, Luminance(rgba, 0, 1), test.ShouldEqual, uint8(0))
}

func TestDepthRamp(t *testing.T) {
	r, _, b := DepthRamp(0.1, 0.1, 8)
	test.That(t, b, test.ShouldBeGreaterThan, r)
	r, _, b = DepthRamp(8, 0.1, 8)
	test.That(t, r, test.ShouldBeGreaterThan, b)
	// Out of range depths clamp to the ends of the ramp.
	r1, g1, b1 := DepthRamp(100, 0.1, 8)
	r2, g2, b2 := DepthRamp(8, 0.1, 8)
	test.That(t, []uint8{r1, g1, b1}, test.ShouldResemble, []uint8{r2, g2, b2})
}

func TestAlignToDepth(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	test.That(t, AlignToDepth(img, 8, 6), test.ShouldEqual, img)

	aligned := AlignToDepth(img, 4, 3)
	test.That(t, aligned.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
}
