package pointcloud

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestDescribe(t *testing.T) {
	test.That(t, Describe(nil).Count, test.ShouldEqual, 0)

	one := Describe([]PointXYZRGB{{X: 1, Y: 2, Z: 3}})
	test.That(t, one.Centroid, test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, one.Extents, test.ShouldResemble, [3]float64{})

	// A 2 x 0.5 x 0.1 box of points rotated 30 degrees about Z.
	var pts []PointXYZRGB
	theta := math.Pi / 6
	for i := 0; i <= 20; i++ {
		for j := 0; j <= 5; j++ {
			for k := 0; k <= 1; k++ {
				x, y, z := -1+0.1*float64(i), -0.25+0.1*float64(j), -0.05+0.1*float64(k)
				pts = append(pts, PointXYZRGB{
					X: float32(x*math.Cos(theta) - y*math.Sin(theta) + 3),
					Y: float32(x*math.Sin(theta) + y*math.Cos(theta)),
					Z: float32(z),
				})
			}
		}
	}
	d := Describe(pts)
	test.That(t, d.Count, test.ShouldEqual, len(pts))
	test.That(t, d.Centroid.X, test.ShouldAlmostEqual, 3, 1e-5)
	test.That(t, d.Extents[0], test.ShouldAlmostEqual, 2, 1e-4)
	test.That(t, d.Extents[1], test.ShouldAlmostEqual, 0.5, 1e-4)
	test.That(t, d.Extents[2], test.ShouldAlmostEqual, 0.1, 1e-4)
	test.That(t, math.Abs(d.Axes[0].Dot(r3.Vector{X: math.Cos(theta), Y: math.Sin(theta)})), test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, d.Min.Z, test.ShouldAlmostEqual, -0.05, 1e-6)
	test.That(t, d.Max.Z, test.ShouldAlmostEqual, 0.05, 1e-6)
}

func TestDecimate(t *testing.T) {
	pts := randomCloud(3, 10, 1)
	test.That(t, Decimate(pts, 0), test.ShouldResemble, pts)
	test.That(t, Decimate(pts, 10), test.ShouldResemble, pts)

	out := Decimate(pts, 4)
	test.That(t, out, test.ShouldResemble, []PointXYZRGB{pts[0], pts[3], pts[6], pts[9]})
	test.That(t, len(Decimate(pts, 3)), test.ShouldEqual, 3)
	test.That(t, len(Decimate(pts, 9)), test.ShouldBeLessThanOrEqualTo, 9)
}

func TestWritePreview(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, WritePreview(randomCloud(4, 500, 2), "scan", &buf), test.ShouldBeNil)
	img, err := png.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldBeGreaterThan, 0)

	buf.Reset()
	test.That(t, WritePreview(nil, "empty", &buf), test.ShouldBeNil)
}
