package pointcloud

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestWritePLYFormat(t *testing.T) {
	pts := []PointXYZRGB{
		{X: 1.5, Y: -2.25, Z: 0.000004, R: 1, G: 2, B: 255},
		{X: 0.123456, Y: 10, Z: -3.000001},
	}
	var buf bytes.Buffer
	test.That(t, WritePLY(&buf, pts, true), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "ply\n"+
		"format ascii 1.0\n"+
		"element vertex 2\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"property uchar red\n"+
		"property uchar green\n"+
		"property uchar blue\n"+
		"end_header\n"+
		"1.50000 -2.25000 0.00000 1 2 255\n"+
		"0.12346 10.00000 -3.00000 0 0 0\n")

	buf.Reset()
	test.That(t, WritePLY(&buf, pts[:1], false), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "ply\n"+
		"format ascii 1.0\n"+
		"element vertex 1\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"end_header\n"+
		"1.50000 -2.25000 0.00000\n")
}

func TestPLYRoundTrip(t *testing.T) {
	pts := randomCloud(5, 1000, 20)
	for _, withColor := range []bool{true, false} {
		var buf bytes.Buffer
		test.That(t, WritePLY(&buf, pts, withColor), test.ShouldBeNil)

		// The header's vertex count matches the number of body lines.
		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		headerLen := 7
		if withColor {
			headerLen = 10
		}
		test.That(t, len(lines), test.ShouldEqual, headerLen+len(pts))

		read, hasColor, err := ReadPLY(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, hasColor, test.ShouldEqual, withColor)
		test.That(t, len(read), test.ShouldEqual, len(pts))
		for i, p := range read {
			test.That(t, math.Abs(float64(p.X-pts[i].X)), test.ShouldBeLessThanOrEqualTo, 6e-6)
			test.That(t, math.Abs(float64(p.Y-pts[i].Y)), test.ShouldBeLessThanOrEqualTo, 6e-6)
			test.That(t, math.Abs(float64(p.Z-pts[i].Z)), test.ShouldBeLessThanOrEqualTo, 6e-6)
			if withColor {
				test.That(t, p.R, test.ShouldEqual, pts[i].R)
			} else {
				test.That(t, p.R, test.ShouldEqual, uint8(0))
			}
		}
	}
}

func TestReadPLYErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no magic", "plx\nend_header\n"},
		{"no end", "ply\nformat ascii 1.0\nelement vertex 1\n"},
		{"no vertex", "ply\nformat ascii 1.0\nend_header\n"},
		{"no z", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n1 2\n"},
		{"list coordinate", "ply\nformat ascii 1.0\nelement vertex 1\nproperty list uchar float x\nproperty float y\n" +
			"property float z\nend_header\n1 5 2 3\n"},
		{"wide color", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\n" +
			"property int red\nproperty int green\nproperty int blue\nend_header\n1 2 3 4 5 300\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ReadPLY(strings.NewReader(tc.in))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestReadPLYIgnoresOtherElements(t *testing.T) {
	in := "ply\nformat ascii 1.0\ncomment made by hand\nelement vertex 1\nproperty float x\nproperty float y\n" +
		"property float z\nelement face 0\nproperty list uchar int vertex_indices\nend_header\n1 2 3\n"
	pts, hasColor, err := ReadPLY(strings.NewReader(in))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hasColor, test.ShouldBeFalse)
	test.That(t, pts, test.ShouldResemble, []PointXYZRGB{{X: 1, Y: 2, Z: 3}})
}

func TestReadPLYPropertyTypes(t *testing.T) {
	in := "ply\nformat ascii 1.0\nelement vertex 2\nproperty double x\nproperty int y\nproperty short z\n" +
		"property uchar red\nproperty ushort green\nproperty int blue\nproperty float confidence\nend_header\n" +
		"0.5 -2 7 10 20 30 0.9\n1.25 4 -1 255 0 1 0.1\n"
	pts, hasColor, err := ReadPLY(strings.NewReader(in))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hasColor, test.ShouldBeTrue)
	test.That(t, pts, test.ShouldResemble, []PointXYZRGB{
		{X: 0.5, Y: -2, Z: 7, R: 10, G: 20, B: 30},
		{X: 1.25, Y: 4, Z: -1, R: 255, G: 0, B: 1},
	})

	noVertices := "ply\nformat ascii 1.0\nelement vertex 0\nproperty float x\nproperty float y\nproperty float z\nend_header\n"
	pts, hasColor, err = ReadPLY(strings.NewReader(noVertices))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hasColor, test.ShouldBeFalse)
	test.That(t, pts, test.ShouldBeEmpty)
}
