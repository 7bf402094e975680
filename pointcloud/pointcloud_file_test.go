package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestWriteToFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "scan.ply")
	test.That(t, os.WriteFile(fn, []byte("old"), 0o600), test.ShouldBeNil)

	pts := MakeTestPointCloud()
	test.That(t, WriteToFile(pts, fn, WriteOptions{Format: FormatPLY, WithColor: true}), test.ShouldBeNil)

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 1)
	test.That(t, entries[0].Name(), test.ShouldEqual, "scan.ply")

	read, hasColor, err := ReadFromFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hasColor, test.ShouldBeTrue)
	test.That(t, read, test.ShouldResemble, pts)
}

func TestWriteToFileFailure(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "missing", "scan.ply")
	err := WriteToFile(MakeTestPointCloud(), fn, WriteOptions{})
	test.That(t, err, test.ShouldNotBeNil)
	_, statErr := os.Stat(fn)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)

	// An unknown format leaves neither the destination nor a temporary file behind.
	fn = filepath.Join(dir, "scan.xyz")
	err = WriteToFile(MakeTestPointCloud(), fn, WriteOptions{Format: Format("xyz")})
	test.That(t, err, test.ShouldNotBeNil)
	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldBeEmpty)

	// The destination is a directory, so the rename fails and the old contents stay.
	fn = filepath.Join(dir, "taken")
	test.That(t, os.MkdirAll(filepath.Join(fn, "child"), 0o750), test.ShouldBeNil)
	err = WriteToFile(MakeTestPointCloud(), fn, WriteOptions{Format: FormatPLY})
	test.That(t, err, test.ShouldNotBeNil)
	entries, err = os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 1)
}

func TestPCDRoundTrip(t *testing.T) {
	pts := randomCloud(9, 200, 4)
	for _, pcdType := range []PCDType{PCDAscii, PCDBinary} {
		for _, withColor := range []bool{true, false} {
			var buf bytes.Buffer
			test.That(t, ToPCD(pts, withColor, &buf, pcdType), test.ShouldBeNil)
			read, hasColor, err := ReadPCD(&buf)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, hasColor, test.ShouldEqual, withColor)
			test.That(t, len(read), test.ShouldEqual, len(pts))
			for i, p := range read {
				test.That(t, p.X, test.ShouldAlmostEqual, pts[i].X, 1e-6)
				test.That(t, p.Z, test.ShouldAlmostEqual, pts[i].Z, 1e-6)
				if withColor {
					test.That(t, p.R, test.ShouldEqual, pts[i].R)
				}
			}
		}
	}

	var buf bytes.Buffer
	test.That(t, ToPCD(pts, false, &buf, PCDCompressed), test.ShouldNotBeNil)
}

func TestPCDFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "scan.pcd")
	pts := MakeTestPointCloud()
	test.That(t, WriteToFile(pts, fn, WriteOptions{Format: FormatPCD, WithColor: true}), test.ShouldBeNil)
	read, hasColor, err := ReadFromFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hasColor, test.ShouldBeTrue)
	test.That(t, read, test.ShouldResemble, pts)
}

func TestLASFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "scan.las")
	pts := []PointXYZRGB{
		{X: -1, Y: 2, Z: 5, R: 10, G: 20, B: 30},
		{X: 0.5, Y: 0.25, Z: 1, R: 255, G: 0, B: 128},
	}
	test.That(t, WriteToFile(pts, fn, WriteOptions{Format: FormatLAS, WithColor: true}), test.ShouldBeNil)

	read, hasColor, err := ReadFromFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hasColor, test.ShouldBeTrue)
	test.That(t, len(read), test.ShouldEqual, len(pts))
	for i, p := range read {
		test.That(t, p.X, test.ShouldAlmostEqual, pts[i].X, 1e-3)
		test.That(t, p.Y, test.ShouldAlmostEqual, pts[i].Y, 1e-3)
		test.That(t, p.Z, test.ShouldAlmostEqual, pts[i].Z, 1e-3)
		test.That(t, p.Color(), test.ShouldResemble, pts[i].Color())
	}
}

func TestFormatFromPath(t *testing.T) {
	for fn, expected := range map[string]Format{
		"a.ply":     FormatPLY,
		"b/c.PCD":   FormatPCD,
		"scan.las":  FormatLAS,
		"x.tmp.ply": FormatPLY,
	} {
		f, err := FormatFromPath(fn)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, f, test.ShouldEqual, expected)
	}
	_, err := FormatFromPath("noext")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = FormatFromPath("x.obj")
	test.That(t, err, test.ShouldNotBeNil)
}
