package capture

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/geo/r3"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/rimage/transform"
	"github.com/ganadobravo/scanfusion/testutils"
)

func TestCaptureRoundTrip(t *testing.T) {
	orbit := testutils.DefaultOrbit()
	orbit.Count = 5
	orbit.WithColor = true
	frames := orbit.Frames(testutils.DefaultAnimal())
	frames[2].Depth = nil
	frames[2].Color = nil
	frames[3].Tracking = keyframe.TrackingLimited
	frames[3].Depth.Set(0, 0, float32(math.NaN()))

	created := time.Date(2024, 5, 1, 12, 30, 15, 123456789, time.UTC)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{DeviceModel: "iPhone15,3", HasDepth: true, Created: created})
	test.That(t, err, test.ShouldBeNil)
	for _, f := range frames {
		test.That(t, w.WriteFrame(f), test.ShouldBeNil)
	}
	test.That(t, w.Frames(), test.ShouldEqual, len(frames))
	test.That(t, w.Close(), test.ShouldBeNil)

	r, err := NewReader(&buf)
	test.That(t, err, test.ShouldBeNil)
	header := r.Header()
	test.That(t, header.Version, test.ShouldEqual, Version)
	test.That(t, header.DeviceModel, test.ShouldEqual, "iPhone15,3")
	test.That(t, header.HasDepth, test.ShouldBeTrue)
	test.That(t, header.Created.Equal(created), test.ShouldBeTrue)

	for i, want := range frames {
		got, err := r.Next()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Timestamp, test.ShouldEqual, want.Timestamp)
		test.That(t, got.Pose, test.ShouldResemble, want.Pose)
		test.That(t, got.Intrinsics, test.ShouldResemble, want.Intrinsics)
		test.That(t, got.Exposure, test.ShouldEqual, want.Exposure)
		test.That(t, got.Tracking, test.ShouldEqual, want.Tracking)
		test.That(t, got.EulerAngles, test.ShouldResemble, want.EulerAngles)
		if i == 2 {
			test.That(t, got.Depth, test.ShouldBeNil)
			test.That(t, got.Color, test.ShouldBeNil)
			continue
		}
		test.That(t, got.Depth.Width(), test.ShouldEqual, want.Depth.Width())
		for j, z := range want.Depth.Data() {
			if math.IsNaN(float64(z)) {
				test.That(t, math.IsNaN(float64(got.Depth.Data()[j])), test.ShouldBeTrue)
				continue
			}
			test.That(t, got.Depth.Data()[j], test.ShouldEqual, z)
		}
		test.That(t, got.Color.Bounds(), test.ShouldResemble, want.Color.Bounds())
		r0, g0, b0, _ := want.Color.At(30, 20).RGBA()
		r1, g1, b1, _ := got.Color.At(30, 20).RGBA()
		test.That(t, []uint32{r1, g1, b1}, test.ShouldResemble, []uint32{r0, g0, b0})
	}
	_, err = r.Next()
	test.That(t, err, test.ShouldEqual, io.EOF)
	test.That(t, r.Close(), test.ShouldBeNil)
}

func TestCaptureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.capture")
	w, err := Create(path, Header{DeviceModel: "test"})
	test.That(t, err, test.ShouldBeNil)
	intrinsics := testutils.CenteredIntrinsics(4, 4, 2)
	for i := 0; i < 3; i++ {
		f := testutils.FlatFrame(float64(i), testutils.OrbitPose(float64(i)*10, 2), intrinsics, 2)
		test.That(t, w.WriteFrame(f), test.ShouldBeNil)
	}
	test.That(t, w.Close(), test.ShouldBeNil)

	header, frames, err := ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, header.DeviceModel, test.ShouldEqual, "test")
	test.That(t, header.Created.IsZero(), test.ShouldBeFalse)
	test.That(t, len(frames), test.ShouldEqual, 3)
	test.That(t, frames[2].Pose, test.ShouldResemble, testutils.OrbitPose(20, 2))
	test.That(t, frames[1].Color, test.ShouldBeNil)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "missing.capture"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCaptureRejectsForeignStreams(t *testing.T) {
	writeRaw := func(v interface{}) *bytes.Buffer {
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cbor.NewEncoder(zw).Encode(v), test.ShouldBeNil)
		test.That(t, zw.Close(), test.ShouldBeNil)
		return &buf
	}

	_, err := NewReader(writeRaw(Header{Format: formatName, Version: Version + 1}))
	test.That(t, errors.Is(err, ErrUnsupportedVersion), test.ShouldBeTrue)

	_, err = NewReader(writeRaw(Header{Format: "something-else", Version: Version}))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrUnsupportedVersion), test.ShouldBeFalse)

	_, err = NewReader(bytes.NewBufferString("not zstd at all"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCaptureTruncated(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{})
	test.That(t, err, test.ShouldBeNil)
	f := testutils.FlatFrame(0, testutils.OrbitPose(0, 2), testutils.CenteredIntrinsics(8, 8, 4), 2)
	test.That(t, w.WriteFrame(f), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	// Re-compress all but the tail of the CBOR payload.
	zr, err := zstd.NewReader(&buf)
	test.That(t, err, test.ShouldBeNil)
	raw, err := io.ReadAll(zr)
	test.That(t, err, test.ShouldBeNil)
	zr.Close()

	var cut bytes.Buffer
	zw, err := zstd.NewWriter(&cut)
	test.That(t, err, test.ShouldBeNil)
	_, err = zw.Write(raw[:len(raw)-10])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zw.Close(), test.ShouldBeNil)

	r, err := NewReader(&cut)
	test.That(t, err, test.ShouldBeNil)
	_, err = r.Next()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err, test.ShouldNotEqual, io.EOF)
}

func TestCaptureIntrinsicsWithoutSize(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{})
	test.That(t, err, test.ShouldBeNil)
	sized := testutils.FlatFrame(0, testutils.OrbitPose(0, 2), testutils.CenteredIntrinsics(4, 4, 2), 2)
	sizeless := sized
	sizeless.Timestamp = 1
	sizeless.Intrinsics = &transform.PinholeCameraIntrinsics{Fx: 2, Fy: 2, Ppx: -0.5, Ppy: 2}
	bare := sized
	bare.Timestamp = 2
	bare.Intrinsics = nil
	for _, f := range []keyframe.Frame{sized, sizeless, bare} {
		test.That(t, w.WriteFrame(f), test.ShouldBeNil)
	}
	test.That(t, w.Close(), test.ShouldBeNil)

	r, err := NewReader(&buf)
	test.That(t, err, test.ShouldBeNil)
	got, err := r.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Intrinsics, test.ShouldResemble, sized.Intrinsics)
	got, err = r.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Intrinsics, test.ShouldResemble, sizeless.Intrinsics)
	got, err = r.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Intrinsics, test.ShouldBeNil)
	test.That(t, r.Close(), test.ShouldBeNil)
}

func TestWriteFrameKeepsColorPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{10, 20, 30, 255})
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w.WriteFrame(keyframe.Frame{Color: img, EulerAngles: r3.Vector{Z: 1}}), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	r, err := NewReader(&buf)
	test.That(t, err, test.ShouldBeNil)
	got, err := r.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Intrinsics, test.ShouldBeNil)
	red, green, blue, _ := got.Color.At(1, 1).RGBA()
	test.That(t, []uint32{red >> 8, green >> 8, blue >> 8}, test.ShouldResemble, []uint32{10, 20, 30})
}
