// Package capture records posed depth frames to disk and plays them back, so a scan can be fused
// again after the device that captured it is gone.
//
// A capture is a zstd compressed stream of CBOR records: one Header followed by one record per
// frame, in capture order.
package capture

import (
	"bytes"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fxamacker/cbor/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/rimage"
	"github.com/ganadobravo/scanfusion/rimage/transform"
	"github.com/ganadobravo/scanfusion/spatialmath"
)

// Version is the capture format version written by this package.
const Version = 1

const formatName = "scanfusion-capture"

// ErrUnsupportedVersion is returned when reading a capture written in an unknown format version.
var ErrUnsupportedVersion = errors.New("unsupported capture version")

// Header describes a capture.
type Header struct {
	Format      string    `cbor:"format"`
	Version     int       `cbor:"version"`
	DeviceModel string    `cbor:"device_model"`
	HasDepth    bool      `cbor:"has_depth"`
	Created     time.Time `cbor:"created"`
}

// frameRecord is the on disk form of a keyframe.Frame. Matrices are stored column by column, the
// way devices report them.
type frameRecord struct {
	Timestamp   float64     `cbor:"ts"`
	Pose        [16]float32 `cbor:"pose"`
	Intrinsics  [9]float32  `cbor:"k"`
	KWidth      int         `cbor:"k_w"`
	KHeight     int         `cbor:"k_h"`
	DepthWidth  int         `cbor:"d_w,omitempty"`
	DepthHeight int         `cbor:"d_h,omitempty"`
	Depth       []float32   `cbor:"d,omitempty"`
	Color       []byte      `cbor:"rgb,omitempty"`
	Euler       [3]float64  `cbor:"euler"`
	ExposureNs  int64       `cbor:"exp_ns"`
	Tracking    int         `cbor:"tracking"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func toRecord(f keyframe.Frame) (frameRecord, error) {
	rec := frameRecord{
		Timestamp:  f.Timestamp,
		Pose:       f.Pose.ColumnMajor(),
		Euler:      [3]float64{f.EulerAngles.X, f.EulerAngles.Y, f.EulerAngles.Z},
		ExposureNs: f.Exposure.Nanoseconds(),
		Tracking:   int(f.Tracking),
	}
	if f.Intrinsics != nil {
		rec.Intrinsics = f.Intrinsics.Matrix()
		rec.KWidth, rec.KHeight = f.Intrinsics.Width, f.Intrinsics.Height
	}
	if f.Depth != nil {
		rec.DepthWidth, rec.DepthHeight = f.Depth.Width(), f.Depth.Height()
		rec.Depth = f.Depth.Data()
	}
	if f.Color != nil {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, f.Color, imaging.PNG); err != nil {
			return frameRecord{}, errors.Wrap(err, "failed to encode color image")
		}
		rec.Color = buf.Bytes()
	}
	return rec, nil
}

func fromRecord(rec frameRecord) (keyframe.Frame, error) {
	f := keyframe.Frame{
		Timestamp:   rec.Timestamp,
		Pose:        spatialmath.NewPoseFromColumnMajor(rec.Pose),
		EulerAngles: r3.Vector{X: rec.Euler[0], Y: rec.Euler[1], Z: rec.Euler[2]},
		Exposure:    time.Duration(rec.ExposureNs),
		Tracking:    keyframe.TrackingState(rec.Tracking),
	}
	// An all zero K was written for a frame without intrinsics. A zero size is kept as is and
	// means the matrix is at depth resolution.
	if rec.Intrinsics != ([9]float32{}) {
		f.Intrinsics = transform.NewPinholeCameraIntrinsicsFromMatrix(rec.Intrinsics, rec.KWidth, rec.KHeight)
	}
	if len(rec.Depth) > 0 {
		dm, err := rimage.NewDepthMapFromData(rec.DepthWidth, rec.DepthHeight, rec.Depth)
		if err != nil {
			return keyframe.Frame{}, errors.Wrapf(err, "frame at %.3fs", rec.Timestamp)
		}
		f.Depth = dm
	}
	if len(rec.Color) > 0 {
		img, err := imaging.Decode(bytes.NewReader(rec.Color))
		if err != nil {
			return keyframe.Frame{}, errors.Wrapf(err, "frame at %.3fs has a bad color image", rec.Timestamp)
		}
		f.Color = img
	}
	return f, nil
}
