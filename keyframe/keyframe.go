// Package keyframe selects which captured depth frames are kept for fusion and holds them for
// the lifetime of a capture session.
package keyframe

import (
	"image"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ganadobravo/scanfusion/rimage"
	"github.com/ganadobravo/scanfusion/rimage/transform"
	"github.com/ganadobravo/scanfusion/spatialmath"
)

// TrackingState is the device's own estimate of how well it knows its pose.
type TrackingState int

// The tracking states a device can report.
const (
	TrackingNormal TrackingState = iota
	TrackingLimited
	TrackingNotAvailable
)

func (ts TrackingState) String() string {
	switch ts {
	case TrackingNormal:
		return "normal"
	case TrackingLimited:
		return "limited"
	case TrackingNotAvailable:
		return "not_available"
	default:
		return "unknown"
	}
}

// Frame is one posed sample as delivered by the capture device, before admission.
type Frame struct {
	Timestamp  float64
	Pose       spatialmath.Pose
	Intrinsics *transform.PinholeCameraIntrinsics
	// Depth is nil when the device has no depth sensor.
	Depth       *rimage.DepthMap
	Color       image.Image
	EulerAngles r3.Vector

	Exposure time.Duration
	Tracking TrackingState
}

// Keyframe is an admitted Frame. Keyframes are not modified after creation.
type Keyframe struct {
	Timestamp   float64
	Pose        spatialmath.Pose
	Intrinsics  *transform.PinholeCameraIntrinsics
	Depth       *rimage.DepthMap
	Color       image.Image
	Resolution  image.Point
	EulerAngles r3.Vector
	Quality     float64
}

// NewKeyframe freezes an admitted frame with its quality score. The resolution is that of the
// depth map, or of the intrinsics when there is none.
func NewKeyframe(f Frame, quality float64) *Keyframe {
	kf := &Keyframe{
		Timestamp:   f.Timestamp,
		Pose:        f.Pose,
		Intrinsics:  f.Intrinsics,
		Depth:       f.Depth,
		Color:       f.Color,
		EulerAngles: f.EulerAngles,
		Quality:     quality,
	}
	switch {
	case f.Depth != nil:
		kf.Resolution = image.Pt(f.Depth.Width(), f.Depth.Height())
	case f.Intrinsics != nil:
		kf.Resolution = image.Pt(f.Intrinsics.Width, f.Intrinsics.Height)
	}
	return kf
}

// HasDepth reports whether the keyframe can contribute points to a fused cloud.
func (kf *Keyframe) HasDepth() bool {
	return kf != nil && kf.Depth != nil
}
