package testutils

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/rimage"
	"github.com/ganadobravo/scanfusion/rimage/transform"
	"github.com/ganadobravo/scanfusion/spatialmath"
)

// CenteredIntrinsics returns a width x height pinhole camera with focal length f pixels and the
// principal point in the middle of the image.
func CenteredIntrinsics(width, height int, f float64) *transform.PinholeCameraIntrinsics {
	return &transform.PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     f,
		Fy:     f,
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}
}

// ConstantDepth returns a depth map reading z everywhere.
func ConstantDepth(width, height int, z float32) *rimage.DepthMap {
	dm := rimage.NewEmptyDepthMap(width, height)
	data := dm.Data()
	for i := range data {
		data[i] = z
	}
	return dm
}

// FlatFrame returns a frame looking at a wall z meters away.
func FlatFrame(ts float64, pose spatialmath.Pose, intrinsics *transform.PinholeCameraIntrinsics, z float32) keyframe.Frame {
	return keyframe.Frame{
		Timestamp:  ts,
		Pose:       pose,
		Intrinsics: intrinsics,
		Depth:      ConstantDepth(intrinsics.Width, intrinsics.Height, z),
		Exposure:   time.Second / 60,
	}
}

// Ellipsoid is an axis aligned ellipsoid standing in for a scanned animal.
type Ellipsoid struct {
	Center r3.Vector
	Radii  r3.Vector
}

// DefaultAnimal is roughly the size of a calf: 1.6 m long, 1 m tall and 0.6 m wide.
func DefaultAnimal() Ellipsoid {
	return Ellipsoid{Radii: r3.Vector{X: 0.8, Y: 0.5, Z: 0.3}}
}

// Intersect returns the smallest s > 0 at which origin + s*dir lies on the ellipsoid.
func (e Ellipsoid) Intersect(origin, dir r3.Vector) (float64, bool) {
	o := origin.Sub(e.Center)
	o = r3.Vector{X: o.X / e.Radii.X, Y: o.Y / e.Radii.Y, Z: o.Z / e.Radii.Z}
	d := r3.Vector{X: dir.X / e.Radii.X, Y: dir.Y / e.Radii.Y, Z: dir.Z / e.Radii.Z}
	a := d.Dot(d)
	b := 2 * o.Dot(d)
	c := o.Dot(o) - 1
	disc := b*b - 4*a*c
	if a == 0 || disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	for _, s := range []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if s > 0 {
			return s, true
		}
	}
	return 0, false
}

// Orbit describes a handheld capture walking around a target at a fixed distance.
type Orbit struct {
	Count    int
	StartDeg float64
	SweepDeg float64
	Distance float64
	Width    int
	Height   int
	Focal    float64
	FPS      float64
	// Noise is the standard deviation, in meters, added to each depth reading.
	Noise     float64
	Seed      int64
	WithColor bool
	// NoDepth simulates a device without a depth sensor.
	NoDepth bool
}

// DefaultOrbit sweeps 180 degrees around the target at 2 m with a 64x48 depth sensor.
func DefaultOrbit() Orbit {
	return Orbit{
		Count:    90,
		SweepDeg: 180,
		Distance: 2,
		Width:    64,
		Height:   48,
		Focal:    50,
		FPS:      6,
		Seed:     1,
	}
}

// OrbitPose returns the pose of a camera at yawDeg on a circle of radius distance around the
// origin, looking at the origin.
func OrbitPose(yawDeg, distance float64) spatialmath.Pose {
	rot := spatialmath.NewPoseFromYaw(yawDeg, r3.Vector{})
	forward := rot.TransformVector(r3.Vector{Z: 1})
	return spatialmath.NewPoseFromYaw(yawDeg, forward.Mul(-distance))
}

// Frames renders the orbit around target.
func (o Orbit) Frames(target Ellipsoid) []keyframe.Frame {
	rng := rand.New(rand.NewSource(o.Seed)) //nolint:gosec
	intrinsics := CenteredIntrinsics(o.Width, o.Height, o.Focal)
	frames := make([]keyframe.Frame, 0, o.Count)
	for i := 0; i < o.Count; i++ {
		yaw := o.StartDeg
		if o.Count > 1 {
			yaw += o.SweepDeg * float64(i) / float64(o.Count-1)
		}
		pose := OrbitPose(yaw, o.Distance)
		f := keyframe.Frame{
			Timestamp:   float64(i) / o.FPS,
			Pose:        pose,
			Intrinsics:  intrinsics,
			EulerAngles: r3.Vector{Y: yaw * math.Pi / 180},
			Exposure:    time.Second / 60,
		}
		if !o.NoDepth {
			f.Depth = o.render(target, pose, intrinsics, rng)
		}
		if o.WithColor && f.Depth != nil {
			f.Color = shade(f.Depth, o.Distance)
		}
		frames = append(frames, f)
	}
	return frames
}

func (o Orbit) render(
	target Ellipsoid,
	pose spatialmath.Pose,
	intrinsics *transform.PinholeCameraIntrinsics,
	rng *rand.Rand,
) *rimage.DepthMap {
	dm := rimage.NewEmptyDepthMap(o.Width, o.Height)
	origin := pose.Translation()
	for v := 0; v < o.Height; v++ {
		for u := 0; u < o.Width; u++ {
			ray := r3.Vector{
				X: (float64(u) - intrinsics.Ppx) / intrinsics.Fx,
				Y: (float64(v) - intrinsics.Ppy) / intrinsics.Fy,
				Z: 1,
			}
			dir := pose.TransformVector(ray).Sub(origin)
			s, ok := target.Intersect(origin, dir)
			if !ok {
				continue
			}
			if o.Noise > 0 {
				s += rng.NormFloat64() * o.Noise
			}
			dm.Set(u, v, float32(s))
		}
	}
	return dm
}

// shade returns a gray image that is brighter where the surface is closer.
func shade(dm *rimage.DepthMap, distance float64) image.Image {
	img := image.NewGray(image.Rect(0, 0, dm.Width(), dm.Height()))
	for v := 0; v < dm.Height(); v++ {
		for u := 0; u < dm.Width(); u++ {
			z := float64(dm.At(u, v))
			if z <= 0 {
				continue
			}
			l := 255 * math.Max(0, math.Min(1, 1.5-z/distance))
			img.SetGray(u, v, color.Gray{Y: uint8(l)})
		}
	}
	return img
}
