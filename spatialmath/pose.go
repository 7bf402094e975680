// Package spatialmath defines the rigid camera poses used to place depth samples in the world.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose is a 4x4 rigid transform, indexed [row][col], mapping camera space to world space.
// The upper-left 3x3 block is the rotation and the last column holds the translation.
type Pose [4][4]float32

// NewIdentityPose returns the pose that leaves every point where it is.
func NewIdentityPose() Pose {
	return Pose{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// NewPoseFromColumnMajor builds a pose from 16 values laid out column by column, which is how
// device SDKs hand over their 4x4 camera transforms.
func NewPoseFromColumnMajor(m [16]float32) Pose {
	var p Pose
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			p[row][col] = m[col*4+row]
		}
	}
	return p
}

// NewPoseFromYaw returns a pose rotated by yawDeg degrees about the +Y (gravity) axis and
// translated by t.
func NewPoseFromYaw(yawDeg float64, t r3.Vector) Pose {
	theta := yawDeg * math.Pi / 180
	c, s := float32(math.Cos(theta)), float32(math.Sin(theta))
	return Pose{
		{c, 0, s, float32(t.X)},
		{0, 1, 0, float32(t.Y)},
		{-s, 0, c, float32(t.Z)},
		{0, 0, 0, 1},
	}
}

// ColumnMajor returns the 16 values of the pose column by column.
func (p Pose) ColumnMajor() [16]float32 {
	var m [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			m[col*4+row] = p[row][col]
		}
	}
	return m
}

// Transform multiplies the homogeneous point (x, y, z, 1) by the pose.
func (p Pose) Transform(x, y, z float32) (float32, float32, float32) {
	wx := p[0][0]*x + p[0][1]*y + p[0][2]*z + p[0][3]
	wy := p[1][0]*x + p[1][1]*y + p[1][2]*z + p[1][3]
	wz := p[2][0]*x + p[2][1]*y + p[2][2]*z + p[2][3]
	return wx, wy, wz
}

// TransformVector is Transform for an r3.Vector.
func (p Pose) TransformVector(v r3.Vector) r3.Vector {
	x, y, z := p.Transform(float32(v.X), float32(v.Y), float32(v.Z))
	return r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}
}

// Translation returns the camera position in world space.
func (p Pose) Translation() r3.Vector {
	return r3.Vector{X: float64(p[0][3]), Y: float64(p[1][3]), Z: float64(p[2][3])}
}

// Heading returns the yaw of the pose in radians, taken as atan2 of the first and third entries
// of the rotation's first row. Only differences between headings are meaningful.
func (p Pose) Heading() float64 {
	return math.Atan2(float64(p[0][0]), float64(p[0][2]))
}

// CheckRigid returns an error if the pose is not a rigid transform within tol: the rotation must
// be orthonormal with determinant 1 (no scale, no reflection) and the last row must be 0 0 0 1.
func (p Pose) CheckRigid(tol float64) error {
	for col, want := range [4]float32{0, 0, 0, 1} {
		if math.Abs(float64(p[3][col]-want)) > tol {
			return errors.Errorf("pose last row must be [0 0 0 1], got %v", p[3])
		}
	}
	rot := mat.NewDense(3, 3, nil)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			v := float64(p[row][col])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Errorf("pose rotation has non-finite entry at (%d,%d)", row, col)
			}
			rot.Set(row, col, v)
		}
	}
	var rtr mat.Dense
	rtr.Mul(rot.T(), rot)
	eye := mat.NewDiagDense(3, []float64{1, 1, 1})
	if !mat.EqualApprox(&rtr, eye, tol) {
		return errors.New("pose rotation is not orthonormal")
	}
	if det := mat.Det(rot); math.Abs(det-1) > tol {
		return errors.Errorf("pose rotation determinant is %f, expected 1", det)
	}
	return nil
}
