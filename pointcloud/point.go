// Package pointcloud turns keyframes into a fused, colored point cloud and reads and writes it in
// common point cloud file formats.
package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// PointXYZRGB is a world space position in meters with an 8-bit color.
type PointXYZRGB struct {
	X, Y, Z float32
	R, G, B uint8
}

// NewPoint returns a point at (x, y, z) with the color c.
func NewPoint(x, y, z float32, c color.Color) PointXYZRGB {
	r, g, b, _ := c.RGBA()
	return PointXYZRGB{X: x, Y: y, Z: z, R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// Vector returns the position as an r3.Vector.
func (p PointXYZRGB) Vector() r3.Vector {
	return r3.Vector{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// RGB255 returns the color components.
func (p PointXYZRGB) RGB255() (uint8, uint8, uint8) {
	return p.R, p.G, p.B
}

// Color returns the point's color as an opaque color.NRGBA.
func (p PointXYZRGB) Color() color.NRGBA {
	return color.NRGBA{p.R, p.G, p.B, 255}
}

// Vectors is a series of three-dimensional vectors.
type Vectors []r3.Vector

// Len returns the number of vectors.
func (vs Vectors) Len() int {
	return len(vs)
}

// Swap swaps two vectors positionally.
func (vs Vectors) Swap(i, j int) {
	vs[i], vs[j] = vs[j], vs[i]
}

// Less returns which vector is less than the other based on
// r3.Vector.Cmp.
func (vs Vectors) Less(i, j int) bool {
	return vs[i].Cmp(vs[j]) < 0
}

// ToVectors returns the positions of points.
func ToVectors(points []PointXYZRGB) Vectors {
	vs := make(Vectors, len(points))
	for i, p := range points {
		vs[i] = p.Vector()
	}
	return vs
}
