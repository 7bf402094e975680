package pointcloud

import "math"

// VoxelIndexLimit bounds the per axis cell index for which VoxelKey is collision free: every index
// must lie in [-VoxelIndexLimit, VoxelIndexLimit). At a 1 cm voxel that is about 10 km either
// side of the origin.
const VoxelIndexLimit = 1 << 20

// VoxelCoords is the integer cell of a point on a voxel grid.
type VoxelCoords struct {
	I, J, K int64
}

// NewVoxelCoords returns the cell holding p on a grid of cells voxelSize wide, rounding each
// coordinate to the nearest cell center.
func NewVoxelCoords(p PointXYZRGB, voxelSize float32) VoxelCoords {
	inv := 1 / float64(voxelSize)
	return VoxelCoords{
		I: int64(math.Round(float64(p.X) * inv)),
		J: int64(math.Round(float64(p.Y) * inv)),
		K: int64(math.Round(float64(p.Z) * inv)),
	}
}

// InRange reports whether every index is inside the range where Key is collision free.
func (c VoxelCoords) InRange() bool {
	in := func(v int64) bool { return v >= -VoxelIndexLimit && v < VoxelIndexLimit }
	return in(c.I) && in(c.J) && in(c.K)
}

// Key packs the cell into 64 bits as (I << 42) ^ (J << 21) ^ K. Two cells share a key only if
// one of them is outside InRange. Negative indices sign extend into the higher fields, but an in
// range key still decodes to a single cell, low field first.
func (c VoxelCoords) Key() int64 {
	return (c.I << 42) ^ (c.J << 21) ^ c.K
}

// VoxelDownsample keeps one point per occupied cell of a grid with cells voxelSize wide. When
// several points fall in one cell the one that comes last in points is kept. Cells are emitted in
// the order they were first occupied; callers must not rely on it. A voxelSize <= 0 returns points
// as is.
func VoxelDownsample(points []PointXYZRGB, voxelSize float32) []PointXYZRGB {
	if !(voxelSize > 0) {
		return points
	}
	slots := make(map[int64]int, len(points)/2)
	out := make([]PointXYZRGB, 0, len(points)/2)
	for _, p := range points {
		key := NewVoxelCoords(p, voxelSize).Key()
		if idx, ok := slots[key]; ok {
			out[idx] = p
			continue
		}
		slots[key] = len(out)
		out = append(out, p)
	}
	return out
}
