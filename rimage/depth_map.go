// Package rimage holds the per-frame image data of a capture: depth maps and color helpers.
package rimage

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// DepthMap is a row-major grid of depths in meters. Zero, negative and non-finite values mean
// the sensor produced no usable reading at that pixel.
type DepthMap struct {
	width  int
	height int

	data []float32
}

// NewEmptyDepthMap returns a zero-filled depth map of the given size.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]float32, width*height),
	}
}

// NewDepthMapFromData wraps row-major data without copying it. The caller must not modify data
// afterwards.
func NewDepthMapFromData(width, height int, data []float32) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad width or height for depth map %v %v", width, height)
	}
	if len(data) != width*height {
		return nil, errors.Errorf("depth map of %dx%d needs %d values, got %d", width, height, width*height, len(data))
	}
	return &DepthMap{width: width, height: height, data: data}, nil
}

// Width returns the horizontal size of the map in pixels.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical size of the map in pixels.
func (dm *DepthMap) Height() int {
	return dm.height
}

// At returns the depth at column x, row y.
func (dm *DepthMap) At(x, y int) float32 {
	return dm.data[y*dm.width+x]
}

// Set stores the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, z float32) {
	dm.data[y*dm.width+x] = z
}

// Data returns the backing row-major slice.
func (dm *DepthMap) Data() []float32 {
	return dm.data
}

// Clone makes a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	data := make([]float32, len(dm.data))
	copy(data, dm.data)
	return &DepthMap{width: dm.width, height: dm.height, data: data}
}

// DepthStats summarizes the usable readings of a depth map.
type DepthStats struct {
	Total  int
	Valid  int
	Min    float64
	Max    float64
	Median float64
	P90    float64
}

// Coverage is the fraction of pixels holding a usable reading.
func (s DepthStats) Coverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Valid) / float64(s.Total)
}

// Stats computes DepthStats over the finite readings in (minDepth, maxDepth].
func (dm *DepthMap) Stats(minDepth, maxDepth float32) DepthStats {
	ds := DepthStats{Total: len(dm.data)}
	valid := make(stats.Float64Data, 0, len(dm.data))
	for _, z := range dm.data {
		if !ValidDepth(z, minDepth, maxDepth) {
			continue
		}
		valid = append(valid, float64(z))
	}
	ds.Valid = len(valid)
	if ds.Valid == 0 {
		return ds
	}
	// The only error these return is for empty input, ruled out above.
	ds.Min, _ = valid.Min()
	ds.Max, _ = valid.Max()
	ds.Median, _ = valid.Median()
	ds.P90, _ = valid.Percentile(90)
	return ds
}

// ValidDepth reports whether z is a reliable reading: finite, strictly above minDepth and no
// more than maxDepth.
func ValidDepth(z, minDepth, maxDepth float32) bool {
	f := float64(z)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return z > minDepth && z <= maxDepth
}
