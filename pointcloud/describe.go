package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Description summarizes the shape of a cloud.
type Description struct {
	Count    int
	Min      r3.Vector
	Max      r3.Vector
	Centroid r3.Vector
	// Axes are the principal directions of the cloud, ordered by decreasing variance.
	Axes [3]r3.Vector
	// Extents is the length of the cloud along each of Axes. For an animal scanned from the side
	// these are its body length, height and width in some order.
	Extents [3]float64
}

// Describe computes the bounding box, centroid and principal extents of points.
func Describe(points []PointXYZRGB) Description {
	d := Description{Count: len(points)}
	if len(points) == 0 {
		return d
	}

	d.Min = points[0].Vector()
	d.Max = d.Min
	data := mat.NewDense(len(points), 3, nil)
	var sum r3.Vector
	for i, p := range points {
		v := p.Vector()
		d.Min = r3.Vector{X: math.Min(d.Min.X, v.X), Y: math.Min(d.Min.Y, v.Y), Z: math.Min(d.Min.Z, v.Z)}
		d.Max = r3.Vector{X: math.Max(d.Max.X, v.X), Y: math.Max(d.Max.Y, v.Y), Z: math.Max(d.Max.Z, v.Z)}
		sum = sum.Add(v)
		data.SetRow(i, []float64{v.X, v.Y, v.Z})
	}
	d.Centroid = sum.Mul(1 / float64(len(points)))

	d.Axes = [3]r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}
	if len(points) < 2 {
		return d
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		// leave the bounding box axes in place
		d.Extents = [3]float64{d.Max.X - d.Min.X, d.Max.Y - d.Min.Y, d.Max.Z - d.Min.Z}
		return d
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	order := []int{0, 1, 2}
	sort.Slice(order, func(i, j int) bool { return values[order[i]] > values[order[j]] })
	for k, col := range order {
		axis := r3.Vector{X: vectors.At(0, col), Y: vectors.At(1, col), Z: vectors.At(2, col)}.Normalize()
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range points {
			proj := p.Vector().Sub(d.Centroid).Dot(axis)
			lo = math.Min(lo, proj)
			hi = math.Max(hi, proj)
		}
		d.Axes[k] = axis
		d.Extents[k] = hi - lo
	}
	return d
}
