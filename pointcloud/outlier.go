package pointcloud

import (
	"context"
	"math"

	"github.com/ganadobravo/scanfusion/utils"
)

// gridSlack widens grid cells a little past the radius so that a neighbor accepted by the float32
// distance test is never more than one cell away.
const gridSlack = 1.001

func withinRadius(p, q PointXYZRGB, r2 float32) bool {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return dx*dx+dy*dy+dz*dz <= r2
}

// RadiusOutlierFilter keeps the points that have at least minNeighbors other points within
// radius of them, in input order. Counting stops as soon as a point has enough neighbors. A
// minNeighbors <= 0 returns points as is.
func RadiusOutlierFilter(ctx context.Context, points []PointXYZRGB, minNeighbors int, radius float32) ([]PointXYZRGB, error) {
	if minNeighbors <= 0 {
		return points, nil
	}
	if len(points) == 0 {
		return []PointXYZRGB{}, nil
	}
	r2 := radius * radius
	cell := math.Abs(float64(radius)) * gridSlack

	var count func(i int) int
	if cell == 0 || math.IsNaN(cell) || math.IsInf(cell, 0) {
		count = func(i int) int { return bruteForceNeighbors(points, i, minNeighbors, r2) }
	} else {
		grid := newNeighborGrid(points, cell)
		count = func(i int) int { return grid.neighbors(points, i, minNeighbors, r2) }
	}

	keep := make([]bool, len(points))
	err := utils.GroupWorkParallel(ctx, len(points), nil, func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
		return func(memberNum, workNum int) {
			keep[workNum] = count(workNum) >= minNeighbors
		}, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]PointXYZRGB, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out, nil
}

// RadiusOutlierFilterBruteForce is RadiusOutlierFilter comparing every pair of points.
func RadiusOutlierFilterBruteForce(points []PointXYZRGB, minNeighbors int, radius float32) []PointXYZRGB {
	if minNeighbors <= 0 {
		return points
	}
	r2 := radius * radius
	out := make([]PointXYZRGB, 0, len(points))
	for i := range points {
		if bruteForceNeighbors(points, i, minNeighbors, r2) >= minNeighbors {
			out = append(out, points[i])
		}
	}
	return out
}

func bruteForceNeighbors(points []PointXYZRGB, i, limit int, r2 float32) int {
	cnt := 0
	for j := range points {
		if j == i || !withinRadius(points[i], points[j], r2) {
			continue
		}
		cnt++
		if cnt >= limit {
			break
		}
	}
	return cnt
}

// neighborGrid buckets point indices by cube cells of a fixed size.
type neighborGrid struct {
	size  float64
	cells map[VoxelCoords][]int
}

func newNeighborGrid(points []PointXYZRGB, size float64) *neighborGrid {
	g := &neighborGrid{size: size, cells: make(map[VoxelCoords][]int)}
	for i, p := range points {
		c := g.coords(p)
		g.cells[c] = append(g.cells[c], i)
	}
	return g
}

func (g *neighborGrid) coords(p PointXYZRGB) VoxelCoords {
	return VoxelCoords{
		I: int64(math.Floor(float64(p.X) / g.size)),
		J: int64(math.Floor(float64(p.Y) / g.size)),
		K: int64(math.Floor(float64(p.Z) / g.size)),
	}
}

// neighbors counts, up to limit, the points other than points[i] within the radius.
func (g *neighborGrid) neighbors(points []PointXYZRGB, i, limit int, r2 float32) int {
	p := points[i]
	c := g.coords(p)
	cnt := 0
	for di := int64(-1); di <= 1; di++ {
		for dj := int64(-1); dj <= 1; dj++ {
			for dk := int64(-1); dk <= 1; dk++ {
				for _, j := range g.cells[VoxelCoords{c.I + di, c.J + dj, c.K + dk}] {
					if j == i || !withinRadius(p, points[j], r2) {
						continue
					}
					cnt++
					if cnt >= limit {
						return cnt
					}
				}
			}
		}
	}
	return cnt
}
