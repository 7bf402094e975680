package pointcloud

// Decimate keeps every s-th point, with s the smallest stride that leaves at most maxPoints
// points. A maxPoints <= 0, or a cloud already small enough, is returned as is.
func Decimate(points []PointXYZRGB, maxPoints int) []PointXYZRGB {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}
	stride := (len(points) + maxPoints - 1) / maxPoints
	out := make([]PointXYZRGB, 0, maxPoints)
	for i := 0; i < len(points); i += stride {
		out = append(out, points[i])
	}
	return out
}
