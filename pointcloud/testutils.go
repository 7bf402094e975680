package pointcloud

// MakeTestPointCloud creates a test point cloud with 3 points one meter apart, colored red,
// green and blue.
func MakeTestPointCloud() []PointXYZRGB {
	return []PointXYZRGB{
		{X: 0, Y: 0, Z: 0, R: 255},
		{X: 1, Y: 0, Z: 0, G: 255},
		{X: 0, Y: 1, Z: 0, B: 255},
	}
}
