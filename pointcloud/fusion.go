package pointcloud

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/utils"
)

// Default fusion settings.
const (
	DefaultVoxelSize     = float32(0.01)
	DefaultMinNeighbors  = 8
	DefaultOutlierRadius = float32(0.05)
)

// FusionParams controls Fuse. A VoxelSize <= 0 disables downsampling and a MinNeighbors <= 0
// disables outlier removal.
type FusionParams struct {
	Unproject     UnprojectParams
	VoxelSize     float32
	MinNeighbors  int
	OutlierRadius float32
}

// DefaultFusionParams returns the settings used for handheld scans.
func DefaultFusionParams() FusionParams {
	return FusionParams{
		Unproject:     DefaultUnprojectParams(),
		VoxelSize:     DefaultVoxelSize,
		MinNeighbors:  DefaultMinNeighbors,
		OutlierRadius: DefaultOutlierRadius,
	}
}

// FusionStats counts what each stage of Fuse did.
type FusionStats struct {
	Keyframes       int
	SkippedNoDepth  int
	Unprojected     int
	AfterDownsample int
	AfterOutliers   int
}

// Fuse unprojects every keyframe that has depth, merges the points, downsamples them on a voxel
// grid and finally drops radius outliers. Keyframes without depth are skipped. Fusing no
// keyframes yields an empty cloud. The only error is ctx being done.
func Fuse(ctx context.Context, keyframes []*keyframe.Keyframe, params FusionParams) ([]PointXYZRGB, FusionStats, error) {
	stats := FusionStats{Keyframes: len(keyframes)}
	if len(keyframes) == 0 {
		return []PointXYZRGB{}, stats, nil
	}

	perFrame := make([][]PointXYZRGB, len(keyframes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(utils.ParallelFactor)
	for i, kf := range keyframes {
		if !kf.HasDepth() {
			stats.SkippedNoDepth++
			continue
		}
		i, kf := i, kf
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFrame[i] = Unproject(kf, params.Unproject)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	for _, pts := range perFrame {
		stats.Unprojected += len(pts)
	}
	merged := make([]PointXYZRGB, 0, stats.Unprojected)
	for _, pts := range perFrame {
		merged = append(merged, pts...)
	}

	downsampled := VoxelDownsample(merged, params.VoxelSize)
	stats.AfterDownsample = len(downsampled)

	kept, err := RadiusOutlierFilter(ctx, downsampled, params.MinNeighbors, params.OutlierRadius)
	if err != nil {
		return nil, stats, err
	}
	stats.AfterOutliers = len(kept)
	return kept, stats, nil
}
