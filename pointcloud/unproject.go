package pointcloud

import (
	"image"

	"github.com/pkg/errors"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/rimage"
)

// ColorMode selects how unprojected points are colored. Color never affects geometry.
type ColorMode string

// The known color modes.
const (
	// ColorNeutral paints every point rimage.NeutralGray.
	ColorNeutral = ColorMode("neutral")
	// ColorLuminance uses the brightness of the matching color image pixel as a gray level.
	ColorLuminance = ColorMode("luminance")
	// ColorDepth paints a near to far ramp over the valid depth range.
	ColorDepth = ColorMode("depth")
)

// ParseColorMode returns the mode named s. The empty string is ColorNeutral.
func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(s); mode {
	case "":
		return ColorNeutral, nil
	case ColorNeutral, ColorLuminance, ColorDepth:
		return mode, nil
	default:
		return "", errors.Errorf("unknown color mode %q", s)
	}
}

// Default unprojection limits. Readings outside (DefaultMinDepth, DefaultMaxDepth] are outside the
// range the depth sensor reports reliably.
const (
	DefaultMinDepth   = float32(0.1)
	DefaultMaxDepth   = float32(8.0)
	DefaultMaxColumns = 320
)

// UnprojectParams controls Unproject.
type UnprojectParams struct {
	// A reading z is used only if MinDepth < z <= MaxDepth.
	MinDepth float32
	MaxDepth float32
	// MaxColumns bounds the points taken per row: the pixel stride is max(1, width/MaxColumns).
	MaxColumns int
	Color      ColorMode
}

// DefaultUnprojectParams returns the default limits with neutral coloring.
func DefaultUnprojectParams() UnprojectParams {
	return UnprojectParams{
		MinDepth:   DefaultMinDepth,
		MaxDepth:   DefaultMaxDepth,
		MaxColumns: DefaultMaxColumns,
		Color:      ColorNeutral,
	}
}

// Stride returns the pixel step used for a depth map of the given width.
func (params UnprojectParams) Stride(width int) int {
	if params.MaxColumns <= 0 {
		return 1
	}
	if s := width / params.MaxColumns; s > 1 {
		return s
	}
	return 1
}

// Unproject converts the depth map of kf into world space points. Each sampled pixel (u, v) with
// a valid depth z becomes the camera space point ((u-cx)*z/fx, (v-cy)*z/fy, z), which is then
// moved into the world by the keyframe pose. Intrinsics without a size are taken to be at depth
// resolution. A keyframe without depth, or without finite positive focal lengths, yields no
// points.
func Unproject(kf *keyframe.Keyframe, params UnprojectParams) []PointXYZRGB {
	if !kf.HasDepth() || kf.Intrinsics.CheckValid() != nil {
		return nil
	}
	depth := kf.Depth
	width, height := depth.Width(), depth.Height()
	intrinsics := kf.Intrinsics.Scaled(width, height)
	fx, fy := float32(intrinsics.Fx), float32(intrinsics.Fy)
	cx, cy := float32(intrinsics.Ppx), float32(intrinsics.Ppy)

	var colorImg image.Image
	if params.Color == ColorLuminance && kf.Color != nil {
		colorImg = rimage.AlignToDepth(kf.Color, width, height)
	}

	step := params.Stride(width)
	out := make([]PointXYZRGB, 0, ((width+step-1)/step)*((height+step-1)/step))
	for v := 0; v < height; v += step {
		for u := 0; u < width; u += step {
			z := depth.At(u, v)
			if !rimage.ValidDepth(z, params.MinDepth, params.MaxDepth) {
				continue
			}
			x := (float32(u) - cx) * z / fx
			y := (float32(v) - cy) * z / fy
			wx, wy, wz := kf.Pose.Transform(x, y, z)

			p := PointXYZRGB{X: wx, Y: wy, Z: wz}
			switch {
			case colorImg != nil:
				l := rimage.Luminance(colorImg, u, v)
				p.R, p.G, p.B = l, l, l
			case params.Color == ColorDepth:
				p.R, p.G, p.B = rimage.DepthRamp(z, params.MinDepth, params.MaxDepth)
			default:
				p.R, p.G, p.B = rimage.NeutralGray.R, rimage.NeutralGray.G, rimage.NeutralGray.B
			}
			out = append(out, p)
		}
	}
	return out
}
