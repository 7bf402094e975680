package keyframe

import (
	"time"

	"github.com/ganadobravo/scanfusion/utils"
)

const (
	// frames exposed longer than this are assumed to carry motion blur.
	blurExposure = time.Second / 15

	blurPenalty     = 0.7
	trackingPenalty = 0.7
	minBaseQuality  = 0.5
)

// Quality scores a frame in [0, 1]. Long exposures and degraded tracking each reduce the score
// multiplicatively. An unknown (zero) exposure is treated as sharp.
func Quality(f Frame) float64 {
	q := 1.0
	if f.Exposure >= blurExposure {
		q = blurPenalty
	}
	q = utils.Clamp(q, minBaseQuality, 1)
	if f.Tracking != TrackingNormal {
		q *= trackingPenalty
	}
	return q
}
