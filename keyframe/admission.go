package keyframe

import (
	"math"

	"github.com/ganadobravo/scanfusion/spatialmath"
	"github.com/ganadobravo/scanfusion/utils"
)

// DefaultParallaxThresholdDeg is the heading change required between two keyframes.
const DefaultParallaxThresholdDeg = 5.0

// AdmissionFilter decides whether a frame is novel enough, and optionally good enough, to become a
// keyframe. It remembers the pose of the last frame it admitted and must not be shared between
// sessions or called concurrently.
type AdmissionFilter struct {
	// ThresholdDeg is the minimum absolute heading change from the last admitted frame.
	ThresholdDeg float64
	// MinQuality rejects frames scoring below it. Zero or less disables the check.
	MinQuality float64

	last    spatialmath.Pose
	hasLast bool
}

// NewAdmissionFilter returns a filter with the given parallax threshold and no quality gate.
func NewAdmissionFilter(thresholdDeg float64) *AdmissionFilter {
	return &AdmissionFilter{ThresholdDeg: thresholdDeg}
}

// Admit reports whether the frame with this pose and quality should be kept. The first frame
// after a reset is always kept. The last admitted pose only moves on a kept frame, and never to a
// pose whose heading is undefined.
func (af *AdmissionFilter) Admit(pose spatialmath.Pose, quality float64) bool {
	if af.MinQuality > 0 && quality < af.MinQuality {
		return false
	}
	if af.hasLast && !(af.HeadingDelta(pose) >= af.ThresholdDeg) {
		return false
	}
	if !math.IsNaN(pose.Heading()) {
		af.last = pose
		af.hasLast = true
	}
	return true
}

// HeadingDelta is the absolute heading change in degrees between pose and the last admitted pose,
// or 0 if nothing was admitted yet.
func (af *AdmissionFilter) HeadingDelta(pose spatialmath.Pose) float64 {
	if !af.hasLast {
		return 0
	}
	return utils.AngleDiffDeg(utils.RadToDeg(pose.Heading()), utils.RadToDeg(af.last.Heading()))
}

// Reset forgets the last admitted pose.
func (af *AdmissionFilter) Reset() {
	af.last = spatialmath.Pose{}
	af.hasLast = false
}
