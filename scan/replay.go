package scan

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/logging"
)

// FrameSource yields recorded frames in capture order and io.EOF after the last one.
type FrameSource interface {
	Next() (keyframe.Frame, error)
}

// ReplayStats counts what Replay did with the recorded frames.
type ReplayStats struct {
	Read     int
	Offered  int
	Admitted int
	// Truncated is set when the session hit its stop condition before the recording ended.
	Truncated bool
	// Short is set when the recording ended before the minimum capture duration.
	Short bool
}

// Replay runs a recorded capture through a fresh session of sess, advancing clk by the recorded
// frame timestamps, and stops the session when the recording ends or the session asks to stop.
// clk must be the clock sess was created with.
func Replay(
	ctx context.Context,
	src FrameSource,
	sess *keyframe.Session,
	clk *clock.Mock,
	logger logging.Logger,
) (keyframe.Snapshot, ReplayStats, error) {
	var stats ReplayStats
	sess.Start()
	start := clk.Now()
	first := true
	var t0 float64
	abort := func(err error) (keyframe.Snapshot, ReplayStats, error) {
		if _, stopErr := sess.Stop(); stopErr != nil {
			logger.Debugw("session already stopped", "error", stopErr)
		}
		return keyframe.Snapshot{}, stats, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		f, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return abort(err)
		}
		stats.Read++

		if first {
			t0 = f.Timestamp
			first = false
		}
		// The mock never runs backwards, even if the recording does.
		if at := start.Add(time.Duration((f.Timestamp - t0) * float64(time.Second))); at.After(clk.Now()) {
			clk.Set(at)
		}
		if sess.ShouldStop() {
			stats.Truncated = true
			break
		}
		stats.Offered++
		admitted, err := sess.Offer(f)
		if err != nil {
			return abort(err)
		}
		if admitted {
			stats.Admitted++
		}
	}

	if !sess.CanStop() {
		stats.Short = true
		logger.Warnw("recording is shorter than the minimum capture duration", "elapsed", sess.Elapsed())
	}
	snap, err := sess.Stop()
	return snap, stats, err
}
