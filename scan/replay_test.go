package scan

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/logging"
	"github.com/ganadobravo/scanfusion/testutils"
)

type sliceSource struct {
	frames []keyframe.Frame
	err    error
}

func (s *sliceSource) Next() (keyframe.Frame, error) {
	if len(s.frames) == 0 {
		if s.err != nil {
			return keyframe.Frame{}, s.err
		}
		return keyframe.Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func newReplaySession(t *testing.T, cfg keyframe.SessionConfig, logger logging.Logger) (*keyframe.Session, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	sess, err := keyframe.NewSession(cfg, mock, logger)
	test.That(t, err, test.ShouldBeNil)
	return sess, mock
}

func TestReplayOrbit(t *testing.T) {
	logger := logging.NewTestLogger(t)
	sess, mock := newReplaySession(t, keyframe.DefaultSessionConfig(), logger)

	orbit := testutils.DefaultOrbit()
	frames := orbit.Frames(testutils.DefaultAnimal())
	snap, stats, err := Replay(context.Background(), &sliceSource{frames: frames}, sess, mock, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Read, test.ShouldEqual, orbit.Count)
	test.That(t, stats.Offered, test.ShouldEqual, orbit.Count)
	test.That(t, stats.Truncated, test.ShouldBeFalse)
	test.That(t, stats.Short, test.ShouldBeFalse)
	test.That(t, snap.Offered, test.ShouldEqual, orbit.Count)
	test.That(t, snap.Admitted, test.ShouldEqual, stats.Admitted)
	test.That(t, len(snap.Keyframes), test.ShouldBeLessThanOrEqualTo, keyframe.DefaultSessionConfig().Capacity)
	test.That(t, len(snap.Keyframes), test.ShouldBeGreaterThan, 1)
	test.That(t, sess.Running(), test.ShouldBeFalse)

	// 90 frames at 6 fps span 89/6 seconds.
	test.That(t, snap.Duration, test.ShouldAlmostEqual, 89*time.Second/6, float64(time.Millisecond))
}

func TestReplayStopsAtMaxDuration(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := keyframe.DefaultSessionConfig()
	cfg.MinDuration = 2 * time.Second
	cfg.MaxDuration = 5 * time.Second
	sess, mock := newReplaySession(t, cfg, logger)

	frames := testutils.DefaultOrbit().Frames(testutils.DefaultAnimal())
	snap, stats, err := Replay(context.Background(), &sliceSource{frames: frames}, sess, mock, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Truncated, test.ShouldBeTrue)
	// Frames at 0, 1/6, ..., 29/6 seconds are before the 5 second limit.
	test.That(t, stats.Offered, test.ShouldEqual, 30)
	test.That(t, snap.Duration, test.ShouldEqual, 5*time.Second)
}

func TestReplayShortRecording(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	sess, mock := newReplaySession(t, keyframe.DefaultSessionConfig(), logger)

	orbit := testutils.DefaultOrbit()
	orbit.Count = 12
	snap, stats, err := Replay(context.Background(), &sliceSource{frames: orbit.Frames(testutils.DefaultAnimal())}, sess, mock, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Short, test.ShouldBeTrue)
	test.That(t, len(snap.Keyframes), test.ShouldBeGreaterThan, 0)
	test.That(t, logs.FilterMessage("recording is shorter than the minimum capture duration").Len(), test.ShouldEqual, 1)
}

// stoppingSource stops the session behind the replay's back after handing out its first frame.
type stoppingSource struct {
	sliceSource
	sess *keyframe.Session
}

func (s *stoppingSource) Next() (keyframe.Frame, error) {
	if len(s.frames) == 1 {
		if _, err := s.sess.Stop(); err != nil {
			return keyframe.Frame{}, err
		}
	}
	return s.sliceSource.Next()
}

func TestReplayOfferFailure(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	sess, mock := newReplaySession(t, keyframe.DefaultSessionConfig(), logger)

	src := &stoppingSource{
		sliceSource: sliceSource{frames: testutils.DefaultOrbit().Frames(testutils.DefaultAnimal())[:2]},
		sess:        sess,
	}
	_, stats, err := Replay(context.Background(), src, sess, mock, logger)
	test.That(t, errors.Is(err, keyframe.ErrSessionNotRunning), test.ShouldBeTrue)
	test.That(t, stats.Read, test.ShouldEqual, 2)
	test.That(t, stats.Admitted, test.ShouldEqual, 1)
	test.That(t, sess.Running(), test.ShouldBeFalse)
	test.That(t, observed.FilterMessage("session already stopped").Len(), test.ShouldEqual, 1)
}

func TestReplayErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	sess, mock := newReplaySession(t, keyframe.DefaultSessionConfig(), logger)

	broken := errors.New("truncated capture")
	_, stats, err := Replay(context.Background(), &sliceSource{
		frames: testutils.DefaultOrbit().Frames(testutils.DefaultAnimal())[:3],
		err:    broken,
	}, sess, mock, logger)
	test.That(t, err, test.ShouldEqual, broken)
	test.That(t, stats.Read, test.ShouldEqual, 3)
	test.That(t, sess.Running(), test.ShouldBeFalse)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Replay(ctx, &sliceSource{}, sess, mock, logger)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, sess.Running(), test.ShouldBeFalse)
}
