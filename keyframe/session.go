package keyframe

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ganadobravo/scanfusion/logging"
)

// ErrSessionNotRunning is returned when frames are offered to, or a stop is requested from, a
// session that was never started or has already stopped.
var ErrSessionNotRunning = errors.New("capture session is not running")

// SessionConfig bounds a capture session.
type SessionConfig struct {
	ThresholdDeg float64
	MinQuality   float64
	Capacity     int
	MinDuration  time.Duration
	MaxDuration  time.Duration
	// StopWhenFull makes ShouldStop report true once the buffer is at capacity.
	StopWhenFull bool
}

// DefaultSessionConfig returns the bounds used by handheld captures.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ThresholdDeg: DefaultParallaxThresholdDeg,
		Capacity:     24,
		MinDuration:  12 * time.Second,
		MaxDuration:  20 * time.Second,
	}
}

// Snapshot is the frozen result of a stopped session. It owns its keyframe slice; the session
// can be restarted while a snapshot is still being fused.
type Snapshot struct {
	SessionID uuid.UUID
	Started   time.Time
	Duration  time.Duration
	Keyframes []*Keyframe

	Offered  int
	Admitted int
	Evicted  int
}

// HasDepth reports whether any keyframe of the snapshot carries a depth map.
func (s Snapshot) HasDepth() bool {
	for _, kf := range s.Keyframes {
		if kf.HasDepth() {
			return true
		}
	}
	return false
}

// Session accumulates keyframes between Start and Stop. Offer is meant to be driven by a single
// capture loop; the other methods may be called from any goroutine.
type Session struct {
	cfg    SessionConfig
	clock  clock.Clock
	logger logging.Logger

	mu       sync.Mutex
	running  bool
	id       uuid.UUID
	started  time.Time
	filter   *AdmissionFilter
	buffer   *Buffer
	offered  int
	admitted int
	evicted  int
}

// NewSession validates cfg and returns a stopped session.
func NewSession(cfg SessionConfig, clk clock.Clock, logger logging.Logger) (*Session, error) {
	if cfg.MaxDuration > 0 && cfg.MinDuration > cfg.MaxDuration {
		return nil, errors.Errorf("min duration %v exceeds max duration %v", cfg.MinDuration, cfg.MaxDuration)
	}
	buffer, err := NewBuffer(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	filter := NewAdmissionFilter(cfg.ThresholdDeg)
	filter.MinQuality = cfg.MinQuality
	return &Session{
		cfg:    cfg,
		clock:  clk,
		logger: logger,
		filter: filter,
		buffer: buffer,
	}, nil
}

// Start begins a new capture under a fresh session ID, discarding anything left from a previous
// capture. Starting a running session restarts it.
func (s *Session) Start() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warnw("restarting capture session that was not stopped", "session_id", s.id)
	}
	s.id = uuid.New()
	s.started = s.clock.Now()
	s.running = true
	s.filter.Reset()
	s.buffer.Clear()
	s.offered, s.admitted, s.evicted = 0, 0, 0
	s.logger.Infow("capture session started", "session_id", s.id)
	return s.id
}

// Offer runs the frame through admission and keeps it as a keyframe if admitted.
func (s *Session) Offer(f Frame) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false, ErrSessionNotRunning
	}
	s.offered++
	quality := Quality(f)
	if !s.filter.Admit(f.Pose, quality) {
		return false, nil
	}
	s.admitted++
	if evicted := s.buffer.Push(NewKeyframe(f, quality)); evicted != nil {
		s.evicted++
		s.logger.Debugw("evicted oldest keyframe", "timestamp", evicted.Timestamp)
	}
	return true, nil
}

// Stop ends admission and hands back the accumulated keyframes.
func (s *Session) Stop() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return Snapshot{}, ErrSessionNotRunning
	}
	s.running = false
	snap := Snapshot{
		SessionID: s.id,
		Started:   s.started,
		Duration:  s.clock.Since(s.started),
		Keyframes: s.buffer.Keyframes(),
		Offered:   s.offered,
		Admitted:  s.admitted,
		Evicted:   s.evicted,
	}
	s.buffer.Clear()
	s.logger.Infow("capture session stopped",
		"session_id", snap.SessionID,
		"keyframes", len(snap.Keyframes),
		"offered", snap.Offered,
		"duration", snap.Duration,
	)
	return snap, nil
}

// ID returns the ID of the current or last session.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Running reports whether the session is between Start and Stop.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Len returns the number of keyframes currently held.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Len()
}

// Elapsed returns the time since Start, or 0 when not running.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed()
}

func (s *Session) elapsed() time.Duration {
	if !s.running {
		return 0
	}
	return s.clock.Since(s.started)
}

// CanStop reports whether the minimum capture duration has passed.
func (s *Session) CanStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.elapsed() >= s.cfg.MinDuration
}

// ShouldStop reports whether the capture loop should stop now: the maximum duration has passed,
// or the buffer is full and the session stops when full.
func (s *Session) ShouldStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	if s.cfg.MaxDuration > 0 && s.elapsed() >= s.cfg.MaxDuration {
		return true
	}
	return s.cfg.StopWhenFull && s.buffer.Full()
}
