// Package scan turns stopped capture sessions into point cloud files. Each fusion runs in the
// background so a new capture can start while the previous one is still being fused.
package scan

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ganadobravo/scanfusion/config"
	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/logging"
	"github.com/ganadobravo/scanfusion/pointcloud"
	"github.com/ganadobravo/scanfusion/utils"
)

var (
	// ErrFusionInProgress is returned when a session is submitted while an earlier job for the
	// same session has not finished.
	ErrFusionInProgress = errors.New("fusion already in progress for session")
	// ErrRunnerClosed is returned by Submit after Close.
	ErrRunnerClosed = errors.New("scan runner is closed")
)

// Options controls what a Runner writes for each job.
type Options struct {
	Fusion pointcloud.FusionParams
	Write  pointcloud.WriteOptions
	// MaxPoints decimates the fused cloud before it is written. Zero keeps every point.
	MaxPoints int
	// OutDir receives clouds submitted without an explicit path, named after the session ID.
	OutDir string

	Metadata    bool
	Preview     bool
	Category    string
	DeviceModel string
}

// OptionsFromConfig returns the options described by conf.
func OptionsFromConfig(conf *config.Config, outDir string) Options {
	return Options{
		Fusion:      conf.FusionParams(),
		Write:       conf.WriteOptions(),
		MaxPoints:   conf.Fusion.MaxPoints,
		OutDir:      outDir,
		Metadata:    conf.Output.Metadata,
		Preview:     conf.Output.Preview,
		Category:    conf.Upload.Category,
		DeviceModel: conf.Upload.DeviceModel,
	}
}

// Result describes the files a finished job wrote.
type Result struct {
	SessionID    uuid.UUID
	Path         string
	MetadataPath string
	PreviewPath  string
	PointCount   int
	Stats        pointcloud.FusionStats
	Description  pointcloud.Description
	Elapsed      time.Duration
}

// Job is a fusion running in the background.
type Job struct {
	SessionID uuid.UUID
	Path      string

	done   chan struct{}
	result Result
	err    error
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its outcome. The cloud is only reported once it
// has been completely written.
func (j *Job) Wait() (Result, error) {
	<-j.done
	return j.result, j.err
}

// Runner runs fusion jobs, at most one per session at a time.
type Runner struct {
	opts    Options
	logger  logging.Logger
	workers *utils.StoppableWorkers
	clk     clock.Clock

	mu     sync.Mutex
	closed bool
	active map[uuid.UUID]*Job
}

// NewRunner returns a runner writing files as described by opts.
func NewRunner(opts Options, logger logging.Logger) *Runner {
	return &Runner{
		opts:    opts,
		logger:  logger,
		workers: utils.NewStoppableWorkers(),
		clk:     clock.New(),
		active:  map[uuid.UUID]*Job{},
	}
}

// Submit starts fusing snap into path. An empty path writes <OutDir>/<session id>.<format>.
func (r *Runner) Submit(snap keyframe.Snapshot, path string) (*Job, error) {
	return r.submit(snap, path, r.opts.DeviceModel)
}

// SubmitWithDevice is like Submit but records deviceModel in the metadata unless the options
// already name a device model.
func (r *Runner) SubmitWithDevice(snap keyframe.Snapshot, path, deviceModel string) (*Job, error) {
	if r.opts.DeviceModel != "" {
		deviceModel = r.opts.DeviceModel
	}
	return r.submit(snap, path, deviceModel)
}

func (r *Runner) submit(snap keyframe.Snapshot, path, deviceModel string) (*Job, error) {
	if path == "" {
		path = r.DefaultPath(snap.SessionID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRunnerClosed
	}
	if _, ok := r.active[snap.SessionID]; ok {
		return nil, errors.Wrap(ErrFusionInProgress, snap.SessionID.String())
	}
	job := &Job{SessionID: snap.SessionID, Path: path, done: make(chan struct{})}
	r.active[snap.SessionID] = job
	r.workers.AddWorkers(func(ctx context.Context) {
		defer r.finish(job)
		job.result, job.err = r.run(ctx, snap, path, deviceModel)
	})
	return job, nil
}

// Running reports whether a job for the session has not finished yet.
func (r *Runner) Running(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}

// DefaultPath returns where a session's cloud goes when Submit gets no path.
func (r *Runner) DefaultPath(id uuid.UUID) string {
	format := r.opts.Write.Format
	if format == "" {
		format = pointcloud.FormatPLY
	}
	dir := r.opts.OutDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%s", id, format))
}

// Close cancels running jobs and waits for them to return. Submit fails afterwards.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.workers.Stop()
}

func (r *Runner) finish(job *Job) {
	r.mu.Lock()
	delete(r.active, job.SessionID)
	r.mu.Unlock()
	close(job.done)
}

func (r *Runner) run(ctx context.Context, snap keyframe.Snapshot, path, deviceModel string) (Result, error) {
	start := r.clk.Now()
	sid := snap.SessionID.String()
	defer utils.SlowLogger(ctx, r.clk, r.logger, "fusion still running", "session_id", sid)()

	res := Result{SessionID: snap.SessionID, Path: path}
	points, stats, err := pointcloud.Fuse(ctx, snap.Keyframes, r.opts.Fusion)
	if err != nil {
		r.logger.Warnw("fusion canceled", "session_id", sid, "error", err)
		return res, err
	}
	res.Stats = stats
	if stats.SkippedNoDepth > 0 {
		r.logger.Debugw("skipped keyframes without depth", "session_id", sid, "count", stats.SkippedNoDepth)
	}
	if r.opts.MaxPoints > 0 && len(points) > r.opts.MaxPoints {
		r.logger.Debugw("decimating fused cloud", "session_id", sid, "from", len(points), "to", r.opts.MaxPoints)
		points = pointcloud.Decimate(points, r.opts.MaxPoints)
	}
	res.PointCount = len(points)

	if err := pointcloud.WriteToFile(points, path, r.opts.Write); err != nil {
		r.logger.Errorw("failed to write fused cloud", "session_id", sid, "path", path, "error", err)
		return res, err
	}

	if r.opts.Metadata {
		metaPath := path + MetadataSuffix
		meta := NewMetadata(snap, r.opts.Category, deviceModel, res.PointCount)
		if err := WriteMetadata(metaPath, meta); err != nil {
			r.logger.Errorw("failed to write scan metadata", "session_id", sid, "path", metaPath, "error", err)
			return res, err
		}
		res.MetadataPath = metaPath
	}

	if r.opts.Preview {
		previewPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".preview.png"
		err := utils.WriteFileAtomic(previewPath, 0o644, func(w io.Writer) error {
			return pointcloud.WritePreview(points, sid, w)
		})
		if err != nil {
			r.logger.Warnw("failed to render preview", "session_id", sid, "error", err)
		} else {
			res.PreviewPath = previewPath
		}
	}

	res.Description = pointcloud.Describe(points)
	res.Elapsed = r.clk.Since(start)
	r.logger.Infow("fusion finished",
		"session_id", sid,
		"path", path,
		"keyframes", stats.Keyframes,
		"unprojected", stats.Unprojected,
		"after_downsample", stats.AfterDownsample,
		"points", res.PointCount,
		"elapsed", res.Elapsed,
	)
	return res, nil
}
