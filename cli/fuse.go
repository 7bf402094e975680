package cli

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/ganadobravo/scanfusion/capture"
	"github.com/ganadobravo/scanfusion/config"
	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/logging"
	"github.com/ganadobravo/scanfusion/scan"
)

// FuseAction replays the capture named by the first argument and writes the fused cloud.
func FuseAction(c *cli.Context) error {
	capturePath := c.Args().First()
	if capturePath == "" {
		return errors.New("a capture file is required")
	}
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, conf)
	defer closeLog()

	runner := scan.NewRunner(scan.OptionsFromConfig(conf, c.String(fuseFlagOutDir)), logger)
	defer runner.Close()

	res, err := fuseCapture(c.Context, capturePath, c.String(fuseFlagOut), conf, runner, logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %d points to %s", res.PointCount, res.Path)
	if res.MetadataPath != "" {
		printf(c.App.Writer, "wrote metadata to %s", res.MetadataPath)
	}
	return nil
}

// fuseCapture replays one capture file through a new session and waits for its fusion job.
func fuseCapture(
	ctx context.Context,
	capturePath, outPath string,
	conf *config.Config,
	runner *scan.Runner,
	logger logging.Logger,
) (scan.Result, error) {
	r, err := capture.Open(capturePath)
	if err != nil {
		return scan.Result{}, err
	}
	defer utils.UncheckedErrorFunc(r.Close)

	mock := clock.NewMock()
	sess, err := keyframe.NewSession(conf.SessionConfig(), mock, logger)
	if err != nil {
		return scan.Result{}, err
	}
	snap, stats, err := scan.Replay(ctx, r, sess, mock, logger)
	if err != nil {
		return scan.Result{}, errors.Wrapf(err, "failed to replay %s", capturePath)
	}
	logger.Infow("replayed capture",
		"path", capturePath,
		"frames", stats.Read,
		"admitted", stats.Admitted,
		"keyframes", len(snap.Keyframes),
		"truncated", stats.Truncated,
	)
	if !snap.HasDepth() {
		logger.Warnw("capture has no depth; the cloud will be empty", "path", capturePath)
	}

	header := r.Header()
	job, err := runner.SubmitWithDevice(snap, outPath, header.DeviceModel)
	if err != nil {
		return scan.Result{}, err
	}
	return job.Wait()
}
