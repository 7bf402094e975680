package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/ganadobravo/scanfusion/capture"
	"github.com/ganadobravo/scanfusion/testutils"
)

// SimulateAction records a synthetic orbit around the default ellipsoid.
func SimulateAction(c *cli.Context) (err error) {
	orbit := testutils.DefaultOrbit()
	orbit.Count = c.Int(simulateFlagFrames)
	orbit.SweepDeg = c.Float64(simulateFlagSweep)
	orbit.Noise = c.Float64(simulateFlagNoise)
	orbit.Seed = c.Int64(simulateFlagSeed)
	orbit.WithColor = c.Bool(simulateFlagColor)
	orbit.NoDepth = c.Bool(simulateFlagNoDepth)
	if orbit.Count < 1 {
		return errors.Errorf("--%s must be at least 1", simulateFlagFrames)
	}

	out := c.String(simulateFlagOut)
	w, err := capture.Create(out, capture.Header{
		DeviceModel: c.String(simulateFlagDevice),
		HasDepth:    !orbit.NoDepth,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, w.Close())
	}()

	for _, f := range orbit.Frames(testutils.DefaultAnimal()) {
		if err := w.WriteFrame(f); err != nil {
			return errors.Wrapf(err, "failed to write %s", out)
		}
	}
	printf(c.App.Writer, "wrote %d frames to %s", w.Frames(), out)
	return nil
}
