package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/ganadobravo/scanfusion/capture"
	"github.com/ganadobravo/scanfusion/keyframe"
	rutils "github.com/ganadobravo/scanfusion/utils"
)

// InspectAction prints, for each frame of the capture named by the first argument, its heading,
// its parallax to the last admitted frame, its quality and whether admission keeps it. Poses that
// are not rigid transforms are flagged; they fuse into distorted clouds.
func InspectAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("a capture file is required")
	}
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	r, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(r.Close)

	header := r.Header()
	printf(c.App.Writer, "%s: version %d, device %q, recorded %s",
		path, header.Version, header.DeviceModel, header.Created.Format("2006-01-02 15:04:05"))

	sessConf := conf.SessionConfig()
	filter := keyframe.NewAdmissionFilter(sessConf.ThresholdDeg)
	filter.MinQuality = sessConf.MinQuality
	unproject := conf.FusionParams().Unproject
	const rigidTolerance = 1e-3

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Time", "Heading", "Parallax", "Quality", "Tracking", "Depth", "Median", "Pose", "Admitted"})
	var frames, admitted int
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read frame %d of %s", frames, path)
		}
		frames++

		quality := keyframe.Quality(f)
		delta := filter.HeadingDelta(f.Pose)
		ok := filter.Admit(f.Pose, quality)
		if ok {
			admitted++
		}
		if !ok && !c.Bool(inspectFlagAll) {
			continue
		}

		coverage, median := "none", "-"
		if f.Depth != nil {
			stats := f.Depth.Stats(unproject.MinDepth, unproject.MaxDepth)
			coverage = fmt.Sprintf("%.0f%%", 100*stats.Coverage())
			if stats.Valid > 0 {
				median = fmt.Sprintf("%.2f m", stats.Median)
			}
		}
		pose := "rigid"
		if err := f.Pose.CheckRigid(rigidTolerance); err != nil {
			pose = err.Error()
		}
		t.AppendRow(table.Row{
			frames - 1,
			fmt.Sprintf("%.2f s", f.Timestamp),
			fmt.Sprintf("%.1f°", rutils.RadToDeg(f.Pose.Heading())),
			fmt.Sprintf("%.1f°", delta),
			fmt.Sprintf("%.2f", quality),
			f.Tracking,
			coverage,
			median,
			pose,
			ok,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "", "", fmt.Sprintf("%d / %d", admitted, frames)})
	printf(c.App.Writer, "%s", t.Render())
	return nil
}
