package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ganadobravo/scanfusion/pointcloud"
	"github.com/ganadobravo/scanfusion/utils"
)

// StatsAction prints the description of the cloud file named by the first argument.
func StatsAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("a point cloud file is required")
	}
	points, hasColor, err := pointcloud.ReadFromFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", describeTable(pointcloud.Describe(points), hasColor, info.Size()))

	if preview := c.String(statsFlagPreview); preview != "" {
		err := utils.WriteFileAtomic(preview, 0o644, func(w io.Writer) error {
			return pointcloud.WritePreview(points, path, w)
		})
		if err != nil {
			return err
		}
		printf(c.App.Writer, "wrote preview to %s", preview)
	}
	return nil
}

func describeTable(d pointcloud.Description, hasColor bool, size int64) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"File size", units.HumanSize(float64(size))})
	t.AppendRow(table.Row{"Points", d.Count})
	t.AppendRow(table.Row{"Color", hasColor})
	if d.Count > 0 {
		t.AppendRow(table.Row{"Min", formatVector(d.Min)})
		t.AppendRow(table.Row{"Max", formatVector(d.Max)})
		t.AppendRow(table.Row{"Centroid", formatVector(d.Centroid)})
		for i, extent := range d.Extents {
			t.AppendRow(table.Row{
				fmt.Sprintf("Extent %d", i+1),
				fmt.Sprintf("%.3f m along %s", extent, formatVector(d.Axes[i])),
			})
		}
	}
	return t.Render()
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", v.X, v.Y, v.Z)
}
