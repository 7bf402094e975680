package pointcloud

import (
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// maxPreviewPoints bounds the glyphs drawn by WritePreview.
const maxPreviewPoints = 20000

// WritePreview renders a top down (X over Z) scatter of points as a PNG, each point drawn in its
// own color. Large clouds are decimated first.
func WritePreview(points []PointXYZRGB, title string, out io.Writer) error {
	points = Decimate(points, maxPreviewPoints)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Z (m)"

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: float64(pt.X), Y: float64(pt.Z)}
	}
	if len(xys) > 0 {
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return errors.Wrap(err, "failed to create preview scatter")
		}
		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  points[i].Color(),
				Radius: vg.Points(0.6),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(scatter)
	}
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return errors.Wrap(err, "failed to render preview")
	}
	_, err = wt.WriteTo(out)
	return err
}
