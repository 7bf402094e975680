package pointcloud

import (
	"github.com/edaniels/lidario"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// WriteToLASFile writes the points to a LAS file at fn, using point format 2 when withColor is set
// and format 0 otherwise.
func WriteToLASFile(points []PointXYZRGB, withColor bool, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	pointFormatID := 0
	if withColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	for _, p := range points {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: float64(p.X),
			Y: float64(p.Y),
			Z: float64(p.Z),
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			PointSourceID: 1,
		}
		lp = pr0
		if withColor {
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(p.R) * 256,
					Green: uint16(p.G) * 256,
					Blue:  uint16(p.B) * 256,
				},
			}
		}
		if err = lf.AddLasPoint(lp); err != nil {
			return
		}
	}
	return
}

// NewFromLASFile reads the points of a LAS file. Colors are read from point format 2 records;
// hasColor reports whether the file uses that format.
func NewFromLASFile(fn string) (points []PointXYZRGB, hasColor bool, err error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, false, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	hasColor = lf.Header.PointFormatID == 2
	points = make([]PointXYZRGB, 0, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		lp, err := lf.LasPoint(i)
		if err != nil {
			return nil, false, err
		}
		data := lp.PointData()
		p := PointXYZRGB{X: float32(data.X), Y: float32(data.Y), Z: float32(data.Z)}
		if hasColor && lp.RgbData() != nil {
			p.R = uint8(lp.RgbData().Red / 256)
			p.G = uint8(lp.RgbData().Green / 256)
			p.B = uint8(lp.RgbData().Blue / 256)
		}
		points = append(points, p)
	}
	return points, hasColor, nil
}
