package pointcloud

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/chenzhekl/goply"
	"github.com/pkg/errors"
)

// WritePLY writes points as an ASCII PLY file. Coordinates are written with 5 decimals; colors,
// when withColor is set, as 0-255 integers.
func WritePLY(out io.Writer, points []PointXYZRGB, withColor bool) error {
	w := bufio.NewWriter(out)
	header := "ply\n" +
		"format ascii 1.0\n" +
		"element vertex " + strconv.Itoa(len(points)) + "\n" +
		"property float x\n" +
		"property float y\n" +
		"property float z\n"
	if withColor {
		header += "property uchar red\n" +
			"property uchar green\n" +
			"property uchar blue\n"
	}
	header += "end_header\n"
	if _, err := w.WriteString(header); err != nil {
		return err
	}

	line := make([]byte, 0, 64)
	for _, p := range points {
		line = appendPLYCoord(line[:0], p.X)
		line = append(line, ' ')
		line = appendPLYCoord(line, p.Y)
		line = append(line, ' ')
		line = appendPLYCoord(line, p.Z)
		if withColor {
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(p.R), 10)
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(p.G), 10)
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(p.B), 10)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return w.Flush()
}

func appendPLYCoord(dst []byte, v float32) []byte {
	return strconv.AppendFloat(dst, float64(v), 'f', 5, 64)
}

// ReadPLY reads a PLY file whose vertex element holds at least x, y and z. Colors are read from
// red, green and blue properties when all three are present; hasColor reports whether they were.
// Other elements are skipped.
func ReadPLY(in io.Reader) (points []PointXYZRGB, hasColor bool, err error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, false, err
	}
	if !bytes.HasPrefix(data, []byte("ply")) {
		return nil, false, errors.New("not a PLY file: missing magic number")
	}
	end := bytes.Index(data, []byte("end_header"))
	if end < 0 {
		return nil, false, errors.New("PLY header is missing end_header")
	}
	if !bytes.Contains(data[:end], []byte("element vertex ")) {
		return nil, false, errors.New("PLY header has no vertex element")
	}

	var vertices []goply.PlyElement
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("malformed PLY file: %v", r)
			}
		}()
		vertices = goply.New(bytes.NewReader(data)).Elements("vertex")
	}()
	if err != nil {
		return nil, false, err
	}
	if len(vertices) == 0 {
		return []PointXYZRGB{}, false, nil
	}

	_, hasR := vertices[0]["red"]
	_, hasG := vertices[0]["green"]
	_, hasB := vertices[0]["blue"]
	hasColor = hasR && hasG && hasB

	points = make([]PointXYZRGB, 0, len(vertices))
	for i, vertex := range vertices {
		var p PointXYZRGB
		for _, c := range []struct {
			name string
			dst  *float32
		}{{"x", &p.X}, {"y", &p.Y}, {"z", &p.Z}} {
			v, err := plyNumber(vertex, c.name)
			if err != nil {
				return nil, false, errors.Wrapf(err, "vertex %d", i)
			}
			*c.dst = float32(v)
		}
		if hasColor {
			for _, c := range []struct {
				name string
				dst  *uint8
			}{{"red", &p.R}, {"green", &p.G}, {"blue", &p.B}} {
				v, err := plyNumber(vertex, c.name)
				if err != nil {
					return nil, false, errors.Wrapf(err, "vertex %d", i)
				}
				if v < 0 || v > 255 {
					return nil, false, errors.Errorf("vertex %d: %s %v is not a byte", i, c.name, v)
				}
				*c.dst = uint8(v)
			}
		}
		points = append(points, p)
	}
	return points, hasColor, nil
}

// plyNumber returns a scalar vertex property as a float64, whatever its declared PLY type.
func plyNumber(vertex goply.PlyElement, name string) (float64, error) {
	switch v := vertex[name].(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int8:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case nil:
		return 0, errors.Errorf("missing property %q", name)
	default:
		return 0, errors.Errorf("property %q has unsupported type %T", name, v)
	}
}
