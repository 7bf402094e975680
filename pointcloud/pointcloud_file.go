package pointcloud

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ganadobravo/scanfusion/utils"
)

// Format is a point cloud file format.
type Format string

// The supported file formats.
const (
	FormatPLY = Format("ply")
	FormatPCD = Format("pcd")
	FormatLAS = Format("las")
)

// ParseFormat returns the format named s. The empty string is FormatPLY.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatPLY, nil
	case FormatPLY, FormatPCD, FormatLAS:
		return f, nil
	default:
		return "", errors.Errorf("unknown point cloud format %q", s)
	}
}

// FormatFromPath returns the format matching the extension of fn.
func FormatFromPath(fn string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(fn), ".")
	if ext == "" {
		return "", errors.Errorf("do not know how to read file %q", fn)
	}
	return ParseFormat(ext)
}

// WriteOptions controls WriteToFile.
type WriteOptions struct {
	Format    Format
	WithColor bool
}

// WriteToFile writes points to fn. The data is first written to a temporary file in the same
// directory which then replaces fn, so fn either keeps its old contents or holds the complete
// new cloud.
func WriteToFile(points []PointXYZRGB, fn string, opts WriteOptions) error {
	format := opts.Format
	if format == "" {
		format = FormatPLY
	}

	switch format {
	case FormatPLY:
		return utils.WriteFileAtomic(fn, 0o644, func(w io.Writer) error {
			return WritePLY(w, points, opts.WithColor)
		})
	case FormatPCD:
		return utils.WriteFileAtomic(fn, 0o644, func(w io.Writer) error {
			return ToPCD(points, opts.WithColor, w, PCDBinary)
		})
	case FormatLAS:
		// lidario only writes to a named file, so the temporary file gets the same extension.
		tmpName := utils.TempPath(fn)
		if err := WriteToLASFile(points, opts.WithColor, tmpName); err != nil {
			utils.RemoveFileNoError(tmpName)
			return errors.Wrapf(err, "failed to write %s", fn)
		}
		return utils.RenameInto(tmpName, fn)
	default:
		return errors.Errorf("unknown point cloud format %q", format)
	}
}

// ReadFromFile reads a cloud written by WriteToFile, picking the format from the extension.
func ReadFromFile(fn string) ([]PointXYZRGB, bool, error) {
	format, err := FormatFromPath(fn)
	if err != nil {
		return nil, false, err
	}
	if format == FormatLAS {
		return NewFromLASFile(fn)
	}

	//nolint:gosec
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, false, err
	}
	var r io.Reader = bytes.NewReader(data)
	if format == FormatPCD {
		return ReadPCD(r)
	}
	return ReadPLY(r)
}
