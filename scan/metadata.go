package scan

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/utils"
)

// MetadataSuffix is appended to a cloud's path to name its metadata sidecar.
const MetadataSuffix = ".meta.json"

// Metadata describes an uploaded scan. Units are always meters.
type Metadata struct {
	SessionID   string  `json:"sid"`
	Category    string  `json:"category"`
	DurationSec float64 `json:"duration_sec"`
	Keyframes   int     `json:"keyframes"`
	DeviceModel string  `json:"device_model"`
	HasDepth    bool    `json:"has_depth"`
	Units       string  `json:"units"`
	PointCount  int     `json:"point_count"`
}

// NewMetadata fills in the metadata of a fused snapshot.
func NewMetadata(snap keyframe.Snapshot, category, deviceModel string, pointCount int) Metadata {
	return Metadata{
		SessionID:   snap.SessionID.String(),
		Category:    category,
		DurationSec: snap.Duration.Seconds(),
		Keyframes:   len(snap.Keyframes),
		DeviceModel: deviceModel,
		HasDepth:    snap.HasDepth(),
		Units:       "m",
		PointCount:  pointCount,
	}
}

// WriteMetadata atomically writes meta as JSON to fn.
func WriteMetadata(fn string, meta Metadata) error {
	return utils.WriteFileAtomic(fn, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
}

// ReadMetadata reads a sidecar written by WriteMetadata.
func ReadMetadata(fn string) (Metadata, error) {
	var meta Metadata
	//nolint:gosec
	data, err := os.ReadFile(fn)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, errors.Wrapf(err, "failed to decode metadata %s", fn)
	}
	return meta, nil
}
