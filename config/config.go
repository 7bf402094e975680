// Package config defines the on-disk configuration of the capture and fusion pipeline.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/ganadobravo/scanfusion/keyframe"
	"github.com/ganadobravo/scanfusion/logging"
	"github.com/ganadobravo/scanfusion/pointcloud"
)

// Config is the top level configuration. Every section is optional in the file; missing values
// keep their Default.
type Config struct {
	ConfigFilePath string `json:"-"`

	Capture   Capture   `json:"capture"`
	Unproject Unproject `json:"unproject"`
	Fusion    Fusion    `json:"fusion"`
	Output    Output    `json:"output"`
	Upload    Upload    `json:"upload"`
	LogLevel  string    `json:"log_level,omitempty"`
}

// Capture bounds a capture session.
type Capture struct {
	ParallaxThresholdDeg float64 `json:"parallax_threshold_deg"`
	KeyframeCapacity     int     `json:"keyframe_capacity"`
	MinDurationSec       float64 `json:"min_duration_sec"`
	MaxDurationSec       float64 `json:"max_duration_sec"`
	MinQuality           float64 `json:"min_quality,omitempty"`
	StopWhenFull         bool    `json:"stop_when_full,omitempty"`
}

// Unproject controls how depth maps become points.
type Unproject struct {
	MinDepth   float32 `json:"min_depth_m"`
	MaxDepth   float32 `json:"max_depth_m"`
	MaxColumns int     `json:"max_columns"`
	ColorMode  string  `json:"color_mode,omitempty"`
}

// Fusion controls downsampling and outlier removal.
type Fusion struct {
	VoxelSize           float32 `json:"voxel_size_m"`
	OutlierMinNeighbors int     `json:"outlier_min_neighbors"`
	OutlierRadius       float32 `json:"outlier_radius_m"`
	// MaxPoints decimates the fused cloud before it is written. Zero keeps every point.
	MaxPoints int `json:"max_points,omitempty"`
}

// Output controls the files written for a fused scan.
type Output struct {
	Format   string `json:"format,omitempty"`
	Color    bool   `json:"color"`
	Metadata bool   `json:"metadata"`
	Preview  bool   `json:"preview,omitempty"`
}

// Upload holds the values copied into the metadata sidecar.
type Upload struct {
	Category    string `json:"category"`
	DeviceModel string `json:"device_model,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	sess := keyframe.DefaultSessionConfig()
	fusion := pointcloud.DefaultFusionParams()
	return &Config{
		Capture: Capture{
			ParallaxThresholdDeg: sess.ThresholdDeg,
			KeyframeCapacity:     sess.Capacity,
			MinDurationSec:       sess.MinDuration.Seconds(),
			MaxDurationSec:       sess.MaxDuration.Seconds(),
		},
		Unproject: Unproject{
			MinDepth:   fusion.Unproject.MinDepth,
			MaxDepth:   fusion.Unproject.MaxDepth,
			MaxColumns: fusion.Unproject.MaxColumns,
			ColorMode:  string(fusion.Unproject.Color),
		},
		Fusion: Fusion{
			VoxelSize:           fusion.VoxelSize,
			OutlierMinNeighbors: fusion.MinNeighbors,
			OutlierRadius:       fusion.OutlierRadius,
		},
		Output: Output{
			Format:   string(pointcloud.FormatPLY),
			Color:    true,
			Metadata: true,
		},
		Upload: Upload{
			Category: "scan",
		},
		LogLevel: "info",
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate() error {
	if err := conf.Capture.Validate("capture"); err != nil {
		return err
	}
	if err := conf.Unproject.Validate("unproject"); err != nil {
		return err
	}
	if err := conf.Fusion.Validate("fusion"); err != nil {
		return err
	}
	if err := conf.Output.Validate("output"); err != nil {
		return err
	}
	if err := conf.Upload.Validate("upload"); err != nil {
		return err
	}
	if conf.LogLevel != "" {
		if _, err := logging.LevelFromString(conf.LogLevel); err != nil {
			return utils.NewConfigValidationError("log_level", err)
		}
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *Capture) Validate(path string) error {
	if !isFinite(c.ParallaxThresholdDeg) || c.ParallaxThresholdDeg < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("parallax_threshold_deg must be a non-negative number, got %v", c.ParallaxThresholdDeg))
	}
	if c.KeyframeCapacity < 1 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("keyframe_capacity must be at least 1, got %d", c.KeyframeCapacity))
	}
	if c.MinDurationSec < 0 || c.MaxDurationSec < 0 {
		return utils.NewConfigValidationError(path, errors.New("durations cannot be negative"))
	}
	if c.MaxDurationSec > 0 && c.MinDurationSec > c.MaxDurationSec {
		return utils.NewConfigValidationError(path,
			errors.Errorf("min_duration_sec (%v) exceeds max_duration_sec (%v)", c.MinDurationSec, c.MaxDurationSec))
	}
	if c.MinQuality < 0 || c.MinQuality > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("min_quality must be in [0, 1], got %v", c.MinQuality))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (u *Unproject) Validate(path string) error {
	if !isFinite(float64(u.MinDepth)) || !isFinite(float64(u.MaxDepth)) || u.MinDepth < 0 || u.MaxDepth <= u.MinDepth {
		return utils.NewConfigValidationError(path,
			errors.Errorf("depth range (%v, %v] is empty", u.MinDepth, u.MaxDepth))
	}
	if u.MaxColumns < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_columns cannot be negative, got %d", u.MaxColumns))
	}
	if _, err := pointcloud.ParseColorMode(u.ColorMode); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating color_mode"))
	}
	return nil
}

// Validate ensures all parts of the config are valid. A non-positive voxel size or neighbor count
// turns the matching stage off and is allowed.
func (f *Fusion) Validate(path string) error {
	if !isFinite(float64(f.VoxelSize)) {
		return utils.NewConfigValidationError(path, errors.Errorf("voxel_size_m must be finite, got %v", f.VoxelSize))
	}
	if f.OutlierMinNeighbors > 0 && !(f.OutlierRadius >= 0) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("outlier_radius_m must be non-negative, got %v", f.OutlierRadius))
	}
	if f.MaxPoints < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_points cannot be negative, got %d", f.MaxPoints))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (o *Output) Validate(path string) error {
	if _, err := pointcloud.ParseFormat(o.Format); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating format"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (u *Upload) Validate(path string) error {
	if u.Category == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "category")
	}
	return nil
}

// SessionConfig returns the capture section as session bounds.
func (conf *Config) SessionConfig() keyframe.SessionConfig {
	return keyframe.SessionConfig{
		ThresholdDeg: conf.Capture.ParallaxThresholdDeg,
		MinQuality:   conf.Capture.MinQuality,
		Capacity:     conf.Capture.KeyframeCapacity,
		MinDuration:  seconds(conf.Capture.MinDurationSec),
		MaxDuration:  seconds(conf.Capture.MaxDurationSec),
		StopWhenFull: conf.Capture.StopWhenFull,
	}
}

// FusionParams returns the unproject and fusion sections as fusion parameters. The config must
// be valid.
func (conf *Config) FusionParams() pointcloud.FusionParams {
	mode, err := pointcloud.ParseColorMode(conf.Unproject.ColorMode)
	if err != nil {
		mode = pointcloud.ColorNeutral
	}
	return pointcloud.FusionParams{
		Unproject: pointcloud.UnprojectParams{
			MinDepth:   conf.Unproject.MinDepth,
			MaxDepth:   conf.Unproject.MaxDepth,
			MaxColumns: conf.Unproject.MaxColumns,
			Color:      mode,
		},
		VoxelSize:     conf.Fusion.VoxelSize,
		MinNeighbors:  conf.Fusion.OutlierMinNeighbors,
		OutlierRadius: conf.Fusion.OutlierRadius,
	}
}

// WriteOptions returns the output section as file options. The config must be valid.
func (conf *Config) WriteOptions() pointcloud.WriteOptions {
	format, err := pointcloud.ParseFormat(conf.Output.Format)
	if err != nil {
		format = pointcloud.FormatPLY
	}
	return pointcloud.WriteOptions{Format: format, WithColor: conf.Output.Color}
}

// Level returns the configured log level, INFO when unset.
func (conf *Config) Level() logging.Level {
	level, err := logging.LevelFromString(conf.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// String prints the config the way it is read.
func (conf *Config) String() string {
	return fmt.Sprintf("capture=%+v unproject=%+v fusion=%+v output=%+v upload=%+v log_level=%q",
		conf.Capture, conf.Unproject, conf.Fusion, conf.Output, conf.Upload, conf.LogLevel)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
