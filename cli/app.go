// Package cli contains the scanfuse command line tool.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/ganadobravo/scanfusion/config"
	"github.com/ganadobravo/scanfusion/logging"
)

const (
	// Flags.
	generalFlagConfig  = "config"
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	fuseFlagOut    = "out"
	fuseFlagOutDir = "out-dir"

	simulateFlagOut     = "out"
	simulateFlagFrames  = "frames"
	simulateFlagSweep   = "sweep"
	simulateFlagNoise   = "noise"
	simulateFlagSeed    = "seed"
	simulateFlagColor   = "color"
	simulateFlagNoDepth = "no-depth"
	simulateFlagDevice  = "device-model"

	statsFlagPreview = "preview"

	inspectFlagAll = "all"

	watchFlagDir    = "dir"
	watchFlagOutDir = "out-dir"
	watchFlagExt    = "ext"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "scanfuse",
		Usage:           "fuse posed depth captures into point clouds",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    generalFlagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  generalFlagLogFile,
				Usage: "also write logs to `FILE`, rotating it as it grows",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "fuse",
				Usage:     "replay a capture through a session and write the fused cloud",
				ArgsUsage: "<capture>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  fuseFlagOut,
						Usage: "cloud `FILE` to write; the format follows the config",
					},
					&cli.StringFlag{
						Name:  fuseFlagOutDir,
						Usage: "directory for the cloud when --out is not given; it is named after the session",
						Value: ".",
					},
				},
				Action: FuseAction,
			},
			{
				Name:  "simulate",
				Usage: "record a synthetic orbit around an ellipsoid",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     simulateFlagOut,
						Required: true,
						Usage:    "capture `FILE` to write",
					},
					&cli.IntFlag{
						Name:  simulateFlagFrames,
						Usage: "number of frames",
						Value: 90,
					},
					&cli.Float64Flag{
						Name:  simulateFlagSweep,
						Usage: "degrees swept around the target",
						Value: 180,
					},
					&cli.Float64Flag{
						Name:  simulateFlagNoise,
						Usage: "standard deviation of depth noise in meters",
					},
					&cli.Int64Flag{
						Name:  simulateFlagSeed,
						Usage: "noise seed",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  simulateFlagColor,
						Usage: "record a color image with each frame",
					},
					&cli.BoolFlag{
						Name:  simulateFlagNoDepth,
						Usage: "simulate a device without a depth sensor",
					},
					&cli.StringFlag{
						Name:  simulateFlagDevice,
						Usage: "device model stored in the capture header",
						Value: "simulated",
					},
				},
				Action: SimulateAction,
			},
			{
				Name:      "stats",
				Usage:     "describe a point cloud file",
				ArgsUsage: "<cloud>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  statsFlagPreview,
						Usage: "also render a top down PNG preview to `FILE`",
					},
				},
				Action: StatsAction,
			},
			{
				Name:      "inspect",
				Usage:     "show how each frame of a capture fares in admission",
				ArgsUsage: "<capture>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  inspectFlagAll,
						Usage: "list rejected frames too",
					},
				},
				Action: InspectAction,
			},
			{
				Name:  "watch",
				Usage: "fuse every capture moved into a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     watchFlagDir,
						Required: true,
						Usage:    "inbox `DIR` to watch",
					},
					&cli.StringFlag{
						Name:     watchFlagOutDir,
						Required: true,
						Usage:    "`DIR` receiving fused clouds",
					},
					&cli.StringFlag{
						Name:  watchFlagExt,
						Usage: "extension of capture files",
						Value: ".scan",
					},
				},
				Action: WatchAction,
			},
		},
		Writer:    out,
		ErrWriter: errOut,
	}
}

// loadConfig reads the --config file, or returns the defaults when none was given.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String(generalFlagConfig)
	if path == "" {
		return config.Default(), nil
	}
	return config.Read(path)
}

// newLogger returns a logger writing to the app's error stream, and to the --log-file if one was
// given, at the configured level. The returned function closes the log file.
func newLogger(c *cli.Context, conf *config.Config) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("scanfuse")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	closeLog := func() {}
	if fn := c.String(generalFlagLogFile); fn != "" {
		fileAppender := logging.NewFileAppender(fn)
		logger.AddAppender(fileAppender)
		closeLog = func() { utils.UncheckedError(fileAppender.Close()) }
	}
	if c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(conf.Level())
	}
	return logger, closeLog
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
