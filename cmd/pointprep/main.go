// Package main is the pointprep command line: it builds reconstruction training samples
// from raw point clouds and inspects the resulting archives.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/pointprep/dataset"
	"go.viam.com/pointprep/logging"
	"go.viam.com/pointprep/npz"
	"go.viam.com/pointprep/pointcloud"
)

const (
	// Flags.
	flagDebug       = "debug"
	flagLogFile     = "log-file"
	flagConfig      = "config"
	flagInput       = "input"
	flagKey         = "key"
	flagOut         = "out"
	flagScene       = "scene"
	flagNumPoints   = "num_points"
	flagScaleFactor = "scale_factor"
	flagPrecision   = "precision"
	flagFormat      = "format"
	flagManifest    = "manifest"
	flagSeed        = "seed"
)

func main() {
	logger := logging.NewLogger("pointprep")
	if err := newApp(os.Stdout, logger).Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func newApp(out io.Writer, logger logging.Logger) *cli.App {
	var logFile io.Closer
	return &cli.App{
		Name:            "pointprep",
		Usage:           "prepare point cloud training data for surface reconstruction",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotating it as it grows",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			if path := c.String(flagLogFile); path != "" {
				appender, closer := logging.NewFileAppender(path)
				logger.AddAppender(appender)
				logFile = closer
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return multierr.Combine(logger.Sync(), logFile.Close())
		},
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "scale, resample and annotate a point cloud with normals, then write the dataset files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load build configuration from `FILE` (.json, .yaml); flags override it",
					},
					&cli.StringFlag{
						Name:  flagInput,
						Value: dataset.DefaultInputPath,
						Usage: "raw point cloud (.npz, .las, .pcd or .ply)",
					},
					&cli.StringFlag{
						Name:  flagKey,
						Value: dataset.DefaultInputKey,
						Usage: "name of the coordinate array in an .npz input",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Value: dataset.DefaultOutputDir,
						Usage: "output `DIR`",
					},
					&cli.StringFlag{
						Name:  flagScene,
						Value: dataset.DefaultScene,
						Usage: "scene name, used as the output subdirectory and listed in the manifest",
					},
					&cli.IntFlag{
						Name:  flagNumPoints,
						Value: dataset.DefaultNumPoints,
						Usage: "number of points to sample",
					},
					&cli.Float64Flag{
						Name:  flagScaleFactor,
						Value: dataset.DefaultScaleFactor,
						Usage: "factor every coordinate is multiplied by",
					},
					&cli.StringFlag{
						Name:  flagPrecision,
						Value: dataset.DefaultPrecision.String(),
						Usage: "storage precision of the archive: float16, float32 or float64",
					},
					&cli.StringFlag{
						Name:  flagFormat,
						Value: string(dataset.DefaultFormat),
						Usage: fmt.Sprintf("interchange file format, one of %v", pointcloud.Formats),
					},
					&cli.StringFlag{
						Name:  flagManifest,
						Value: dataset.DefaultManifest,
						Usage: "manifest file name inside the output directory",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Usage: "seed for reproducible sampling; random when unset",
					},
				},
				Action: func(c *cli.Context) error {
					return buildAction(c, logger)
				},
			},
			{
				Name:      "inspect",
				Usage:     "print the arrays of an .npz archive",
				ArgsUsage: "FILE.npz",
				Action:    inspectAction,
			},
		},
	}
}

// buildConfig starts from the config file, if any, and applies every flag that is set.
// Without a config file the flag defaults apply.
func buildConfig(c *cli.Context) (*dataset.Config, error) {
	cfg := dataset.NewConfig()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = dataset.ReadConfig(path); err != nil {
			return nil, err
		}
	}
	fromFile := c.String(flagConfig) != ""
	apply := func(name string) bool {
		return c.IsSet(name) || !fromFile
	}

	if apply(flagInput) {
		cfg.InputPath = c.String(flagInput)
	}
	if apply(flagKey) {
		cfg.InputKey = c.String(flagKey)
	}
	if apply(flagOut) {
		cfg.OutputDir = c.String(flagOut)
	}
	if apply(flagScene) {
		cfg.Scene = c.String(flagScene)
	}
	if apply(flagNumPoints) {
		cfg.NumPoints = c.Int(flagNumPoints)
	}
	if apply(flagScaleFactor) {
		cfg.ScaleFactor = c.Float64(flagScaleFactor)
	}
	if apply(flagPrecision) {
		precision, err := npz.ParseDType(c.String(flagPrecision))
		if err != nil {
			return nil, err
		}
		cfg.Precision = precision
	}
	if apply(flagFormat) {
		format, err := pointcloud.ParseFormat(c.String(flagFormat))
		if err != nil {
			return nil, err
		}
		cfg.Format = format
	}
	if apply(flagManifest) {
		cfg.Manifest = c.String(flagManifest)
	}
	if c.IsSet(flagSeed) {
		seed := c.Int64(flagSeed)
		cfg.Seed = &seed
	}
	return cfg, nil
}

func buildAction(c *cli.Context, logger logging.Logger) error {
	if c.Args().Present() {
		return errors.Errorf("unexpected arguments %v", c.Args().Slice())
	}
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	res, err := dataset.Build(c.Context, cfg, nil, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d points for scene %q\n", res.NumPoints, res.Scene)
	for _, path := range []string{res.Archive, res.Interchange, res.Manifest} {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "  %s (%s)\n", path, units.HumanSize(float64(info.Size())))
	}
	return nil
}

func inspectAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("inspect takes exactly one FILE.npz argument")
	}
	infos, err := dataset.InspectArchive(c.Args().First())
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Key", "Shape", "DType", "Min", "Max", "Mean", "Mean row norm"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.Key, info.ShapeString(), info.DType, info.Min, info.Max, info.Mean, info.MeanRowNorm})
	}
	t.Render()
	return nil
}
