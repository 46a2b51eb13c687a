package dataset

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/pointprep/logging"
	"go.viam.com/pointprep/pointcloud"
)

// Result summarizes a finished build.
type Result struct {
	RunID       string
	Scene       string
	InputPoints int
	NumPoints   int
	Archive     string
	Interchange string
	Manifest    string
}

// Build runs the whole pipeline for cfg: load, scale, resample, estimate normals and
// write. Errors name the stage that failed and keep their kind for errors.Is. ctx is
// only checked between stages. A nil rng is seeded from cfg.Seed, or from the clock if
// no seed is set.
func Build(ctx context.Context, cfg *Config, rng *rand.Rand, logger logging.Logger) (*Result, error) {
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	if rng == nil {
		seed := time.Now().UnixNano()
		if cfg.Seed != nil {
			seed = *cfg.Seed
		}
		rng = rand.New(rand.NewSource(seed)) //nolint:gosec
	}
	runID := uuid.NewString()
	logger = logger.With("run", runID, "scene", cfg.Scene)
	b := &builder{ctx: ctx, logger: logger}

	var raw, scaled, resampled pointcloud.PointCloud
	var normals pointcloud.Vectors
	stages := []struct {
		name string
		run  func() error
	}{
		{"load", func() (err error) {
			raw, err = LoadPointCloud(cfg.InputPath, cfg.InputKey, logger.Sublogger("load"))
			return err
		}},
		{"scale", func() (err error) {
			scaled, err = pointcloud.Scale(raw, cfg.ScaleFactor)
			return err
		}},
		{"resample", func() (err error) {
			resampled, err = pointcloud.Resample(scaled, cfg.NumPoints, rng)
			return err
		}},
		{"estimate normals", func() (err error) {
			normals, err = pointcloud.EstimateNormals(resampled, rng)
			return err
		}},
		{"write", func() error {
			return WriteArtifact(cfg, &Artifact{Scene: cfg.Scene, Points: resampled, Normals: normals})
		}},
	}
	for _, stage := range stages {
		if err := b.run(stage.name, stage.run); err != nil {
			return nil, err
		}
	}

	res := &Result{
		RunID:       runID,
		Scene:       cfg.Scene,
		InputPoints: raw.Size(),
		NumPoints:   resampled.Size(),
		Archive:     cfg.ArchivePath(),
		Interchange: cfg.InterchangePath(),
		Manifest:    cfg.ManifestPath(),
	}
	logger.Infow("dataset built",
		"input_points", res.InputPoints,
		"points", res.NumPoints,
		"archive", res.Archive,
		"interchange", res.Interchange,
		"manifest", res.Manifest)
	return res, nil
}

type builder struct {
	ctx    context.Context
	logger logging.Logger
}

func (b *builder) run(name string, stage func() error) error {
	if err := b.ctx.Err(); err != nil {
		return errors.Wrap(err, name)
	}
	start := time.Now()
	if err := stage(); err != nil {
		return errors.Wrap(err, name)
	}
	b.logger.Debugw("stage finished", "stage", name, "duration", time.Since(start))
	return nil
}
