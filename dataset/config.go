// Package dataset turns a raw point cloud into a training sample for surface
// reconstruction: a fixed number of points with one normal each, stored as an .npz
// archive next to an interchange copy of the points and a manifest naming the scene.
package dataset

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	goutils "go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"go.viam.com/pointprep/npz"
	"go.viam.com/pointprep/pointcloud"
	"go.viam.com/pointprep/utils"
)

// Defaults used for every Config field a caller leaves unset.
const (
	DefaultInputPath   = "data/daisue/raw/pointcloud.npz"
	DefaultInputKey    = "points"
	DefaultOutputDir   = "data/daisue/processed"
	DefaultScene       = "area_0"
	DefaultNumPoints   = 400000
	DefaultScaleFactor = 0.1
	DefaultPrecision   = npz.Float16
	DefaultFormat      = pointcloud.FormatPLY
	DefaultManifest    = "test.lst"
)

// Config describes one dataset build.
type Config struct {
	InputPath   string            `json:"input_path" yaml:"input_path"`
	InputKey    string            `json:"input_key" yaml:"input_key"`
	OutputDir   string            `json:"output_dir" yaml:"output_dir"`
	Scene       string            `json:"scene" yaml:"scene"`
	NumPoints   int               `json:"num_points" yaml:"num_points"`
	ScaleFactor float64           `json:"scale_factor" yaml:"scale_factor"`
	Precision   npz.DType         `json:"precision" yaml:"precision"`
	Format      pointcloud.Format `json:"format" yaml:"format"`
	Manifest    string            `json:"manifest" yaml:"manifest"`
	// Seed makes a build reproducible. Unset means every build draws differently.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// NewConfig returns a Config holding the defaults.
func NewConfig() *Config {
	return &Config{
		InputPath:   DefaultInputPath,
		InputKey:    DefaultInputKey,
		OutputDir:   DefaultOutputDir,
		Scene:       DefaultScene,
		NumPoints:   DefaultNumPoints,
		ScaleFactor: DefaultScaleFactor,
		Precision:   DefaultPrecision,
		Format:      DefaultFormat,
		Manifest:    DefaultManifest,
	}
}

// ReadConfig reads a JSON, JSON5 or YAML config file. Fields missing from the file keep their
// defaults.
func ReadConfig(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, utils.NewNotFoundError(path)
		}
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	cfg := NewConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".json5":
		err = json5.Unmarshal(data, cfg)
	default:
		return nil, utils.NewFormatError(path, "config must be .json, .json5, .yaml or .yml")
	}
	if err != nil {
		return nil, utils.NewFormatError(path, "%v", err)
	}
	return cfg, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.InputPath == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "input_path")
	}
	if cfg.InputKey == "" && strings.EqualFold(filepath.Ext(cfg.InputPath), ".npz") {
		return goutils.NewConfigValidationFieldRequiredError(path, "input_key")
	}
	if cfg.OutputDir == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "output_dir")
	}
	if cfg.Scene == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "scene")
	}
	if !isBaseName(cfg.Scene) {
		return goutils.NewConfigValidationError(path, errors.Errorf("scene %q must be a single path element", cfg.Scene))
	}
	if cfg.Manifest == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "manifest")
	}
	if !isBaseName(cfg.Manifest) {
		return goutils.NewConfigValidationError(path, errors.Errorf("manifest %q must be a file name", cfg.Manifest))
	}
	if cfg.NumPoints <= 0 {
		return errors.Wrapf(utils.NewInvalidArgumentError("num_points", cfg.NumPoints, "must be positive"), "error validating %q", path)
	}
	if math.IsNaN(cfg.ScaleFactor) || math.IsInf(cfg.ScaleFactor, 0) || cfg.ScaleFactor <= 0 {
		return errors.Wrapf(utils.NewInvalidArgumentError("scale_factor", cfg.ScaleFactor, "must be finite and positive"),
			"error validating %q", path)
	}
	if cfg.Precision.Size() == 0 {
		return errors.Wrapf(utils.NewInvalidArgumentError("precision", cfg.Precision, "is not a supported dtype"), "error validating %q", path)
	}
	if cfg.Format.Extension() == "" {
		return errors.Wrapf(utils.NewInvalidArgumentError("format", cfg.Format, "is not a supported interchange format"),
			"error validating %q", path)
	}
	return nil
}

func isBaseName(name string) bool {
	return name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// SceneDir is the directory the artifacts of the scene are written to.
func (cfg *Config) SceneDir() string {
	return filepath.Join(cfg.OutputDir, cfg.Scene)
}

// ArchivePath is where the .npz archive is written.
func (cfg *Config) ArchivePath() string {
	return filepath.Join(cfg.SceneDir(), "pointcloud.npz")
}

// InterchangePath is where the interchange copy of the points is written.
func (cfg *Config) InterchangePath() string {
	return filepath.Join(cfg.SceneDir(), "pointcloud"+cfg.Format.Extension())
}

// ManifestPath is where the manifest is written.
func (cfg *Config) ManifestPath() string {
	return filepath.Join(cfg.OutputDir, cfg.Manifest)
}
