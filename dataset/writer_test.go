package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/pointprep/logging"
	"go.viam.com/pointprep/npz"
	"go.viam.com/pointprep/pointcloud"
	"go.viam.com/pointprep/utils"
)

func testArtifact() *Artifact {
	normals := make(pointcloud.Vectors, len(tenPoints))
	for i, p := range tenPoints {
		normals[i] = p.Sub(r3.Vector{X: 2, Y: 2, Z: 2}).Normalize()
	}
	normals[8] = r3.Vector{X: 0, Y: 0, Z: 1}
	return &Artifact{Scene: "area_0", Points: pointcloud.New(tenPoints), Normals: normals}
}

func TestWriteArtifact(t *testing.T) {
	artifact := testArtifact()

	for _, precision := range []npz.DType{npz.Float16, npz.Float32, npz.Float64} {
		t.Run(precision.String(), func(t *testing.T) {
			cfg := testConfig(t, "unused.npz")
			cfg.Precision = precision
			test.That(t, WriteArtifact(cfg, artifact), test.ShouldBeNil)

			points := readOutputArray(t, cfg.ArchivePath(), PointsKey)
			normals := readOutputArray(t, cfg.ArchivePath(), NormalsKey)
			test.That(t, points.Shape, test.ShouldResemble, []int{10, 3})
			test.That(t, normals.Shape, test.ShouldResemble, []int{10, 3})
			test.That(t, points.DType, test.ShouldEqual, precision)
			expectedPoints := flatten(tenPoints)
			expectedNormals := flatten(artifact.Normals)
			for i := range expectedPoints {
				test.That(t, points.Data[i], test.ShouldEqual, precision.Quantize(expectedPoints[i]))
				test.That(t, normals.Data[i], test.ShouldEqual, precision.Quantize(expectedNormals[i]))
			}

			manifest, err := os.ReadFile(cfg.ManifestPath())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, string(manifest), test.ShouldEqual, "area_0")

			interchange, err := pointcloud.NewFromFile(cfg.InterchangePath(), logging.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, interchange.Points(), test.ShouldResemble, tenPoints)
		})
	}

	t.Run("overwrites", func(t *testing.T) {
		cfg := testConfig(t, "unused.npz")
		test.That(t, WriteArtifact(cfg, artifact), test.ShouldBeNil)
		smaller := &Artifact{Scene: "area_0", Points: pointcloud.New(tenPoints[:4]), Normals: artifact.Normals[:4]}
		test.That(t, WriteArtifact(cfg, smaller), test.ShouldBeNil)
		test.That(t, readOutputArray(t, cfg.ArchivePath(), PointsKey).Shape, test.ShouldResemble, []int{4, 3})
	})

	t.Run("mismatched normals", func(t *testing.T) {
		cfg := testConfig(t, "unused.npz")
		bad := &Artifact{Scene: "area_0", Points: artifact.Points, Normals: artifact.Normals[:3]}
		err := WriteArtifact(cfg, bad)
		test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
		_, err = os.Stat(cfg.OutputDir)
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	})

	t.Run("archive failure stops later writes", func(t *testing.T) {
		cfg := testConfig(t, "unused.npz")
		// a directory in the way of the archive makes the final rename fail
		test.That(t, os.MkdirAll(filepath.Join(cfg.ArchivePath(), "blocker"), 0o755), test.ShouldBeNil)
		err := WriteArtifact(cfg, artifact)
		test.That(t, errors.Is(err, utils.ErrIO), test.ShouldBeTrue)
		_, err = os.Stat(cfg.InterchangePath())
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
		_, err = os.Stat(cfg.ManifestPath())
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	})
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.lst")
	test.That(t, WriteManifest(path, "area_0"), test.ShouldBeNil)
	test.That(t, WriteManifest(path, "area_12"), test.ShouldBeNil)
	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldEqual, "area_12")
}
