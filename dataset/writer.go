package dataset

import (
	"fmt"
	"io"

	"github.com/golang/geo/r3"

	"go.viam.com/pointprep/npz"
	"go.viam.com/pointprep/pointcloud"
	"go.viam.com/pointprep/utils"
)

// Archive keys of the processed arrays.
const (
	PointsKey  = "points"
	NormalsKey = "normals"
)

// Artifact is the processed sample of one scene.
type Artifact struct {
	Scene   string
	Points  pointcloud.PointCloud
	Normals pointcloud.Vectors
}

// WriteArtifact writes the archive, the interchange file and the manifest for artifact,
// in that order. Each file replaces its previous version atomically and a failure stops
// before the later files are touched.
func WriteArtifact(cfg *Config, artifact *Artifact) error {
	if artifact.Points.Size() != len(artifact.Normals) {
		return utils.NewInvalidArgumentError("normals", len(artifact.Normals),
			fmt.Sprintf("does not match %d points", artifact.Points.Size()))
	}
	if err := utils.EnsureDir(cfg.SceneDir()); err != nil {
		return err
	}
	if err := WriteArchive(cfg.ArchivePath(), artifact, cfg.Precision); err != nil {
		return err
	}
	if err := pointcloud.WriteToFile(artifact.Points, cfg.InterchangePath(), cfg.Format); err != nil {
		return err
	}
	return WriteManifest(cfg.ManifestPath(), artifact.Scene)
}

// WriteArchive stores the points and normals of artifact as (K, 3) arrays at the given
// precision.
func WriteArchive(path string, artifact *Artifact, precision npz.DType) error {
	points, err := npz.NewArray(precision, flatten(artifact.Points.Points()), artifact.Points.Size(), 3)
	if err != nil {
		return err
	}
	normals, err := npz.NewArray(precision, flatten(artifact.Normals), len(artifact.Normals), 3)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		zw := npz.NewWriter(w)
		if err := zw.Write(PointsKey, points); err != nil {
			return err
		}
		if err := zw.Write(NormalsKey, normals); err != nil {
			return err
		}
		return zw.Close()
	})
}

// WriteManifest writes the manifest at path, which lists the scene name and nothing else.
func WriteManifest(path, scene string) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, scene)
		return err
	})
}

func flatten(vs []r3.Vector) []float64 {
	out := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}
