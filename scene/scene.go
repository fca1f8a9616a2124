// Package scene holds the in-memory decoded representation of a downloaded product
// and the interface of the external decoding library that produces it.
package scene

import (
	"context"
	"fmt"
	"sort"
)

// Band is one raster dataset with its geospatial metadata
type Band struct {
	Data      []float32
	Width     int
	Height    int
	CRS       string
	Transform [6]float64 // affine geotransform, GDAL ordering
	NoData    *float64
}

// Scene is a decoded set of named bands. It is short-lived: created by a Loader,
// consumed by a Writer, then released. It is never cached by the pipeline.
type Scene struct {
	Bands map[string]Band
}

// Datasets returns the sorted names of the available bands
func (s *Scene) Datasets() []string {
	names := make([]string, 0, len(s.Bands))
	for name := range s.Bands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Band returns the named band
func (s *Scene) Band(name string) (Band, bool) {
	b, ok := s.Bands[name]
	return b, ok
}

// DecodeError is returned when the decoding library cannot read a downloaded product
type DecodeError struct {
	Dir string
	Err error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Dir, e.Err)
}

func (e DecodeError) Unwrap() error { return e.Err }

// Loader decodes the assets of a downloaded item into a Scene.
// It must be a pure function of (local assets, requested datasets):
// no side effect is visible to the pipeline.
type Loader interface {
	Load(ctx context.Context, dir string, datasets []string) (*Scene, error)
}

// Reprojector warps the bands of a scene onto one common grid in the target
// CRS, so that they can be stacked into a single output file.
type Reprojector interface {
	Reproject(ctx context.Context, s *Scene, targetCRS string, resolution float64) (*Scene, error)
}
