// Package geotiff implements a writer stacking the requested datasets into
// one multi-band GeoTIFF per item.
package geotiff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/raster"
	"github.com/eokit/satctl/interface/writer"
	"github.com/eokit/satctl/scene"
)

// WriterName is the registry name of this writer
const WriterName = "geotiff"

// EncodeFunc writes the named bands of the scene, in order, to path
type EncodeFunc func(path string, s *scene.Scene, order []string, creationOptions ...string) error

// Writer implements writer.Writer for stacked multi-band GeoTIFFs
type Writer struct {
	reprojector scene.Reprojector
	encode      EncodeFunc
	compress    string
	nodata      *float64
}

// NewFactory returns a writer.Factory producing GeoTIFF writers.
// reprojector and encode default to the GDAL implementations when nil.
//
// Config keys: "compress" (GeoTIFF compression, default "DEFLATE", "none" to
// disable), "nodata" (override the nodata value of every output band).
func NewFactory(reprojector scene.Reprojector, encode EncodeFunc) writer.Factory {
	return func(config map[string]string) (writer.Writer, error) {
		w := &Writer{reprojector: reprojector, encode: encode, compress: "DEFLATE"}
		if w.reprojector == nil {
			w.reprojector = raster.NewReprojector()
		}
		if w.encode == nil {
			w.encode = raster.WriteGTiff
		}
		if c, ok := config["compress"]; ok {
			w.compress = c
		}
		if n, ok := config["nodata"]; ok {
			nodata, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, common.NewValidationError("nodata: not a number: %s", n)
			}
			w.nodata = &nodata
		}
		return w, nil
	}
}

// Name implements writer.Writer
func (w *Writer) Name() string {
	return WriterName
}

// Extension implements writer.Writer
func (w *Writer) Extension() string {
	return "tif"
}

// Save implements writer.Writer. The requested datasets are checked against
// the scene before anything touches the filesystem, then reprojected onto one
// grid and stacked. The artifact appears under its final name only once fully
// written.
func (w *Writer) Save(ctx context.Context, s *scene.Scene, item common.Item, params common.ConversionParams, destination string) (string, error) {
	order := params.Datasets
	if len(order) == 0 {
		order = s.Datasets()
	}
	for _, dataset := range order {
		if _, ok := s.Band(dataset); !ok {
			return "", writer.ErrDatasetNotFound{Dataset: dataset}
		}
	}

	if params.TargetCRS != "" {
		reprojected, err := w.reprojector.Reproject(ctx, s, params.TargetCRS, params.Resolution)
		if err != nil {
			return "", fmt.Errorf("Save[%s].Reproject: %w", item.ID, err)
		}
		s = reprojected
	}
	if w.nodata != nil {
		overridden := &scene.Scene{Bands: map[string]scene.Band{}}
		for name, band := range s.Bands {
			band.NoData = w.nodata
			overridden.Bands[name] = band
		}
		s = overridden
	}

	if err := os.MkdirAll(destination, 0766); err != nil {
		return "", fmt.Errorf("Save.MkdirAll: %w", err)
	}
	outPath := filepath.Join(destination, item.OutputName(w.Extension()))
	tmpPath := filepath.Join(destination, "."+item.OutputName(w.Extension())+".tmp")
	defer os.Remove(tmpPath)

	var creationOptions []string
	if w.compress != "" && w.compress != "none" {
		creationOptions = append(creationOptions, "COMPRESS="+w.compress)
	}
	if err := w.encode(tmpPath, s, order, creationOptions...); err != nil {
		return "", fmt.Errorf("Save[%s].Encode: %w", item.ID, err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return "", fmt.Errorf("Save[%s].Rename: %w", item.ID, err)
	}
	return outPath, nil
}
