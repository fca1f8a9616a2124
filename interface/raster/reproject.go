package raster

import (
	"context"
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"

	"github.com/eokit/satctl/scene"
)

// Reprojector implements scene.Reprojector with a GDAL warp
type Reprojector struct{}

// NewReprojector creates a Reprojector
func NewReprojector() *Reprojector {
	register()
	return &Reprojector{}
}

// Reproject implements scene.Reprojector. Each band is warped to the target
// CRS; the target-aligned-pixels switch pins all bands of the scene onto the
// same grid when a resolution is given.
func (r *Reprojector) Reproject(ctx context.Context, s *scene.Scene, targetCRS string, resolution float64) (*scene.Scene, error) {
	switches := []string{"-of", "MEM", "-t_srs", targetCRS}
	if resolution > 0 {
		res := strconv.FormatFloat(resolution, 'f', -1, 64)
		switches = append(switches, "-tr", res, res, "-tap")
	}

	out := &scene.Scene{Bands: map[string]scene.Band{}}
	for _, name := range s.Datasets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		band, err := warpBand(s.Bands[name], switches)
		if err != nil {
			return nil, fmt.Errorf("Reproject[%s]: %w", name, err)
		}
		out.Bands[name] = band
	}
	return out, nil
}

func warpBand(band scene.Band, switches []string) (scene.Band, error) {
	src, err := bandToDataset("", band, godal.Memory)
	if err != nil {
		return scene.Band{}, err
	}
	defer src.Close()
	if band.NoData != nil {
		nodata := strconv.FormatFloat(*band.NoData, 'f', -1, 64)
		switches = append(switches, "-srcnodata", nodata, "-dstnodata", nodata)
	}
	dst, err := src.Warp("", switches)
	if err != nil {
		return scene.Band{}, fmt.Errorf("warpBand.Warp: %w", err)
	}
	defer dst.Close()
	return datasetToBand(dst)
}

// bandToDataset copies a band into a single-band dataset of the given driver
func bandToDataset(name string, band scene.Band, driver godal.DriverName, opts ...godal.DatasetCreateOption) (*godal.Dataset, error) {
	ds, err := godal.Create(driver, name, 1, godal.Float32, band.Width, band.Height, opts...)
	if err != nil {
		return nil, fmt.Errorf("bandToDataset.Create: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			ds.Close()
		}
	}()
	if err := ds.SetGeoTransform(band.Transform); err != nil {
		return nil, fmt.Errorf("bandToDataset.SetGeoTransform: %w", err)
	}
	if band.CRS != "" {
		if err := ds.SetProjection(band.CRS); err != nil {
			return nil, fmt.Errorf("bandToDataset.SetProjection: %w", err)
		}
	}
	gband := ds.Bands()[0]
	if band.NoData != nil {
		if err := gband.SetNoData(*band.NoData); err != nil {
			return nil, fmt.Errorf("bandToDataset.SetNoData: %w", err)
		}
	}
	if err := gband.Write(0, 0, band.Data, band.Width, band.Height); err != nil {
		return nil, fmt.Errorf("bandToDataset.Write: %w", err)
	}
	ok = true
	return ds, nil
}
