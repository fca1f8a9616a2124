package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/eokit/satctl/scene"
)

// WriteGTiff encodes the named bands of the scene, in order, as a stacked
// multi-band GeoTIFF. All bands must share the same grid (reproject first
// when they do not).
func WriteGTiff(path string, s *scene.Scene, order []string, creationOptions ...string) error {
	register()
	if len(order) == 0 {
		return fmt.Errorf("WriteGTiff: no band")
	}
	ref, ok := s.Bands[order[0]]
	if !ok {
		return fmt.Errorf("WriteGTiff: unknown band %s", order[0])
	}
	for _, name := range order[1:] {
		band, ok := s.Bands[name]
		if !ok {
			return fmt.Errorf("WriteGTiff: unknown band %s", name)
		}
		if band.Width != ref.Width || band.Height != ref.Height || band.Transform != ref.Transform {
			return fmt.Errorf("WriteGTiff: band %s is not on the same grid as %s", name, order[0])
		}
	}

	var opts []godal.DatasetCreateOption
	if len(creationOptions) > 0 {
		opts = append(opts, godal.CreationOption(creationOptions...))
	}
	ds, err := godal.Create(godal.GTiff, path, len(order), godal.Float32, ref.Width, ref.Height, opts...)
	if err != nil {
		return fmt.Errorf("WriteGTiff.Create: %w", err)
	}
	defer ds.Close()
	if err := ds.SetGeoTransform(ref.Transform); err != nil {
		return fmt.Errorf("WriteGTiff.SetGeoTransform: %w", err)
	}
	if ref.CRS != "" {
		if err := ds.SetProjection(ref.CRS); err != nil {
			return fmt.Errorf("WriteGTiff.SetProjection: %w", err)
		}
	}
	for i, name := range order {
		band := s.Bands[name]
		gband := ds.Bands()[i]
		if band.NoData != nil {
			if err := gband.SetNoData(*band.NoData); err != nil {
				return fmt.Errorf("WriteGTiff.SetNoData[%s]: %w", name, err)
			}
		}
		if err := gband.SetDescription(name); err != nil {
			return fmt.Errorf("WriteGTiff.SetDescription[%s]: %w", name, err)
		}
		if err := gband.Write(0, 0, band.Data, band.Width, band.Height); err != nil {
			return fmt.Errorf("WriteGTiff.Write[%s]: %w", name, err)
		}
	}
	return nil
}
