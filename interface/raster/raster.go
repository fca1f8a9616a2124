// Package raster binds the scene model to GDAL (through godal) for decoding,
// reprojection and GeoTIFF encoding.
package raster

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/eokit/satctl/scene"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// rasterExts are the file extensions considered as decodable rasters
var rasterExts = map[string]bool{".tif": true, ".tiff": true, ".jp2": true, ".img": true, ".nc": true}

// Loader implements scene.Loader on the product files of a downloaded item
type Loader struct{}

// NewLoader creates a Loader
func NewLoader() *Loader {
	register()
	return &Loader{}
}

// Load implements scene.Loader. Each requested dataset is matched against the
// raster file names of the product directory (e.g. "B04" matches
// "..._B04_10m.jp2", "SR_B4" matches "..._SR_B4.TIF"). With no dataset
// requested, every raster file is loaded under its file-derived name.
func (l *Loader) Load(ctx context.Context, dir string, datasets []string) (*scene.Scene, error) {
	files, err := rasterFiles(dir)
	if err != nil {
		return nil, scene.DecodeError{Dir: dir, Err: err}
	}
	if len(files) == 0 {
		return nil, scene.DecodeError{Dir: dir, Err: fmt.Errorf("no raster file")}
	}

	s := &scene.Scene{Bands: map[string]scene.Band{}}
	if len(datasets) == 0 {
		for _, file := range files {
			band, err := readBand(ctx, file)
			if err != nil {
				return nil, scene.DecodeError{Dir: dir, Err: err}
			}
			name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			s.Bands[name] = band
		}
		return s, nil
	}

	for _, dataset := range datasets {
		file, ok := matchDataset(files, dataset)
		if !ok {
			return nil, scene.DecodeError{Dir: dir, Err: fmt.Errorf("dataset %s: no matching file", dataset)}
		}
		band, err := readBand(ctx, file)
		if err != nil {
			return nil, scene.DecodeError{Dir: dir, Err: fmt.Errorf("dataset %s: %w", dataset, err)}
		}
		s.Bands[dataset] = band
	}
	return s, nil
}

func rasterFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && rasterExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// matchDataset returns the file carrying the dataset token in its name.
// The token must sit on non-alphanumeric boundaries, so that "B1" does not
// match "..._B10.jp2". The shortest name wins when several files match.
func matchDataset(files []string, dataset string) (string, bool) {
	token := strings.ToUpper(dataset)
	best, found := "", false
	for _, file := range files {
		if !containsToken(strings.ToUpper(filepath.Base(file)), token) {
			continue
		}
		if !found || len(filepath.Base(file)) < len(filepath.Base(best)) {
			best, found = file, true
		}
	}
	return best, found
}

func containsToken(name, token string) bool {
	for i := 0; i+len(token) <= len(name); {
		j := strings.Index(name[i:], token)
		if j < 0 {
			return false
		}
		j += i
		end := j + len(token)
		if (j == 0 || !isAlphaNum(name[j-1])) && (end == len(name) || !isAlphaNum(name[end])) {
			return true
		}
		i = j + 1
	}
	return false
}

func isAlphaNum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func readBand(ctx context.Context, file string) (scene.Band, error) {
	if err := ctx.Err(); err != nil {
		return scene.Band{}, err
	}
	ds, err := godal.Open(file)
	if err != nil {
		return scene.Band{}, fmt.Errorf("readBand.Open[%s]: %w", file, err)
	}
	defer ds.Close()
	return datasetToBand(ds)
}

func datasetToBand(ds *godal.Dataset) (scene.Band, error) {
	structure := ds.Structure()
	transform, err := ds.GeoTransform()
	if err != nil {
		return scene.Band{}, fmt.Errorf("datasetToBand.GeoTransform: %w", err)
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		return scene.Band{}, fmt.Errorf("datasetToBand: no band")
	}
	data := make([]float32, structure.SizeX*structure.SizeY)
	if err := bands[0].Read(0, 0, data, structure.SizeX, structure.SizeY); err != nil {
		return scene.Band{}, fmt.Errorf("datasetToBand.Read: %w", err)
	}
	band := scene.Band{
		Data:      data,
		Width:     structure.SizeX,
		Height:    structure.SizeY,
		CRS:       ds.Projection(),
		Transform: transform,
	}
	if nodata, ok := bands[0].NoData(); ok {
		band.NoData = &nodata
	}
	return band, nil
}
