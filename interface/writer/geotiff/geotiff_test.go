package geotiff_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/writer"
	"github.com/eokit/satctl/interface/writer/geotiff"
	"github.com/eokit/satctl/scene"
)

type fakeReprojector struct {
	calls      int
	targetCRS  string
	resolution float64
}

func (r *fakeReprojector) Reproject(ctx context.Context, s *scene.Scene, targetCRS string, resolution float64) (*scene.Scene, error) {
	r.calls++
	r.targetCRS = targetCRS
	r.resolution = resolution
	return s, nil
}

type fakeEncoder struct {
	calls   int
	order   []string
	options []string
}

func (e *fakeEncoder) encode(path string, s *scene.Scene, order []string, creationOptions ...string) error {
	e.calls++
	e.order = append([]string{}, order...)
	e.options = append([]string{}, creationOptions...)
	return os.WriteFile(path, []byte("tif"), 0644)
}

func testScene(names ...string) *scene.Scene {
	s := &scene.Scene{Bands: map[string]scene.Band{}}
	for _, name := range names {
		s.Bands[name] = scene.Band{Data: make([]float32, 4), Width: 2, Height: 2, CRS: "EPSG:32631"}
	}
	return s
}

func testItem() common.Item {
	return common.Item{
		ID:     "S2A_MSIL1C_20240605T105621_N0510_R094_T31UDQ_20240605T130000",
		Source: "s2l1c",
		Date:   time.Date(2024, 6, 5, 10, 56, 21, 0, time.UTC),
	}
}

func newWriter(t *testing.T, reprojector *fakeReprojector, encoder *fakeEncoder, config map[string]string) writer.Writer {
	t.Helper()
	w, err := geotiff.NewFactory(reprojector, encoder.encode)(config)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func conversionParams(t *testing.T, datasets ...string) common.ConversionParams {
	t.Helper()
	params, err := common.NewConversionParams("EPSG:4326", datasets, 0.0001, nil)
	if err != nil {
		t.Fatal(err)
	}
	return params
}

func TestSaveStacksRequestedDatasets(t *testing.T) {
	encoder := &fakeEncoder{}
	reprojector := &fakeReprojector{}
	w := newWriter(t, reprojector, encoder, nil)
	dir := t.TempDir()

	path, err := w.Save(context.Background(), testScene("B1", "B2", "B3"), testItem(), conversionParams(t, "B1", "B2"), dir)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, testItem().OutputName("tif"))
	if path != want {
		t.Errorf("path=%s, want %s", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	if len(encoder.order) != 2 || encoder.order[0] != "B1" || encoder.order[1] != "B2" {
		t.Errorf("encoded bands %v, want [B1 B2]", encoder.order)
	}
	if reprojector.calls != 1 || reprojector.targetCRS != "EPSG:4326" || reprojector.resolution != 0.0001 {
		t.Errorf("reprojection calls=%d crs=%s res=%g", reprojector.calls, reprojector.targetCRS, reprojector.resolution)
	}
}

func TestSaveMissingDatasetWritesNothing(t *testing.T) {
	encoder := &fakeEncoder{}
	w := newWriter(t, &fakeReprojector{}, encoder, nil)
	dir := t.TempDir()

	_, err := w.Save(context.Background(), testScene("B1", "B2"), testItem(), conversionParams(t, "B1", "B9"), dir)
	var dnf writer.ErrDatasetNotFound
	if !errors.As(err, &dnf) || dnf.Dataset != "B9" {
		t.Fatalf("expected dataset-not-found for B9, got %v", err)
	}
	if encoder.calls != 0 {
		t.Error("encoder should not run for a missing dataset")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no file should be created, got %v", entries)
	}
}

func TestSaveCompressionOption(t *testing.T) {
	encoder := &fakeEncoder{}
	w := newWriter(t, &fakeReprojector{}, encoder, nil)
	if _, err := w.Save(context.Background(), testScene("B1"), testItem(), conversionParams(t, "B1"), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if len(encoder.options) != 1 || encoder.options[0] != "COMPRESS=DEFLATE" {
		t.Errorf("default compression options=%v", encoder.options)
	}

	encoder = &fakeEncoder{}
	w = newWriter(t, &fakeReprojector{}, encoder, map[string]string{"compress": "none"})
	if _, err := w.Save(context.Background(), testScene("B1"), testItem(), conversionParams(t, "B1"), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if len(encoder.options) != 0 {
		t.Errorf("compression should be disabled, got %v", encoder.options)
	}
}
