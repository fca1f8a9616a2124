package raster

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchDataset(t *testing.T) {
	files := []string{
		"/p/GRANULE/L1C/IMG_DATA/T31UDQ_20240605T105621_B04.jp2",
		"/p/GRANULE/L1C/IMG_DATA/T31UDQ_20240605T105621_B8A.jp2",
		"/p/LC08_L2SP_196026_20240610_02_T1_SR_B4.TIF",
	}

	file, ok := matchDataset(files, "B04")
	if !ok || filepath.Base(file) != "T31UDQ_20240605T105621_B04.jp2" {
		t.Errorf("B04 matched %s", file)
	}
	file, ok = matchDataset(files, "sr_b4")
	if !ok || filepath.Base(file) != "LC08_L2SP_196026_20240610_02_T1_SR_B4.TIF" {
		t.Errorf("SR_B4 matched %s", file)
	}
	if _, ok := matchDataset(files, "B11"); ok {
		t.Error("B11 should not match")
	}
}

func TestMatchDatasetTokenBoundaries(t *testing.T) {
	files := []string{
		"/p/T31UDQ_20240605T105621_B10.jp2",
		"/p/T31UDQ_20240605T105621_B11.jp2",
	}
	// B1 is a prefix of B10/B11 but no file holds band B1
	if file, ok := matchDataset(files, "B1"); ok {
		t.Errorf("B1 should not match, got %s", file)
	}

	files = append(files, "/p/T31UDQ_20240605T105621_B1.jp2")
	file, ok := matchDataset(files, "B1")
	if !ok || filepath.Base(file) != "T31UDQ_20240605T105621_B1.jp2" {
		t.Errorf("B1 matched %s", file)
	}
	file, ok = matchDataset(files, "B10")
	if !ok || filepath.Base(file) != "T31UDQ_20240605T105621_B10.jp2" {
		t.Errorf("B10 matched %s", file)
	}
}

func TestRasterFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "GRANULE", "IMG_DATA")
	if err := os.MkdirAll(sub, 0766); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		filepath.Join(sub, "T31UDQ_B02.jp2"),
		filepath.Join(dir, "MTL.txt"),
		filepath.Join(dir, "SR_B4.TIF"),
	} {
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := rasterFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("files=%v, want the jp2 and the tif only", files)
	}
}
