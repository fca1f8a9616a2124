package common

import (
	"errors"
	"testing"
	"time"

	"github.com/go-spatial/geom"
)

var testAOI = geom.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

func TestSearchParamsValidate(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := NewSearchParams(testAOI, start, start.AddDate(0, 1, 0), nil); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}

	// zero-width window is valid (half-open interval, yields no results)
	if _, err := NewSearchParams(testAOI, start, start, nil); err != nil {
		t.Errorf("zero-width window rejected: %v", err)
	}

	var verr ValidationError
	if _, err := NewSearchParams(testAOI, start, start.AddDate(0, 0, -1), nil); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for start > end, got %v", err)
	}
	if _, err := NewSearchParams(nil, start, start.AddDate(0, 1, 0), nil); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for missing AOI, got %v", err)
	}
}

func TestConversionParamsValidate(t *testing.T) {
	if _, err := NewConversionParams("EPSG:4326", []string{"B1", "B2"}, 500, nil); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}

	var verr ValidationError
	if _, err := NewConversionParams("", []string{"B1"}, 500, nil); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for missing CRS, got %v", err)
	}
	if _, err := NewConversionParams("EPSG:4326", nil, 500, nil); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for missing datasets, got %v", err)
	}
	if _, err := NewConversionParams("EPSG:4326", []string{"B1"}, 0, nil); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for zero resolution, got %v", err)
	}
}

func TestValidateWorkers(t *testing.T) {
	var verr ValidationError
	for _, n := range []int{0, -1, -10} {
		if err := ValidateWorkers(n); !errors.As(err, &verr) {
			t.Errorf("expected ValidationError for %d workers, got %v", n, err)
		}
	}
	if err := ValidateWorkers(1); err != nil {
		t.Errorf("1 worker rejected: %v", err)
	}
}

func TestResultCompleteness(t *testing.T) {
	items := []Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	dr := DownloadResult{
		Succeeded: []Item{items[0], items[2]},
		Failed:    []ItemError{{Item: items[1], Err: errors.New("transport")}},
	}
	if !dr.Complete(len(items)) {
		t.Error("download result does not cover all input items")
	}
	cr := ConversionResult{Written: []string{"a.tif"}, Failed: []ItemError{{Item: items[1]}}}
	if cr.Complete(len(items)) {
		t.Error("conversion result wrongly reported complete")
	}
}
