package landsat_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-spatial/geom"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/source"
	"github.com/eokit/satctl/interface/source/landsat"
)

func feature(id, platform string) string {
	return fmt.Sprintf(`{
		"id": "%s",
		"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]},
		"properties": {"datetime": "2024-06-10T10:20:30Z", "eo:cloud_cover": 7.5, "platform": "%s"},
		"assets": {
			"red": {
				"href": "https://landsatlook.usgs.gov/data/%s_SR_B4.TIF",
				"type": "image/tiff; application=geotiff",
				"alternate": {"s3": {"href": "s3://usgs-landsat/collection02/%s_SR_B4.TIF"}}
			},
			"thumbnail": {"href": "https://landsatlook.usgs.gov/data/%s_thumb.jpeg", "type": "image/jpeg"}
		}
	}`, id, platform, id, id, id)
}

func newSource(t *testing.T, catalogURL string) *landsat.Source {
	t.Helper()
	s, err := landsat.NewFactory("landsat-l2", nil)(map[string]string{"catalog-url": catalogURL})
	if err != nil {
		t.Fatal(err)
	}
	return s.(*landsat.Source)
}

func search(t *testing.T, catalogURL string, options map[string]string) []common.Item {
	t.Helper()
	params, err := common.NewSearchParams(
		geom.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		options,
	)
	if err != nil {
		t.Fatal(err)
	}
	items, err := newSource(t, catalogURL).Search(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	return items
}

func catalog(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"type": "FeatureCollection", "features": [%s, %s], "links": []}`,
			feature("LC08_L2SP_196026_20240610_20240615_02_T1", "LANDSAT_8"),
			feature("LC09_L2SP_196026_20240618_20240623_02_T1", "LANDSAT_9"))
	}))
}

func TestSearchPrefersS3Assets(t *testing.T) {
	server := catalog(t)
	defer server.Close()

	items := search(t, server.URL, nil)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	item := items[0]
	red, ok := item.Assets["red"]
	if !ok {
		t.Fatalf("missing red asset: %v", item.Assets)
	}
	if !strings.HasPrefix(red.Href, "s3://usgs-landsat/") {
		t.Errorf("expected the s3 alternate href, got %s", red.Href)
	}
	if _, ok := item.Assets["thumbnail"]; ok {
		t.Error("browse assets should be skipped")
	}
	if item.Tags[common.TagConstellation] != common.Landsat89.String() {
		t.Errorf("constellation=%s", item.Tags[common.TagConstellation])
	}
}

func TestSearchMissingGeometry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type": "FeatureCollection", "features": [{
			"id": "LC08_L2SP_196026_20240610_20240615_02_T1",
			"properties": {"datetime": "2024-06-10T10:20:30Z"},
			"assets": {"red": {"href": "s3://usgs-landsat/collection02/x_SR_B4.TIF"}}
		}], "links": []}`)
	}))
	defer server.Close()

	params, err := common.NewSearchParams(
		geom.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	_, err = newSource(t, server.URL).Search(context.Background(), params)
	var serr source.SearchError
	if !errors.As(err, &serr) {
		t.Fatalf("expected a search error for a feature without geometry, got %v", err)
	}
}

func TestSearchPlatformOption(t *testing.T) {
	server := catalog(t)
	defer server.Close()

	items := search(t, server.URL, map[string]string{"platform": "landsat_9"})
	if len(items) != 1 || items[0].ID != "LC09_L2SP_196026_20240618_20240623_02_T1" {
		t.Fatalf("expected the LANDSAT_9 item only, got %v", items)
	}
}
