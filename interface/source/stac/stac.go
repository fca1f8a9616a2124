// Package stac implements the client side of the SpatioTemporal Asset Catalog
// search API, the catalog flavour shared by the Copernicus Dataspace and the
// USGS Landsat catalogs.
package stac

import (
	"context"
	"encoding/json"
	"fmt"
	neturl "net/url"
	"strconv"

	"github.com/go-spatial/geom/encoding/geojson"

	"github.com/eokit/satctl/service"
	"github.com/eokit/satctl/service/log"
)

const (
	// DefaultPageLimit is the number of features requested per page
	DefaultPageLimit = 200
	// MaxPages guards against a catalog that keeps emitting next links
	MaxPages = 100
)

// Asset is one downloadable file of a feature
type Asset struct {
	Href      string `json:"href"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Size      int64  `json:"file:size"`
	Alternate map[string]struct {
		Href string `json:"href"`
	} `json:"alternate"`
}

// BestHref prefers the alternate href on the given scheme (e.g. direct s3
// object access) over the default href.
func (a Asset) BestHref(scheme string) string {
	if alt, ok := a.Alternate[scheme]; ok && alt.Href != "" {
		return alt.Href
	}
	return a.Href
}

// Feature is one catalog entry
type Feature struct {
	ID         string                 `json:"id"`
	Geometry   geojson.Geometry       `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	Assets     map[string]Asset       `json:"assets"`
}

// PropertyString returns the named property formatted as a string ("" when absent)
func (f Feature) PropertyString(name string) string {
	v, ok := f.Properties[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// PropertyFloat returns the named property as a float64
func (f Feature) PropertyFloat(name string) (float64, bool) {
	switch v := f.Properties[name].(type) {
	case float64:
		return v, true
	case string:
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			return fv, true
		}
	}
	return 0, false
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type featureCollection struct {
	Features []Feature `json:"features"`
	Links    []link    `json:"links"`
}

// Search queries the items endpoint with the given parameters and follows the
// next links until the catalog is exhausted.
func Search(ctx context.Context, itemsURL string, params neturl.Values) ([]Feature, error) {
	if params.Get("limit") == "" {
		params.Set("limit", strconv.Itoa(DefaultPageLimit))
	}
	url := itemsURL + "?" + params.Encode()

	var features []Feature
	for page := 0; page < MaxPages; page++ {
		log.Logger(ctx).Sugar().Debugf("[stac] search page %d: %s", page+1, url)
		body, err := service.GetBodyRetry(url, 3)
		if err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}

		var fc featureCollection
		if err := json.Unmarshal(body, &fc); err != nil {
			return nil, fmt.Errorf("Search.Unmarshal: %w (response: %.300s)", err, body)
		}
		features = append(features, fc.Features...)

		url = ""
		for _, l := range fc.Links {
			if l.Rel == "next" {
				url = l.Href
				break
			}
		}
		if url == "" {
			return features, nil
		}
	}
	return nil, fmt.Errorf("Search: more than %d pages, narrow the query", MaxPages)
}
