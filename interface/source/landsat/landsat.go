// Package landsat searches and downloads Landsat 8/9 Collection 2 Level-2
// products from the USGS catalog, fetching the assets from the usgs-landsat
// requester-pays bucket.
package landsat

import (
	"context"
	"fmt"
	neturl "net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/provider"
	"github.com/eokit/satctl/interface/source"
	"github.com/eokit/satctl/interface/source/stac"
	"github.com/eokit/satctl/scene"
	"github.com/eokit/satctl/service/geometry"
)

const (
	DefaultCatalogURL = "https://landsatlook.usgs.gov/stac-server/collections/landsat-c2l2-sr/items"
	AwsRegion         = "us-west-2"
)

// Source implements source.Source for Landsat 8/9 surface reflectance
type Source struct {
	source.Base
	catalogURL string

	mu                           sync.Mutex
	accessKeyID, secretAccessKey string
	fetcher                      provider.Fetcher
}

// NewFactory returns a source.Factory for the given registry name
// (e.g. "landsat-l2").
//
// Config keys: "aws-access-key-id", "aws-secret-access-key" (the bucket is
// requester-pays, the account is billed for the transfer; the default AWS
// credential chain applies when absent), "catalog-url" (override for tests).
func NewFactory(name string, loader scene.Loader) source.Factory {
	return func(config map[string]string) (source.Source, error) {
		s := &Source{
			catalogURL:      DefaultCatalogURL,
			accessKeyID:     config["aws-access-key-id"],
			secretAccessKey: config["aws-secret-access-key"],
		}
		if url, ok := config["catalog-url"]; ok {
			s.catalogURL = url
		}
		s.Base = source.Base{SourceName: name, Fetch: s.fetch, Loader: loader}
		return s, nil
	}
}

// Search implements source.Source
func (s *Source) Search(ctx context.Context, params common.SearchParams) ([]common.Item, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	maxCloudCover, platform, err := s.parseOptions(params.Options)
	if err != nil {
		return nil, err
	}

	ext, err := geom.NewExtentFromGeometry(params.AOI)
	if err != nil {
		return nil, source.SearchError{Source: s.Name(), Err: fmt.Errorf("extent: %w", err)}
	}
	query := neturl.Values{}
	query.Set("bbox", fmt.Sprintf("%g,%g,%g,%g", ext.MinX(), ext.MinY(), ext.MaxX(), ext.MaxY()))
	query.Set("datetime", params.Start.UTC().Format(time.RFC3339)+"/"+params.End.UTC().Format(time.RFC3339))

	features, err := stac.Search(ctx, s.catalogURL, query)
	if err != nil {
		return nil, source.SearchError{Source: s.Name(), Err: err}
	}

	var items []common.Item
	for _, f := range features {
		item, ok, err := s.toItem(f, params, maxCloudCover, platform)
		if err != nil {
			return nil, source.SearchError{Source: s.Name(), Err: err}
		}
		if ok {
			items = append(items, item)
		}
	}
	source.SortItems(items)
	return items, nil
}

func (s *Source) parseOptions(options map[string]string) (maxCloudCover float64, platform string, err error) {
	maxCloudCover = 100
	for k, v := range options {
		switch k {
		case "cloud-cover":
			if maxCloudCover, err = strconv.ParseFloat(v, 64); err != nil {
				return 0, "", common.NewValidationError("cloud-cover: not a number: %s", v)
			}
		case "platform":
			platform = strings.ToUpper(v)
		default:
			return 0, "", common.NewValidationError("unknown option %q for source %s", k, s.Name())
		}
	}
	return maxCloudCover, platform, nil
}

// itemDate reads the acquisition date of the feature, falling back to the date
// encoded in the product identifier when the catalog omits the property
func itemDate(f stac.Feature) (time.Time, error) {
	if dt := f.PropertyString("datetime"); dt != "" {
		return time.Parse(time.RFC3339Nano, dt)
	}
	return common.GetDateFromProductID(f.ID)
}

func (s *Source) toItem(f stac.Feature, params common.SearchParams, maxCloudCover float64, platform string) (common.Item, bool, error) {
	date, err := itemDate(f)
	if err != nil {
		return common.Item{}, false, fmt.Errorf("toItem[%s].ParseDate: %w", f.ID, err)
	}
	if date.Before(params.Start) || !date.Before(params.End) {
		return common.Item{}, false, nil
	}
	if platform != "" && strings.ToUpper(f.PropertyString("platform")) != platform {
		return common.Item{}, false, nil
	}
	cloudCover, hasCloudCover := f.PropertyFloat("eo:cloud_cover")
	if hasCloudCover && cloudCover > maxCloudCover {
		return common.Item{}, false, nil
	}

	footprintWKT, err := wkt.EncodeString(f.Geometry.Geometry)
	if err != nil {
		return common.Item{}, false, fmt.Errorf("toItem[%s].EncodeWKT: %w", f.ID, err)
	}
	intersects, err := geometry.Intersects(params.AOI, footprintWKT)
	if err != nil {
		return common.Item{}, false, fmt.Errorf("toItem[%s].%w", f.ID, err)
	}
	if !intersects {
		return common.Item{}, false, nil
	}

	item := common.Item{
		ID:          f.ID,
		Source:      s.Name(),
		Date:        date,
		GeometryWKT: footprintWKT,
		Tags: map[string]string{
			common.TagConstellation: common.Landsat89.String(),
			common.TagCollection:    "landsat-c2l2-sr",
			common.TagSatellite:     f.PropertyString("platform"),
		},
		Assets: map[string]common.Asset{},
	}
	if hasCloudCover {
		item.Tags[common.TagCloudCoverPercentage] = strconv.FormatFloat(cloudCover, 'f', 2, 64)
	}
	for key, asset := range f.Assets {
		if skipAsset(key) {
			continue
		}
		item.Assets[strings.ToLower(key)] = common.Asset{Href: asset.BestHref("s3"), MediaType: asset.Type, Size: asset.Size}
	}
	if len(item.Assets) == 0 {
		return common.Item{}, false, fmt.Errorf("toItem[%s]: no asset", f.ID)
	}
	return item, true, nil
}

// browse products are not useful for conversion
func skipAsset(key string) bool {
	switch strings.ToLower(key) {
	case "thumbnail", "reduced_resolution_browse", "rendered_preview", "index":
		return true
	}
	return false
}

func (s *Source) fetch(ctx context.Context, item common.Item, dir string) error {
	fetcher, err := s.assetFetcher(ctx)
	if err != nil {
		return fmt.Errorf("fetch[%s].%w", item.ID, err)
	}
	return provider.FetchAssets(ctx, fetcher, item, dir)
}

func (s *Source) assetFetcher(ctx context.Context) (provider.Fetcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetcher == nil {
		s3Fetcher, err := provider.NewS3Fetcher(ctx, AwsRegion, s.accessKeyID, s.secretAccessKey)
		if err != nil {
			return nil, fmt.Errorf("assetFetcher.%w", err)
		}
		s.fetcher = provider.NewMultiFetcher(s3Fetcher, &provider.HTTPFetcher{})
	}
	return s.fetcher, nil
}
