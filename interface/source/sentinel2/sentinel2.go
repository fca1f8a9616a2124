// Package sentinel2 searches and downloads Sentinel-2 products from the
// Copernicus Dataspace Ecosystem (STAC catalog, OData zipper downloads).
package sentinel2

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
	"golang.org/x/oauth2"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/provider"
	"github.com/eokit/satctl/interface/source"
	"github.com/eokit/satctl/interface/source/stac"
	"github.com/eokit/satctl/scene"
	"github.com/eokit/satctl/service/geometry"
)

const (
	DefaultCatalogURL = "https://catalogue.dataspace.copernicus.eu/stac/collections/SENTINEL-2/items"
	TokenURL          = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
	ClientID          = "cdse-public"
)

// Source implements source.Source for one Sentinel-2 processing level
type Source struct {
	source.Base
	catalogURL  string
	productType string
	gs          *provider.GSFetcher

	mu          sync.Mutex
	user, pword string
	tokenSource oauth2.TokenSource
}

// NewFactory returns a source.Factory for the given registry name and product
// type (e.g. "s2l1c"/"S2MSI1C", "s2l2a"/"S2MSI2A").
//
// Config keys: "username", "password" (Copernicus Dataspace account, required
// for download, not for search), "catalog-url" (override for tests).
func NewFactory(name, productType string, loader scene.Loader) source.Factory {
	return func(config map[string]string) (source.Source, error) {
		s := &Source{
			catalogURL:  DefaultCatalogURL,
			productType: productType,
			gs:          provider.NewGSFetcher(),
			user:        config["username"],
			pword:       config["password"],
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
	filters, err := s.parseOptions(params.Options)
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
		item, ok, err := s.toItem(f, params, filters)
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

// searchFilters are the option-driven filters applied client-side
type searchFilters struct {
	maxCloudCover float64
	tile          string
	productType   string
}

func (s *Source) parseOptions(options map[string]string) (searchFilters, error) {
	filters := searchFilters{maxCloudCover: 100, productType: s.productType}
	for k, v := range options {
		switch k {
		case "cloud-cover":
			maxCloudCover, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return searchFilters{}, common.NewValidationError("cloud-cover: not a number: %s", v)
			}
			filters.maxCloudCover = maxCloudCover
		case "tile":
			filters.tile = "T" + strings.TrimPrefix(v, "T")
		case "product-type":
			filters.productType = v
		default:
			return searchFilters{}, common.NewValidationError("unknown option %q for source %s", k, s.Name())
		}
	}
	return filters, nil
}

// itemDate reads the acquisition date of the feature, falling back to the date
// encoded in the product identifier when the catalog omits the property
func itemDate(f stac.Feature, id string) (time.Time, error) {
	if dt := f.PropertyString("datetime"); dt != "" {
		return time.Parse(time.RFC3339Nano, dt)
	}
	return common.GetDateFromProductID(id)
}

// toItem converts a catalog feature into an item, applying the client-side
// filters the catalog cannot express (exclusive end of the time interval,
// exact footprint intersection, cloud cover, tile, product type).
func (s *Source) toItem(f stac.Feature, params common.SearchParams, filters searchFilters) (common.Item, bool, error) {
	id := strings.TrimSuffix(f.ID, ".SAFE")
	date, err := itemDate(f, id)
	if err != nil {
		return common.Item{}, false, fmt.Errorf("toItem[%s].ParseDate: %w", f.ID, err)
	}
	if date.Before(params.Start) || !date.Before(params.End) {
		return common.Item{}, false, nil
	}
	if pt := f.PropertyString("productType"); pt != "" && pt != filters.productType {
		return common.Item{}, false, nil
	}
	if filters.tile != "" {
		info, err := common.Info(id)
		if err != nil || info["TILE"] != filters.tile {
			return common.Item{}, false, nil
		}
	}
	cloudCover, hasCloudCover := f.PropertyFloat("eo:cloud_cover")
	if hasCloudCover && cloudCover > filters.maxCloudCover {
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
		ID:          id,
		Source:      s.Name(),
		Date:        date,
		GeometryWKT: footprintWKT,
		Tags: map[string]string{
			common.TagConstellation: common.Sentinel2.String(),
			common.TagCollection:    "SENTINEL-2",
			common.TagProductType:   filters.productType,
		},
		Assets: map[string]common.Asset{},
	}
	if hasCloudCover {
		item.Tags[common.TagCloudCoverPercentage] = strconv.FormatFloat(cloudCover, 'f', 2, 64)
	}
	if orbit := f.PropertyString("sat:relative_orbit"); orbit != "" {
		item.Tags[common.TagRelativeOrbit] = orbit
	}
	for key, asset := range f.Assets {
		key = strings.ToLower(key)
		item.Assets[key] = common.Asset{Href: asset.Href, MediaType: asset.Type, Size: asset.Size}
		if key == "product" {
			item.Tags[common.TagDownloadURL] = asset.Href
		}
	}
	if len(item.Assets) == 0 {
		return common.Item{}, false, fmt.Errorf("toItem[%s]: no asset", f.ID)
	}
	return item, true, nil
}

// fetch is the per-item download primitive handed to the download pool.
// http(s) assets go through the Copernicus zipper, which requires a bearer
// token refreshed through the oauth2 password grant of the configured account.
// gs and ftp assets (mirror catalogs behind "catalog-url") need no token.
func (s *Source) fetch(ctx context.Context, item common.Item, dir string) error {
	fetchers := []provider.Fetcher{s.gs, &provider.FTPFetcher{User: s.user, Password: s.pword}}
	if hasHTTPAsset(item) {
		token, err := s.token(ctx)
		if err != nil {
			return fmt.Errorf("fetch[%s].%w", item.ID, err)
		}
		fetchers = append(fetchers, &provider.HTTPFetcher{Token: token})
	}
	return provider.FetchAssets(ctx, provider.NewMultiFetcher(fetchers...), item, dir)
}

func hasHTTPAsset(item common.Item) bool {
	for _, asset := range item.Assets {
		if strings.HasPrefix(asset.Href, "http://") || strings.HasPrefix(asset.Href, "https://") {
			return true
		}
	}
	return false
}

func (s *Source) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokenSource == nil {
		if s.user == "" {
			return "", common.NewValidationError("source %s: username/password required for download", s.Name())
		}
		conf := &oauth2.Config{ClientID: ClientID, Endpoint: oauth2.Endpoint{TokenURL: TokenURL}}
		token, err := conf.PasswordCredentialsToken(ctx, s.user, s.pword)
		if err != nil {
			return "", fmt.Errorf("token: %w", err)
		}
		s.tokenSource = conf.TokenSource(ctx, token)
	}
	token, err := s.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	return token.AccessToken, nil
}
