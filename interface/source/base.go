package source

import (
	"context"
	"fmt"
	"sort"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/converter"
	"github.com/eokit/satctl/downloader"
	"github.com/eokit/satctl/interface/writer"
	"github.com/eokit/satctl/scene"
)

// Base carries the provider-independent part of a Source: the download,
// scene-loading and conversion capabilities, bound to the provider's fetch
// primitive and to the external decoding library. Implementations embed it
// and add Search.
type Base struct {
	SourceName string
	Fetch      downloader.FetchFunc
	Loader     scene.Loader
}

// Name implements Source
func (b *Base) Name() string {
	return b.SourceName
}

// Download implements Source
func (b *Base) Download(ctx context.Context, items []common.Item, destination string, numWorkers int) (common.DownloadResult, error) {
	return downloader.Download(ctx, items, b.Fetch, destination, numWorkers)
}

// LoadScene implements Source
func (b *Base) LoadScene(ctx context.Context, item common.Item, downloadDir string, datasets []string) (*scene.Scene, error) {
	if !downloader.Downloaded(item, downloadDir) {
		return nil, ErrNotDownloaded{Item: item.ID}
	}
	s, err := b.Loader.Load(ctx, item.LocalDir(downloadDir), datasets)
	if err != nil {
		return nil, fmt.Errorf("LoadScene.%w", err)
	}
	return s, nil
}

// Save implements Source
func (b *Base) Save(ctx context.Context, items []common.Item, params common.ConversionParams, downloadDir, destination string, w writer.Writer, numWorkers int) (common.ConversionResult, error) {
	load := func(ctx context.Context, item common.Item, datasets []string) (*scene.Scene, error) {
		return b.LoadScene(ctx, item, downloadDir, datasets)
	}
	return converter.Convert(ctx, items, load, w, params, destination, numWorkers)
}

// SortItems sorts the items by ascending acquisition date, ties broken by ID,
// so that identical searches return identical orderings.
func SortItems(items []common.Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].ID < items[j].ID
	})
}
