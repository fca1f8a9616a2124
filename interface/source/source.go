// Package source defines the capability set of a data provider (search,
// download, scene loading, conversion) and the registry of implementations.
package source

import (
	"context"
	"fmt"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/writer"
	"github.com/eokit/satctl/scene"
)

// Source is the interface of a satellite data provider
type Source interface {
	// Name of the source
	Name() string

	// Search queries the provider catalog. The spatial and temporal filters are
	// applied server-side where the provider supports it, client-side otherwise.
	// The returned items are sorted by ascending acquisition date (then ID) so
	// that identical searches against an unchanged catalog are reproducible.
	// An empty result is not an error.
	Search(ctx context.Context, params common.SearchParams) ([]common.Item, error)

	// Download fetches the assets of the items into destination with at most
	// numWorkers concurrent fetches (see the downloader package for the
	// partial-failure and idempotence semantics).
	Download(ctx context.Context, items []common.Item, destination string, numWorkers int) (common.DownloadResult, error)

	// LoadScene decodes the requested datasets of an item previously downloaded
	// into downloadDir. Fails with ErrNotDownloaded when the local copy is
	// missing or incomplete.
	LoadScene(ctx context.Context, item common.Item, downloadDir string, datasets []string) (*scene.Scene, error)

	// Save converts the downloaded items: each item's scene is loaded and
	// persisted by w under destination. Items that were never downloaded end up
	// in the failed partition with ErrNotDownloaded.
	Save(ctx context.Context, items []common.Item, params common.ConversionParams, downloadDir, destination string, w writer.Writer, numWorkers int) (common.ConversionResult, error)
}

// ErrUnknownSource is returned when creating a source that was never registered
type ErrUnknownSource struct {
	Name string
}

func (e ErrUnknownSource) Error() string {
	return fmt.Sprintf("unknown source: %s (available: %v)", e.Name, List("*"))
}

// ErrNotDownloaded is returned when loading a scene whose item has no complete local copy
type ErrNotDownloaded struct {
	Item string
}

func (e ErrNotDownloaded) Error() string {
	return fmt.Sprintf("item not downloaded: %s", e.Item)
}

// SearchError is a provider catalog failure (unreachable, auth...).
// It aborts the whole search: search is a single catalog call, not a per-item operation.
type SearchError struct {
	Source string
	Err    error
}

func (e SearchError) Error() string {
	return fmt.Sprintf("search[%s]: %v", e.Source, e.Err)
}

func (e SearchError) Unwrap() error { return e.Err }
