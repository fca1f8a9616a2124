// Package downloader fetches the raw assets of a batch of items under a bounded
// concurrency budget, isolating failures per item.
package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/service"
	"github.com/eokit/satctl/service/log"
)

// ItemMarker is written into an item's directory after all its assets have been
// fetched and the directory has been atomically renamed into place. Its presence
// is the proof of a complete, previously-verified copy.
const ItemMarker = ".item.json"

// FetchFunc fetches all the assets of one item into dir.
// It is provided by the owning Source.
type FetchFunc func(ctx context.Context, item common.Item, dir string) error

// Downloaded returns whether the destination holds a complete copy of the item
func Downloaded(item common.Item, destination string) bool {
	_, err := os.Stat(filepath.Join(item.LocalDir(destination), ItemMarker))
	return err == nil
}

// Download fetches the assets of every item into destination with at most
// numWorkers concurrent fetches. Per-item failures are recorded in the result,
// never aborting sibling fetches. Every input item ends up in exactly one of
// the two partitions. After ctx is cancelled, no new item is dispatched;
// the not-dispatched items are recorded as failed with the context error.
func Download(ctx context.Context, items []common.Item, fetch FetchFunc, destination string, numWorkers int) (common.DownloadResult, error) {
	if err := common.ValidateWorkers(numWorkers); err != nil {
		return common.DownloadResult{}, err
	}
	if fetch == nil {
		return common.DownloadResult{}, common.NewValidationError("missing fetch function")
	}
	if err := os.MkdirAll(destination, 0766); err != nil {
		return common.DownloadResult{}, service.MakeTemporary(fmt.Errorf("Download.MkdirAll: %w", err))
	}

	var mu sync.Mutex
	result := common.DownloadResult{}

	g := errgroup.Group{}
	g.SetLimit(numWorkers)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			result.Failed = append(result.Failed, common.ItemError{Item: item, Err: err})
			mu.Unlock()
			continue
		}
		item := item
		g.Go(func() error {
			if err := downloadOne(ctx, item, fetch, destination); err != nil {
				log.Logger(ctx).Warn("download failed", zap.String("item", item.ID), zap.Error(err))
				mu.Lock()
				result.Failed = append(result.Failed, common.ItemError{Item: item, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Succeeded = append(result.Succeeded, item)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	log.Logger(ctx).Sugar().Infof("downloaded %d/%d items (%d failed)", len(result.Succeeded), len(items), len(result.Failed))
	return result, nil
}

// downloadOne fetches the assets of one item into a staging directory and
// atomically renames it into place. An interrupted fetch never leaves a
// partial directory visible under the final name.
func downloadOne(ctx context.Context, item common.Item, fetch FetchFunc, destination string) error {
	finalDir := item.LocalDir(destination)
	if Downloaded(item, destination) {
		log.Logger(ctx).Sugar().Debugf("%s already downloaded, skipping", item.ID)
		return nil
	}

	staging := filepath.Join(destination, ".staging-"+item.DirName()+"-"+uuid.New().String())
	if err := os.MkdirAll(staging, 0766); err != nil {
		return service.MakeTemporary(fmt.Errorf("downloadOne.MkdirAll: %w", err))
	}
	defer os.RemoveAll(staging)

	if err := fetch(ctx, item, staging); err != nil {
		// fold a staging cleanup failure into the fetch error
		return service.MergeErrors(true, fmt.Errorf("downloadOne[%s].%w", item.ID, err), os.RemoveAll(staging))
	}

	if err := service.ToJSON(item, staging, ItemMarker); err != nil {
		return service.MergeErrors(true, fmt.Errorf("downloadOne[%s].%w", item.ID, err), os.RemoveAll(staging))
	}

	// A leftover directory without marker is an interrupted legacy copy
	if err := os.RemoveAll(finalDir); err != nil {
		return fmt.Errorf("downloadOne[%s].RemoveAll: %w", item.ID, err)
	}
	if err := os.Rename(staging, finalDir); err != nil {
		return fmt.Errorf("downloadOne[%s].Rename: %w", item.ID, err)
	}
	return nil
}
