// Package converter orchestrates the conversion of downloaded items:
// each item's scene is loaded and handed to a writer under a bounded worker pool.
package converter

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/writer"
	"github.com/eokit/satctl/scene"
	"github.com/eokit/satctl/service"
	"github.com/eokit/satctl/service/log"
)

// LoadFunc loads the decoded scene of a downloaded item.
// It is provided by the owning Source and fails for items never downloaded.
type LoadFunc func(ctx context.Context, item common.Item, datasets []string) (*scene.Scene, error)

// Convert loads each item's scene and saves it with the writer, with at most
// numWorkers concurrent conversions. Per-item failures (decode or write) are
// isolated into the result; every input item ends up in exactly one partition.
// The pipeline never retries: re-invoke with the failed subset if needed.
func Convert(ctx context.Context, items []common.Item, load LoadFunc, w writer.Writer, params common.ConversionParams, destination string, numWorkers int) (common.ConversionResult, error) {
	if err := params.Validate(); err != nil {
		return common.ConversionResult{}, err
	}
	if err := common.ValidateWorkers(numWorkers); err != nil {
		return common.ConversionResult{}, err
	}
	if load == nil || w == nil {
		return common.ConversionResult{}, common.NewValidationError("missing loader or writer")
	}
	if err := os.MkdirAll(destination, 0766); err != nil {
		return common.ConversionResult{}, service.MakeTemporary(fmt.Errorf("Convert.MkdirAll: %w", err))
	}

	var mu sync.Mutex
	result := common.ConversionResult{}

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
			path, err := convertOne(ctx, item, load, w, params, destination)
			if err != nil {
				log.Logger(ctx).Warn("conversion failed", zap.String("item", item.ID), zap.Error(err))
				mu.Lock()
				result.Failed = append(result.Failed, common.ItemError{Item: item, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Written = append(result.Written, path)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	log.Logger(ctx).Sugar().Infof("converted %d/%d items (%d failed)", len(result.Written), len(items), len(result.Failed))
	return result, nil
}

func convertOne(ctx context.Context, item common.Item, load LoadFunc, w writer.Writer, params common.ConversionParams, destination string) (string, error) {
	log.Logger(ctx).Sugar().Debugf("converting %s", item.ID)
	s, err := load(ctx, item, params.Datasets)
	if err != nil {
		return "", fmt.Errorf("convertOne[%s].%w", item.ID, err)
	}
	path, err := w.Save(ctx, s, item, params, destination)
	if err != nil {
		return "", fmt.Errorf("convertOne[%s].%w", item.ID, err)
	}
	return path, nil
}
