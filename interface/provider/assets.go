package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eokit/satctl/common"
)

// FetchAssets downloads every asset of the item into dir through f, in a
// stable order. Archives are extracted in place and removed.
func FetchAssets(ctx context.Context, f Fetcher, item common.Item, dir string) error {
	keys := make([]string, 0, len(item.Assets))
	for key := range item.Assets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		asset := item.Assets[key]
		localPath := filepath.Join(dir, assetFileName(item, key, asset))
		if err := f.Fetch(ctx, asset.Href, localPath); err != nil {
			return fmt.Errorf("FetchAssets[%s/%s].%w", item.ID, key, err)
		}
		if isArchive(localPath) {
			if err := Unarchive(localPath, dir); err != nil {
				return fmt.Errorf("FetchAssets[%s/%s].Unarchive: %w", item.ID, key, err)
			}
			os.Remove(localPath)
		}
	}
	return nil
}

func assetFileName(item common.Item, key string, asset common.Asset) string {
	name := filepath.Base(strings.TrimRight(asset.Href, "/"))
	// The OData zipper ends with "$value": fall back to a name derived from the item
	if name == "." || name == "" || strings.ContainsAny(name, "$()") {
		name = item.ID + "_" + key
	}
	if asset.MediaType == "application/zip" && !isArchive(name) {
		name += ".zip"
	}
	return name
}

func isArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".tar", ".gz", ".tgz":
		return true
	}
	return false
}
