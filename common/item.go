package common

import (
	"fmt"
	"path/filepath"
	"time"
)

// Asset is a named remote file belonging to an Item (a band, an archive, a metadata file).
type Asset struct {
	Href      string `json:"href"`
	MediaType string `json:"media_type,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// Item is one discoverable product unit returned by a Source catalog search.
// An Item is immutable once returned from Search: the downloader and the converter
// only read it and record per-stage outcomes in their own result structures.
type Item struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Date        time.Time         `json:"date"`
	GeometryWKT string            `json:"geometry_wkt,omitempty"` // footprint, WGS84
	Tags        map[string]string `json:"tags,omitempty"`         // provider metadata, opaque to the pipeline
	Assets      map[string]Asset  `json:"assets"`
}

// DirName returns the name of the directory holding the item's downloaded assets.
func (i Item) DirName() string {
	return i.ID
}

// LocalDir returns the directory of the item's assets under the download destination.
func (i Item) LocalDir(destination string) string {
	return filepath.Join(destination, i.DirName())
}

// OutputName returns the deterministic name of the converted artifact, so that
// repeated conversions overwrite rather than accumulate.
func (i Item) OutputName(ext string) string {
	return fmt.Sprintf("%s.%s", i.ID, ext)
}

func (i Item) String() string {
	return fmt.Sprintf("%s[%s]", i.Source, i.ID)
}
