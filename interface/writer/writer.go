// Package writer defines the interface of an output-format writer and the
// registry mapping writer names to factories.
package writer

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/scene"
)

// Writer persists a Scene to one output artifact in a specific raster format
type Writer interface {
	// Name of the writer
	Name() string
	// Extension of the produced artifacts (e.g. "tif")
	Extension() string
	// Save extracts the datasets requested by params from the scene, reprojects
	// them to the target grid and writes one artifact under destination, named
	// deterministically from the item identifier. Returns the written path.
	Save(ctx context.Context, s *scene.Scene, item common.Item, params common.ConversionParams, destination string) (string, error)
}

// Factory creates a Writer from its writer-specific configuration
type Factory func(config map[string]string) (Writer, error)

// ErrUnknownWriter is returned when creating a writer that was never registered
type ErrUnknownWriter struct {
	Name string
}

func (e ErrUnknownWriter) Error() string {
	return fmt.Sprintf("unknown writer: %s (available: %v)", e.Name, List("*"))
}

// ErrDatasetNotFound is returned when a requested dataset is absent from the scene
type ErrDatasetNotFound struct {
	Dataset string
}

func (e ErrDatasetNotFound) Error() string {
	return fmt.Sprintf("dataset not found in scene: %s", e.Dataset)
}

var (
	mu        sync.Mutex
	factories = map[string]Factory{}
)

// Register makes a writer available under the given name (last-write-wins)
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New instantiates the named writer
func New(name string, config map[string]string) (Writer, error) {
	mu.Lock()
	factory, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, ErrUnknownWriter{Name: name}
	}
	return factory(config)
}

// List returns the sorted registered names matching the glob pattern
func List(pattern string) []string {
	mu.Lock()
	defer mu.Unlock()
	var names []string
	for name := range factories {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
