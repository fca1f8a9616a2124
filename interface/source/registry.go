package source

import (
	"path"
	"sort"
	"sync"
)

// Factory creates a Source from its source-specific configuration
// (credentials, endpoints...). Interpretation of the keys belongs to the
// implementation, which fails fast on a missing required key.
type Factory func(config map[string]string) (Source, error)

var (
	mu        sync.Mutex
	factories = map[string]Factory{}
)

// Register makes a source available under the given name.
// Registration is explicit, done at startup by the command wiring the
// implementations it supports. Last-write-wins on duplicate names.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New instantiates the named source
func New(name string, config map[string]string) (Source, error) {
	mu.Lock()
	factory, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, ErrUnknownSource{Name: name}
	}
	return factory(config)
}

// List returns the sorted registered names matching the glob pattern
// (e.g. "s2*" matches all Sentinel-2 variants)
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
