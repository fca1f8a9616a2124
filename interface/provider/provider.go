// Package provider holds the asset fetch primitives shared by the sources:
// one Fetcher per transfer protocol, routed by the asset URI scheme.
package provider

import (
	"context"
	"fmt"
	neturl "net/url"
)

// Fetcher downloads one remote asset to a local file
type Fetcher interface {
	// Fetch downloads the asset at href into localPath
	Fetch(ctx context.Context, href, localPath string) error

	// Schemes returns the URI schemes handled by this fetcher
	Schemes() []string

	// Name of the fetcher
	Name() string
}

// ErrProductNotFound is an error returned when a product is not found or available
type ErrProductNotFound struct {
	Product string
}

func (e ErrProductNotFound) Error() string {
	return fmt.Sprintf("Product not found or unavailable: %s", e.Product)
}

// MultiFetcher routes each asset to the fetcher handling its URI scheme
type MultiFetcher struct {
	fetchers map[string]Fetcher
}

// NewMultiFetcher creates a MultiFetcher from the given fetchers
// (last one wins on duplicate schemes)
func NewMultiFetcher(fetchers ...Fetcher) *MultiFetcher {
	m := &MultiFetcher{fetchers: map[string]Fetcher{}}
	for _, f := range fetchers {
		for _, scheme := range f.Schemes() {
			m.fetchers[scheme] = f
		}
	}
	return m
}

// Fetch implements Fetcher
func (m *MultiFetcher) Fetch(ctx context.Context, href, localPath string) error {
	u, err := neturl.Parse(href)
	if err != nil {
		return fmt.Errorf("MultiFetcher.Parse: %w", err)
	}
	f, ok := m.fetchers[u.Scheme]
	if !ok {
		return fmt.Errorf("MultiFetcher: no fetcher for scheme %q (%s)", u.Scheme, href)
	}
	return f.Fetch(ctx, href, localPath)
}

// Schemes implements Fetcher
func (m *MultiFetcher) Schemes() []string {
	var schemes []string
	for scheme := range m.fetchers {
		schemes = append(schemes, scheme)
	}
	return schemes
}

// Name implements Fetcher
func (m *MultiFetcher) Name() string {
	return "multi"
}
