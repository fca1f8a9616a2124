package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/eokit/satctl/service"
)

// GSFetcher downloads assets from Google Cloud Storage buckets using the
// ambient credentials (GOOGLE_APPLICATION_CREDENTIALS or metadata server).
// The client is created on first use, so the fetcher can sit in a MultiFetcher
// without credentials as long as no gs asset is actually fetched.
type GSFetcher struct {
	mu     sync.Mutex
	client *storage.Client
}

// NewGSFetcher creates a GSFetcher
func NewGSFetcher() *GSFetcher {
	return &GSFetcher{}
}

// Name implements Fetcher
func (f *GSFetcher) Name() string {
	return "gs"
}

// Schemes implements Fetcher
func (f *GSFetcher) Schemes() []string {
	return []string{"gs"}
}

func (f *GSFetcher) storageClient(ctx context.Context) (*storage.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("NewClient: %w", err)
		}
		f.client = client
	}
	return f.client, nil
}

// Fetch implements Fetcher
func (f *GSFetcher) Fetch(ctx context.Context, href, localPath string) error {
	bucket, object, err := parseGSURI(href)
	if err != nil {
		return fmt.Errorf("GSFetcher.%w", err)
	}
	client, err := f.storageClient(ctx)
	if err != nil {
		return fmt.Errorf("GSFetcher.%w", err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return ErrProductNotFound{Product: href}
		}
		return service.MakeTemporary(fmt.Errorf("GSFetcher[%s]: %w", href, err))
	}
	defer r.Close()
	if err := writeFileAtomic(r, localPath); err != nil {
		return fmt.Errorf("GSFetcher.%w", err)
	}
	return nil
}

func parseGSURI(uri string) (bucket, object string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parseGSURI: %w", err)
	}
	if u.Scheme != "gs" || u.Host == "" {
		return "", "", fmt.Errorf("parseGSURI: not a gs uri: %s", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
