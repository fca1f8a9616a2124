package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/eokit/satctl/service"
)

// S3Fetcher downloads assets from Amazon S3 buckets.
// The USGS Landsat bucket is requester-pays: the account of the provided
// credentials is billed for the transfer.
type S3Fetcher struct {
	downloader *manager.Downloader
}

// NewS3Fetcher creates an S3Fetcher on the given region. With empty
// accessKeyID, the default credential chain applies (env, profile, role).
func NewS3Fetcher(ctx context.Context, region, accessKeyID, secretAccessKey string) (*S3Fetcher, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewS3Fetcher.LoadDefaultConfig: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Fetcher{
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.PartSize = 10 * 1024 * 1024 // 10MB per part
		}),
	}, nil
}

// Name implements Fetcher
func (f *S3Fetcher) Name() string {
	return "s3"
}

// Schemes implements Fetcher
func (f *S3Fetcher) Schemes() []string {
	return []string{"s3"}
}

// Fetch implements Fetcher
func (f *S3Fetcher) Fetch(ctx context.Context, href, localPath string) error {
	bucket, key, err := parseS3URI(href)
	if err != nil {
		return fmt.Errorf("S3Fetcher.%w", err)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0766); err != nil {
		return fmt.Errorf("S3Fetcher.MkdirAll: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*")
	if err != nil {
		return fmt.Errorf("S3Fetcher.CreateTemp: %w", err)
	}
	defer os.Remove(tmp.Name())
	_, err = f.downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(key),
		RequestPayer: "requester",
	})
	if err != nil {
		tmp.Close()
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return ErrProductNotFound{Product: href}
		}
		return service.MakeTemporary(fmt.Errorf("S3Fetcher[%s]: %w", href, err))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("S3Fetcher.Close: %w", err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("S3Fetcher.Rename: %w", err)
	}
	return nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parseS3URI: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("parseS3URI: not an s3 uri: %s", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
