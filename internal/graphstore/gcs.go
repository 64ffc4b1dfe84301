package graphstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSFetcher reads gs://bucket/object documents from Google Cloud Storage.
type GCSFetcher struct {
	client   *storage.Client
	maxBytes int64
}

// NewGCSFetcher creates a client from application default credentials.
func NewGCSFetcher(ctx context.Context, maxBytes int64) (*GCSFetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSFetcher{client: client, maxBytes: maxBytes}, nil
}

// Fetch implements Fetcher.
func (f *GCSFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, object, err := splitBucketPath(location, "gs")
	if err != nil {
		return nil, err
	}

	reader, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := readLimited(reader, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Close releases the underlying client.
func (f *GCSFetcher) Close() error {
	return f.client.Close()
}
