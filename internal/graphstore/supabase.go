package graphstore

import (
	"context"
	"fmt"

	storage_go "github.com/supabase-community/storage-go"
)

// StorageDownloader is the part of the Supabase Storage client we use.
// *storage_go.Client satisfies it.
type StorageDownloader interface {
	DownloadFile(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) ([]byte, error)
}

// SupabaseFetcher downloads supabase://bucket/path documents from Supabase Storage.
type SupabaseFetcher struct {
	storage  StorageDownloader
	maxBytes int64
}

// NewSupabaseFetcher wraps a storage client, usually supabase.Client.Storage.
func NewSupabaseFetcher(storage StorageDownloader, maxBytes int64) *SupabaseFetcher {
	return &SupabaseFetcher{storage: storage, maxBytes: maxBytes}
}

type downloadResult struct {
	data []byte
	err  error
}

// Fetch implements Fetcher. The storage client takes no context, so the
// download runs in its own goroutine and Fetch returns when ctx is done.
func (f *SupabaseFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, path, err := splitBucketPath(location, "supabase")
	if err != nil {
		return nil, err
	}

	done := make(chan downloadResult, 1)
	go func() {
		data, err := f.storage.DownloadFile(bucket, path)
		done <- downloadResult{data: data, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("download %s from bucket %s: %w", path, bucket, res.err)
		}
		if f.maxBytes > 0 && int64(len(res.data)) > f.maxBytes {
			return nil, fmt.Errorf("document %s exceeds %d bytes", location, f.maxBytes)
		}
		return res.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
