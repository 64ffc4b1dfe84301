package graphstore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileFetcher reads documents from the local filesystem.
type FileFetcher struct {
	MaxBytes int64
}

// Fetch implements Fetcher for plain paths and file:// URLs.
func (f FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := location
	if SchemeOf(location) == "file" {
		path = strings.TrimPrefix(path, "file://")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	data, err := readLimited(file, f.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
