package graphstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Fetcher retrieves a raw document by location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, location string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// Router dispatches a location to the fetcher registered for its scheme.
// Locations without a scheme are treated as local files.
type Router struct {
	mu      sync.RWMutex
	schemes map[string]Fetcher
}

// NewRouter creates a router with no schemes registered.
func NewRouter() *Router {
	return &Router{schemes: make(map[string]Fetcher)}
}

// Register binds a scheme such as "https" or "gs" to a fetcher.
func (r *Router) Register(scheme string, f Fetcher) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemes[strings.ToLower(scheme)] = f
	return r
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, location string) ([]byte, error) {
	scheme := SchemeOf(location)

	r.mu.RLock()
	f, ok := r.schemes[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no fetcher registered for scheme %q (location %s)", scheme, location)
	}
	return f.Fetch(ctx, location)
}

// SchemeOf returns the lower-cased scheme of location, "file" when absent.
func SchemeOf(location string) string {
	if i := strings.Index(location, "://"); i > 0 {
		return strings.ToLower(location[:i])
	}
	return "file"
}

// splitBucketPath parses scheme://bucket/path/to/object.
func splitBucketPath(location, scheme string) (bucket, object string, err error) {
	prefix := scheme + "://"
	if !strings.HasPrefix(strings.ToLower(location), prefix) {
		return "", "", fmt.Errorf("location %s is not a %s URL", location, scheme)
	}
	rest := location[len(prefix):]
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("location %s must look like %sbucket/object", location, prefix)
	}
	return bucket, object, nil
}

// readLimited reads at most limit bytes and fails when the body is larger.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("document exceeds %d bytes", limit)
	}
	return data, nil
}
