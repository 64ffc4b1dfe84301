// Package metadata provides point lookups of teammate edge metadata keyed by
// the unordered player pair.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"hoopgraph-backend/internal/domain"
)

// Lookup fetches metadata for one edge. A missing record is (zero, false, nil);
// an error means the backend could not answer.
type Lookup interface {
	Lookup(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error)
}

// Importer bulk loads records into a writable store.
type Importer interface {
	Import(ctx context.Context, records []domain.PairRecord) (int, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
	return f(ctx, key)
}

// None never finds metadata; every edge renders with placeholders.
type None struct{}

// Lookup implements Lookup.
func (None) Lookup(context.Context, domain.PairKey) (domain.EdgeMetadata, bool, error) {
	return domain.EdgeMetadata{}, false, nil
}

// DecodeRecords parses a JSON array of pair records and normalises each pair
// so PlayerIDLow <= PlayerIDHigh.
func DecodeRecords(r io.Reader) ([]domain.PairRecord, error) {
	var records []domain.PairRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode metadata records: %w", err)
	}
	for i := range records {
		key := records[i].Key()
		if key.Low == key.High {
			return nil, fmt.Errorf("record %d pairs player %d with itself", i, key.Low)
		}
		records[i].PlayerIDLow = int64(key.Low)
		records[i].PlayerIDHigh = int64(key.High)
	}
	return records, nil
}

// ReadRecordsFile reads a JSON array of pair records from disk.
func ReadRecordsFile(path string) ([]domain.PairRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer file.Close()
	return DecodeRecords(file)
}
