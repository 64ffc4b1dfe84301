package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"hoopgraph-backend/internal/domain"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerStore keeps edge metadata in an embedded BadgerDB, so a single binary
// can serve metadata without a network dependency.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// BadgerOptions configures OpenBadgerStore.
type BadgerOptions struct {
	// Dir is required unless InMemory is set.
	Dir      string
	InMemory bool
	ReadOnly bool
}

// OpenBadgerStore opens (or creates) the database.
func OpenBadgerStore(opts BadgerOptions, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger directory is required for a persistent store")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if !opts.ReadOnly {
			if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
				return nil, fmt.Errorf("create badger directory %s: %w", opts.Dir, err)
			}
		}
		bopts = badger.DefaultOptions(opts.Dir).WithReadOnly(opts.ReadOnly)
	}
	bopts = bopts.
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db, logger: logger.Named("metadata.badger")}, nil
}

func badgerKey(key domain.PairKey) []byte {
	key = domain.NewPairKey(key.Low, key.High)
	return []byte(fmt.Sprintf("pair:%d:%d", key.Low, key.High))
}

// Lookup implements Lookup.
func (s *BadgerStore) Lookup(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.EdgeMetadata{}, false, err
	}

	var record domain.PairRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.EdgeMetadata{}, false, nil
	}
	if err != nil {
		return domain.EdgeMetadata{}, false, fmt.Errorf("read pair %s: %w", key, err)
	}
	return record.Metadata(), true, nil
}

// Import implements Importer using a write batch.
func (s *BadgerStore) Import(ctx context.Context, records []domain.PairRecord) (int, error) {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i, r := range records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		key := r.Key()
		r.PlayerIDLow, r.PlayerIDHigh = int64(key.Low), int64(key.High)
		val, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("marshal pair %s: %w", key, err)
		}
		if err := wb.Set(badgerKey(key), val); err != nil {
			return 0, fmt.Errorf("stage pair %s: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush badger batch: %w", err)
	}
	s.logger.Info("Imported edge metadata", zap.Int("records", len(records)))
	return len(records), nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts zap to badger's Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}
