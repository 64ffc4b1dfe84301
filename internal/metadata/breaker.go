package metadata

import (
	"context"
	"errors"
	"time"

	"hoopgraph-backend/internal/domain"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds the circuit breaker thresholds.
type BreakerConfig struct {
	Name             string
	FailureThreshold float64
	MinRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MaxRequests      uint32
}

type breakerResult struct {
	metadata domain.EdgeMetadata
	found    bool
}

// BreakerLookup short-circuits a failing backend. Misses count as successes;
// only backend errors trip the breaker. While open, lookups fail fast with
// gobreaker.ErrOpenState and the caller falls back to placeholders.
type BreakerLookup struct {
	next Lookup
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerLookup wraps next.
func NewBreakerLookup(next Lookup, cfg BreakerConfig, logger *zap.Logger) *BreakerLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the backend's fault
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerLookup{next: next, cb: cb}
}

// Lookup implements Lookup.
func (b *BreakerLookup) Lookup(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		m, found, err := b.next.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		return breakerResult{metadata: m, found: found}, nil
	})
	if err != nil {
		return domain.EdgeMetadata{}, false, err
	}
	r := res.(breakerResult)
	return r.metadata, r.found, nil
}

// State reports the breaker state for diagnostics.
func (b *BreakerLookup) State() gobreaker.State {
	return b.cb.State()
}
