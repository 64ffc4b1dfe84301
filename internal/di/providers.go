// Package di wires the service's components together.
package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"hoopgraph-backend/internal/config"
	"hoopgraph-backend/internal/connection"
	"hoopgraph-backend/internal/graphstore"
	"hoopgraph-backend/internal/interfaces/http/rest"
	"hoopgraph-backend/internal/interfaces/http/rest/middleware"
	"hoopgraph-backend/internal/metadata"
	"hoopgraph-backend/internal/observability"
	apperrors "hoopgraph-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Tracer       *observability.TracerProvider
	ErrorHandler *apperrors.ErrorHandler
	Graphs       *graphstore.Store
	Watcher      *graphstore.Watcher
	Metadata     metadata.Lookup
	Finder       *connection.Finder
	Router       *rest.Router
}

// Handler builds the chi router for the HTTP and Lambda entry points.
func (c *Container) Handler() *chi.Mux {
	return c.Router.Setup()
}

// ProvideLogger creates the structured logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging, cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideMetrics returns nil when metrics are disabled; every Collector
// method tolerates a nil receiver.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideTracer installs the global tracer provider.
func ProvideTracer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, cfg.Tracing, cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideErrorHandler creates the HTTP error renderer. Raw error text is only
// exposed in development.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger.Named("errors"), cfg.IsDevelopment())
}

// ProvideSupabaseClient returns nil when no Supabase project is configured.
func ProvideSupabaseClient(cfg *config.Config) (*supabase.Client, error) {
	if cfg.Supabase.URL == "" {
		return nil, nil
	}
	client, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return client, nil
}

// ProvideFetcher routes graph document locations to the matching backend.
// Plain paths, file://, http:// and https:// are always available;
// supabase:// needs a Supabase client and gs:// opens a GCS client on demand.
func ProvideFetcher(ctx context.Context, cfg *config.Config, sb *supabase.Client) (graphstore.Fetcher, func(), error) {
	maxBytes := cfg.Graph.MaxDocBytes
	httpFetcher := graphstore.HTTPFetcher{
		Client:   &http.Client{Timeout: cfg.Graph.LoadTimeout},
		MaxBytes: maxBytes,
	}

	router := graphstore.NewRouter().
		Register("file", graphstore.FileFetcher{MaxBytes: maxBytes}).
		Register("http", httpFetcher).
		Register("https", httpFetcher)

	if sb != nil {
		router.Register("supabase", graphstore.NewSupabaseFetcher(sb.Storage, maxBytes))
	}

	cleanup := func() {}
	if usesScheme(cfg, "gs") {
		gcs, err := graphstore.NewGCSFetcher(ctx, maxBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs fetcher: %w", err)
		}
		router.Register("gs", gcs)
		cleanup = func() { _ = gcs.Close() }
	}
	return router, cleanup, nil
}

func usesScheme(cfg *config.Config, scheme string) bool {
	return graphstore.SchemeOf(cfg.Graph.AdjacencyURL) == scheme ||
		graphstore.SchemeOf(cfg.Graph.NamesURL) == scheme
}

// ProvideGraphStore creates the memoised graph store.
func ProvideGraphStore(cfg *config.Config, fetcher graphstore.Fetcher, logger *zap.Logger, metrics *observability.Collector) *graphstore.Store {
	return graphstore.NewStore(fetcher, graphstore.Options{
		AdjacencyURL:  cfg.Graph.AdjacencyURL,
		NamesURL:      cfg.Graph.NamesURL,
		LoadTimeout:   cfg.Graph.LoadTimeout,
		Symmetrize:    cfg.Graph.Symmetrize,
		SortNeighbors: cfg.Graph.SortNeighbors,
	}, logger, metrics)
}

// ProvideGraphWatcher reloads the store when local graph files change. It
// returns nil when watching is off or every source is remote.
func ProvideGraphWatcher(cfg *config.Config, store *graphstore.Store, logger *zap.Logger) (*graphstore.Watcher, func(), error) {
	noop := func() {}
	if !cfg.Graph.Watch {
		return nil, noop, nil
	}

	w, err := graphstore.NewWatcher(store, []string{cfg.Graph.AdjacencyURL, cfg.Graph.NamesURL}, cfg.Graph.WatchDebounce, logger)
	if errors.Is(err, graphstore.ErrNothingToWatch) {
		logger.Warn("graph.watch is set but no graph source is a local file")
		return nil, noop, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return w, func() { _ = w.Close() }, nil
}

// ProvideMetadataLookup selects the edge metadata backend. Remote backends
// are wrapped in a circuit breaker when enabled.
func ProvideMetadataLookup(ctx context.Context, cfg *config.Config, sb *supabase.Client, logger *zap.Logger) (metadata.Lookup, func(), error) {
	var (
		lookup  metadata.Lookup
		cleanup = func() {}
		remote  bool
	)

	switch cfg.Metadata.Provider {
	case "", "none":
		return metadata.None{}, cleanup, nil

	case "memory":
		records, err := metadata.ReadRecordsFile(cfg.Metadata.File)
		if err != nil {
			return nil, nil, err
		}
		lookup = metadata.NewMemoryStore(records)
		logger.Info("Loaded edge metadata into memory", zap.Int("records", len(records)))

	case "badger":
		store, err := metadata.OpenBadgerStore(metadata.BadgerOptions{Dir: cfg.Metadata.BadgerDir}, logger)
		if err != nil {
			return nil, nil, err
		}
		lookup = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("Closing badger failed", zap.Error(err))
			}
		}

	case "dynamodb":
		client, err := metadata.NewDynamoClient(ctx, cfg.AWS.Region, cfg.AWS.DynamoDBEndpoint)
		if err != nil {
			return nil, nil, err
		}
		lookup = metadata.NewDynamoStore(client, cfg.Metadata.TableName, logger)
		remote = true

	case "supabase":
		if sb == nil {
			return nil, nil, fmt.Errorf("metadata provider supabase requires supabase.url")
		}
		lookup = metadata.NewSupabaseStore(sb, cfg.Metadata.TableName)
		remote = true

	default:
		return nil, nil, fmt.Errorf("unknown metadata provider %q", cfg.Metadata.Provider)
	}

	if remote && cfg.Metadata.CircuitBreaker.Enabled {
		cb := cfg.Metadata.CircuitBreaker
		lookup = metadata.NewBreakerLookup(lookup, metadata.BreakerConfig{
			Name:             "metadata-" + cfg.Metadata.Provider,
			FailureThreshold: cb.FailureThreshold,
			MinRequests:      cb.MinimumRequests,
			Interval:         cb.WindowSize,
			Timeout:          cb.OpenDuration,
			MaxRequests:      cb.HalfOpenRequests,
		}, logger)
	}
	return lookup, cleanup, nil
}

// ProvideFinder creates the connection finder.
func ProvideFinder(cfg *config.Config, graphs *graphstore.Store, lookup metadata.Lookup, logger *zap.Logger, metrics *observability.Collector) *connection.Finder {
	return connection.NewFinder(graphs, lookup, connection.Options{
		MaxDegrees:        cfg.Search.MaxDegrees,
		EnrichConcurrency: cfg.Search.EnrichConcurrency,
		LookupTimeout:     cfg.Search.LookupTimeout,
	}, logger, metrics)
}

// ProvideTokenVerifier prefers local JWT verification when a secret is set
// and falls back to the Supabase Auth API. It returns a nil interface when
// auth is off or neither is available; the auth middleware then rejects
// every request.
func ProvideTokenVerifier(cfg *config.Config, sb *supabase.Client) middleware.TokenVerifier {
	switch {
	case !cfg.Auth.Enabled:
		return nil
	case cfg.Auth.JWTSecret != "":
		return middleware.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	case sb != nil:
		return middleware.NewSupabaseVerifier(sb)
	default:
		return nil
	}
}

// ProvideRouter creates the HTTP router.
func ProvideRouter(
	cfg *config.Config,
	finder *connection.Finder,
	graphs *graphstore.Store,
	verifier middleware.TokenVerifier,
	metrics *observability.Collector,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(cfg, finder, graphs, verifier, metrics, errorHandler, logger)
}
