package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the environment variable that points at a config file.
const ConfigPathEnv = "HOOPGRAPH_CONFIG"

// ============================================================================
// CONFIGURATION LOADER
// ============================================================================

// Loader applies defaults, an optional file and environment variables in order.
type Loader struct {
	path    string
	lookup  func(string) (string, bool)
	sources []string
}

// NewLoader creates a loader for the given file path. An empty path falls back
// to HOOPGRAPH_CONFIG; when both are empty only defaults and env are used.
func NewLoader(path string) *Loader {
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	return &Loader{
		path:   path,
		lookup: os.LookupEnv,
	}
}

// WithLookup replaces the environment lookup, for tests.
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	l.sources = append(l.sources[:0], "defaults")

	if l.path != "" {
		if err := l.loadFile(cfg); err != nil {
			return nil, err
		}
		l.sources = append(l.sources, l.path)
	}

	if err := l.loadEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	l.sources = append(l.sources, "environment")
	cfg.LoadedFrom = append([]string(nil), l.sources...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes YAML or JSON; yaml.v3 accepts both and parses durations
// such as "30s".
func (l *Loader) loadFile(cfg *Config) error {
	file, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", l.path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", l.path, err)
	}
	return nil
}

// loadEnvironmentVariables overlays environment variables on the configuration.
func (l *Loader) loadEnvironmentVariables(cfg *Config) error {
	e := envReader{lookup: l.lookup}

	if val, ok := e.str("ENVIRONMENT"); ok {
		cfg.Environment = Environment(strings.ToLower(val))
		cfg.applyEnvironmentDefaults()
	}

	// Server
	e.setString(&cfg.Server.Host, "SERVER_HOST")
	e.setInt(&cfg.Server.Port, "PORT")
	e.setInt(&cfg.Server.Port, "SERVER_PORT")
	e.setDuration(&cfg.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")
	e.setDuration(&cfg.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	// Graph
	e.setString(&cfg.Graph.AdjacencyURL, "GRAPH_ADJACENCY_URL")
	e.setString(&cfg.Graph.NamesURL, "GRAPH_NAMES_URL")
	e.setDuration(&cfg.Graph.LoadTimeout, "GRAPH_LOAD_TIMEOUT")
	e.setBool(&cfg.Graph.Preload, "GRAPH_PRELOAD")
	e.setBool(&cfg.Graph.Symmetrize, "GRAPH_SYMMETRIZE")
	e.setBool(&cfg.Graph.SortNeighbors, "GRAPH_SORT_NEIGHBORS")
	e.setBool(&cfg.Graph.Watch, "GRAPH_WATCH")

	// Search
	e.setInt(&cfg.Search.MaxDegrees, "SEARCH_MAX_DEGREES")
	e.setInt(&cfg.Search.EnrichConcurrency, "SEARCH_ENRICH_CONCURRENCY")
	e.setDuration(&cfg.Search.LookupTimeout, "SEARCH_LOOKUP_TIMEOUT")

	// Metadata
	e.setString(&cfg.Metadata.Provider, "METADATA_PROVIDER")
	e.setString(&cfg.Metadata.File, "METADATA_FILE")
	e.setString(&cfg.Metadata.TableName, "METADATA_TABLE_NAME")
	e.setString(&cfg.Metadata.TableName, "TABLE_NAME")
	e.setString(&cfg.Metadata.BadgerDir, "METADATA_BADGER_DIR")
	e.setBool(&cfg.Metadata.CircuitBreaker.Enabled, "METADATA_CIRCUIT_BREAKER")

	// AWS
	e.setString(&cfg.AWS.Region, "AWS_REGION")
	e.setString(&cfg.AWS.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")

	// Supabase and auth
	e.setString(&cfg.Supabase.URL, "SUPABASE_URL")
	e.setString(&cfg.Supabase.Key, "SUPABASE_SERVICE_KEY")
	e.setString(&cfg.Supabase.Key, "SUPABASE_KEY")
	e.setBool(&cfg.Auth.Enabled, "ENABLE_AUTH")
	e.setString(&cfg.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
	e.setString(&cfg.Auth.JWTIssuer, "AUTH_JWT_ISSUER")
	e.setString(&cfg.Auth.JWTAudience, "AUTH_JWT_AUDIENCE")

	// Edge concerns
	e.setBool(&cfg.RateLimit.Enabled, "ENABLE_RATE_LIMIT")
	e.setInt(&cfg.RateLimit.RequestsPerMinute, "RATE_LIMIT_PER_MINUTE")
	e.setInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST")
	if val, ok := e.str("CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORS.AllowedOrigins = splitList(val)
	}

	// Observability
	e.setBool(&cfg.Metrics.Enabled, "ENABLE_METRICS")
	e.setBool(&cfg.Tracing.Enabled, "ENABLE_TRACING")
	e.setString(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	e.setString(&cfg.Tracing.ServiceName, "OTEL_SERVICE_NAME")
	e.setString(&cfg.Logging.Level, "LOG_LEVEL")
	e.setString(&cfg.Logging.Format, "LOG_FORMAT")

	return e.err()
}

// applyEnvironmentDefaults adjusts defaults that depend on the environment.
func (c *Config) applyEnvironmentDefaults() {
	switch c.Environment {
	case Development:
		c.Logging.Level = "debug"
		c.Logging.Format = "console"
	case Production:
		c.Logging.Level = "info"
		c.Logging.Format = "json"
		c.Graph.Preload = true
	}
}

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

type envReader struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *envReader) str(key string) (string, bool) {
	val, ok := e.lookup(key)
	val = strings.TrimSpace(val)
	return val, ok && val != ""
}

func (e *envReader) setString(dst *string, key string) {
	if val, ok := e.str(key); ok {
		*dst = val
	}
}

func (e *envReader) setInt(dst *int, key string) {
	val, ok := e.str(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not an integer", key, val))
		return
	}
	*dst = n
}

func (e *envReader) setBool(dst *bool, key string) {
	val, ok := e.str(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a boolean", key, val))
		return
	}
	*dst = b
}

func (e *envReader) setDuration(dst *time.Duration, key string) {
	val, ok := e.str(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a duration", key, val))
		return
	}
	*dst = d
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment: %s", strings.Join(e.errs, "; "))
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load loads configuration from HOOPGRAPH_CONFIG and the environment.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// MustLoad loads configuration and panics on error.
// Use this only in main() functions.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
