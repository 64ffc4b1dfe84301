// Package config defines the service configuration and its validation.
//
// Configuration is layered, from lowest to highest priority:
//  1. Defaults in code (Default)
//  2. An optional YAML or JSON file (HOOPGRAPH_CONFIG or --config)
//  3. Environment variables
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the root configuration for every entry point.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment" validate:"required,oneof=development staging production"`
	Server      Server      `yaml:"server" json:"server"`
	Graph       Graph       `yaml:"graph" json:"graph"`
	Search      Search      `yaml:"search" json:"search"`
	Metadata    Metadata    `yaml:"metadata" json:"metadata"`
	AWS         AWS         `yaml:"aws" json:"aws"`
	Supabase    Supabase    `yaml:"supabase" json:"supabase"`
	Auth        Auth        `yaml:"auth" json:"auth"`
	RateLimit   RateLimit   `yaml:"rate_limit" json:"rate_limit"`
	CORS        CORS        `yaml:"cors" json:"cors"`
	Metrics     Metrics     `yaml:"metrics" json:"metrics"`
	Tracing     Tracing     `yaml:"tracing" json:"tracing"`
	Logging     Logging     `yaml:"logging" json:"logging"`

	// LoadedFrom lists the sources applied, for startup logs.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Server configures the HTTP listener.
type Server struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gt=0"`
	MaxRequestSize  int64         `yaml:"max_request_size" json:"max_request_size" validate:"gt=0"`
}

// Graph locates the two graph documents and controls load-time normalisation.
type Graph struct {
	// AdjacencyURL and NamesURL accept a file path, file://, http(s)://,
	// supabase://bucket/path or gs://bucket/object.
	AdjacencyURL  string        `yaml:"adjacency_url" json:"adjacency_url" validate:"required"`
	NamesURL      string        `yaml:"names_url" json:"names_url" validate:"required"`
	LoadTimeout   time.Duration `yaml:"load_timeout" json:"load_timeout" validate:"gt=0"`
	Preload       bool          `yaml:"preload" json:"preload"`
	Symmetrize    bool          `yaml:"symmetrize" json:"symmetrize"`
	SortNeighbors bool          `yaml:"sort_neighbors" json:"sort_neighbors"`
	// Watch reloads the graph when a local source file changes.
	Watch         bool          `yaml:"watch" json:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce" json:"watch_debounce" validate:"gt=0"`
	MaxDocBytes   int64         `yaml:"max_doc_bytes" json:"max_doc_bytes" validate:"gt=0"`
}

// Search bounds the connection finder.
type Search struct {
	MaxDegrees        int           `yaml:"max_degrees" json:"max_degrees" validate:"min=1,max=6"`
	EnrichConcurrency int           `yaml:"enrich_concurrency" json:"enrich_concurrency" validate:"min=1,max=64"`
	LookupTimeout     time.Duration `yaml:"lookup_timeout" json:"lookup_timeout" validate:"gt=0"`
	PlayerSearchLimit int           `yaml:"player_search_limit" json:"player_search_limit" validate:"min=1,max=100"`
}

// Metadata selects the edge metadata source.
type Metadata struct {
	Provider       string         `yaml:"provider" json:"provider" validate:"oneof=none memory dynamodb supabase badger"`
	File           string         `yaml:"file" json:"file"`
	TableName      string         `yaml:"table_name" json:"table_name"`
	BadgerDir      string         `yaml:"badger_dir" json:"badger_dir"`
	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker" json:"circuit_breaker"`
}

// CircuitBreaker configures the breaker around metadata lookups.
type CircuitBreaker struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold float64       `yaml:"failure_threshold" json:"failure_threshold" validate:"gt=0,lte=1"`
	MinimumRequests  uint32        `yaml:"minimum_requests" json:"minimum_requests" validate:"gt=0"`
	WindowSize       time.Duration `yaml:"window_size" json:"window_size" validate:"gt=0"`
	OpenDuration     time.Duration `yaml:"open_duration" json:"open_duration" validate:"gt=0"`
	HalfOpenRequests uint32        `yaml:"half_open_requests" json:"half_open_requests" validate:"gt=0"`
}

// AWS holds the region and an optional endpoint override for local DynamoDB.
type AWS struct {
	Region           string `yaml:"region" json:"region"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint" json:"dynamodb_endpoint"`
}

// Supabase holds project credentials used by storage, PostgREST and auth.
type Supabase struct {
	URL string `yaml:"url" json:"url"`
	Key string `yaml:"key" json:"-"`
}

// Auth toggles bearer token verification on the API routes. With a JWT
// secret tokens are verified locally; otherwise the Supabase Auth API is
// asked.
type Auth struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	JWTSecret   string `yaml:"jwt_secret" json:"-"`
	JWTIssuer   string `yaml:"jwt_issuer" json:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience" json:"jwt_audience"`
}

// RateLimit configures the per-client token bucket.
type RateLimit struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gt=0"`
	Burst             int           `yaml:"burst" json:"burst" validate:"gt=0"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval" validate:"gt=0"`
}

// CORS configures cross-origin access.
type CORS struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age" validate:"gte=0"`
}

// Metrics toggles the prometheus collector.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
	Path      string `yaml:"path" json:"path" validate:"required,startswith=/"`
}

// Tracing configures the OTLP exporter.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name" validate:"required"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate" validate:"gte=0,lte=1"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=json console"`
}

// Default returns a configuration that runs locally against files in ./data.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  20 * time.Second,
			MaxRequestSize:  1 << 20,
		},
		Graph: Graph{
			AdjacencyURL:  "data/adjacency_list.json",
			NamesURL:      "data/player_names.json",
			LoadTimeout:   30 * time.Second,
			WatchDebounce: 500 * time.Millisecond,
			MaxDocBytes:   64 << 20,
		},
		Search: Search{
			MaxDegrees:        6,
			EnrichConcurrency: 6,
			LookupTimeout:     2 * time.Second,
			PlayerSearchLimit: 20,
		},
		Metadata: Metadata{
			Provider:  "none",
			TableName: "teammate_pairs",
			BadgerDir: "data/metadata.badger",
			CircuitBreaker: CircuitBreaker{
				Enabled:          true,
				FailureThreshold: 0.5,
				MinimumRequests:  10,
				WindowSize:       10 * time.Second,
				OpenDuration:     30 * time.Second,
				HalfOpenRequests: 3,
			},
		},
		AWS: AWS{
			Region: "us-east-1",
		},
		Auth: Auth{
			JWTAudience: "authenticated",
		},
		RateLimit: RateLimit{
			Enabled:           true,
			RequestsPerMinute: 120,
			Burst:             20,
			CleanupInterval:   time.Minute,
		},
		CORS: CORS{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "hoopgraph",
			Path:      "/metrics",
		},
		Tracing: Tracing{
			ServiceName: "hoopgraph-backend",
			Endpoint:    "localhost:4317",
			SampleRate:  0.1,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	var errs []string
	switch c.Metadata.Provider {
	case "memory":
		if c.Metadata.File == "" {
			errs = append(errs, "metadata.file is required for the memory provider")
		}
	case "dynamodb":
		if c.Metadata.TableName == "" {
			errs = append(errs, "metadata.table_name is required for the dynamodb provider")
		}
		if c.AWS.Region == "" {
			errs = append(errs, "aws.region is required for the dynamodb provider")
		}
	case "supabase":
		if c.Metadata.TableName == "" {
			errs = append(errs, "metadata.table_name is required for the supabase provider")
		}
	case "badger":
		if c.Metadata.BadgerDir == "" {
			errs = append(errs, "metadata.badger_dir is required for the badger provider")
		}
	}

	usesSupabase := c.Metadata.Provider == "supabase" ||
		(c.Auth.Enabled && c.Auth.JWTSecret == "") ||
		strings.HasPrefix(c.Graph.AdjacencyURL, "supabase://") ||
		strings.HasPrefix(c.Graph.NamesURL, "supabase://")
	if usesSupabase && (c.Supabase.URL == "" || c.Supabase.Key == "") {
		errs = append(errs, "supabase.url and supabase.key are required when a supabase feature is used")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, "tracing.endpoint is required when tracing is enabled")
	}

	if c.IsProduction() && c.CORS.Enabled {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				errs = append(errs, "cors.allowed_origins must not contain * in production")
				break
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func formatValidationErrors(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
