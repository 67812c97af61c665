package engine

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/adfharrison1/go-docdb/pkg/cache"
	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
)

// Config is the recognised configuration surface of a collection
type Config struct {
	CacheSize        int                         `toml:"cache_size"`
	EnableQueryCache bool                        `toml:"enable_query_cache"`
	IndexHints       map[string]domain.IndexKind `toml:"index_hints"`
	MemoryLimit      int64                       `toml:"memory_limit"`
	Debug            bool                        `toml:"debug"`
	Schemas          map[string]string           `toml:"schemas"` // collection name -> JSON schema
}

// DefaultConfig returns the defaults: a 100 entry query cache, no indexes,
// no memory limit.
func DefaultConfig() Config {
	return Config{
		CacheSize:        cache.DefaultCapacity,
		EnableQueryCache: true,
	}
}

// LoadConfig reads a TOML file over the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configured values
func (c Config) Validate() error {
	if c.CacheSize < 0 {
		return domain.Configurationf("cache_size cannot be negative")
	}
	if c.MemoryLimit < 0 {
		return domain.Configurationf("memory_limit cannot be negative")
	}
	for field, kind := range c.IndexHints {
		if kind != "" && !kind.Valid() {
			return domain.Configurationf("unknown index kind %q for field %s", kind, field)
		}
	}
	return nil
}

// Options converts the configuration into collection options
func (c Config) Options() []Option {
	opts := []Option{
		WithCacheSize(c.CacheSize),
		WithQueryCache(c.EnableQueryCache),
		WithMemoryLimit(c.MemoryLimit),
		WithDebug(c.Debug),
	}
	if len(c.IndexHints) > 0 {
		opts = append(opts, WithIndexHints(c.IndexHints))
	}
	return opts
}

type settings struct {
	name        string
	cacheSize   int
	queryCache  bool
	indexHints  map[string]domain.IndexKind
	memoryLimit int64
	debug       bool
	recorder    *metrics.Recorder
	schema      string
}

func defaultSettings() settings {
	return settings{
		name:       "default",
		cacheSize:  cache.DefaultCapacity,
		queryCache: true,
	}
}

// Option configures a Collection
type Option func(*settings)

// WithName names the collection in logs, metrics and stats
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithCacheSize sets the result cache capacity
func WithCacheSize(n int) Option {
	return func(s *settings) {
		s.cacheSize = n
	}
}

// WithQueryCache enables or disables caching of query results
func WithQueryCache(enabled bool) Option {
	return func(s *settings) {
		s.queryCache = enabled
	}
}

// WithIndexHints creates the given indexes when the collection is opened
func WithIndexHints(hints map[string]domain.IndexKind) Option {
	return func(s *settings) {
		if s.indexHints == nil {
			s.indexHints = make(map[string]domain.IndexKind, len(hints))
		}
		for field, kind := range hints {
			s.indexHints[field] = kind
		}
	}
}

// WithMemoryLimit bounds the core's memory when it supports a limit
func WithMemoryLimit(bytes int64) Option {
	return func(s *settings) {
		s.memoryLimit = bytes
	}
}

// WithDebug enables DEBUG logging of query paths, cache events and invalidations
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.debug = debug
	}
}

// WithMetrics records operations on the given recorder
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *settings) {
		s.recorder = recorder
	}
}

// WithSchema validates inserted and updated documents against a JSON schema
func WithSchema(schema string) Option {
	return func(s *settings) {
		s.schema = schema
	}
}

func sortedHints(hints map[string]domain.IndexKind) []string {
	fields := make([]string, 0, len(hints))
	for field := range hints {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
