package engine

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
	"github.com/adfharrison1/go-docdb/pkg/storage"
)

var _ domain.DatabaseEngine = (*Database)(nil)

// Database opens collections on demand from a store, all sharing one
// configuration and metrics recorder.
type Database struct {
	mu          sync.Mutex
	store       storage.Store
	cfg         Config
	recorder    *metrics.Recorder
	collections map[string]*Collection
	closed      bool
}

// NewDatabase creates a database over store
func NewDatabase(store storage.Store, cfg Config, recorder *metrics.Recorder) *Database {
	return &Database{
		store:       store,
		cfg:         cfg,
		recorder:    recorder,
		collections: make(map[string]*Collection),
	}
}

// Collection returns the named collection, opening it on first use
func (d *Database) Collection(name string) (domain.CollectionEngine, error) {
	return d.Open(name)
}

// Open returns the named collection as its concrete type
func (d *Database) Open(name string) (*Collection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("database: %w", domain.ErrClosed)
	}
	if coll, exists := d.collections[name]; exists {
		return coll, nil
	}

	core, err := d.store.Collection(name)
	if err != nil {
		return nil, domain.Configurationf("cannot open collection %q: %v", name, err)
	}

	opts := append(d.cfg.Options(), WithName(name), WithMetrics(d.recorder))
	if schema, ok := d.cfg.Schemas[name]; ok {
		opts = append(opts, WithSchema(schema))
	}
	coll, err := New(core, opts...)
	if err != nil {
		return nil, err
	}
	d.collections[name] = coll
	log.Printf("INFO: opened collection %s", name)
	return coll, nil
}

// CollectionNames lists collections known to the store or opened here
func (d *Database) CollectionNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]struct{})
	for _, name := range d.store.Names() {
		seen[name] = struct{}{}
	}
	for name := range d.collections {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every opened collection and then the store
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for name, coll := range d.collections {
		if err := coll.Close(); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", name, err))
		}
	}
	if err := d.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
