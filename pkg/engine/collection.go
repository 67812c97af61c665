// Package engine answers MongoDB-style collection operations over a storage
// core, keeping a secondary index layer and a query result cache in step
// with every mutation.
package engine

import (
	"fmt"
	"log"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/adfharrison1/go-docdb/pkg/aggregation"
	"github.com/adfharrison1/go-docdb/pkg/cache"
	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/adfharrison1/go-docdb/pkg/filter"
	"github.com/adfharrison1/go-docdb/pkg/indexing"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
	"github.com/adfharrison1/go-docdb/pkg/storage"
	"github.com/adfharrison1/go-docdb/pkg/update"
)

var _ domain.CollectionEngine = (*Collection)(nil)

// Collection is the public collection API over one storage core. Operations
// are serialized: one runs at a time.
type Collection struct {
	mu         sync.Mutex
	name       string
	client     *storage.Client
	indexes    *indexing.IndexEngine
	cache      *cache.ResultCache
	queryCache bool
	debug      bool
	recorder   *metrics.Recorder
	schema     *gojsonschema.Schema
	closed     bool
}

// New opens a collection over core. Index hints are built from the documents
// already stored. The caller owns the collection and must Close it.
func New(core storage.Core, opts ...Option) (*Collection, error) {
	if core == nil {
		return nil, fmt.Errorf("storage core cannot be nil")
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.cacheSize < 0 {
		return nil, domain.Configurationf("cache size cannot be negative")
	}

	schema, err := compileSchema(s.schema)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		name:       s.name,
		client:     storage.NewClient(core),
		indexes:    indexing.NewIndexEngine(),
		cache:      cache.New(s.cacheSize),
		queryCache: s.queryCache,
		debug:      s.debug,
		recorder:   s.recorder,
		schema:     schema,
	}

	if s.memoryLimit > 0 {
		if limiter, ok := core.(storage.Limiter); ok {
			limiter.SetMemoryLimit(s.memoryLimit)
		} else {
			log.Printf("WARN: collection %s: core %T does not support a memory limit, ignoring", c.name, core)
		}
	}

	if len(s.indexHints) > 0 {
		docs, err := c.client.All()
		if err != nil {
			return nil, fmt.Errorf("failed to load documents for index hints: %w", err)
		}
		for _, field := range sortedHints(s.indexHints) {
			if err := c.indexes.BuildIndex(field, s.indexHints[field], docs); err != nil {
				return nil, err
			}
		}
		log.Printf("INFO: collection %s: built %d index(es) over %d documents", c.name, len(s.indexHints), len(docs))
	}

	return c, nil
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// Close releases the cache and closes the core
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cache.Clear()
	return c.client.Close()
}

func (c *Collection) checkOpen() error {
	if c.closed {
		return fmt.Errorf("collection %s: %w", c.name, domain.ErrClosed)
	}
	return nil
}

func (c *Collection) debugf(format string, args ...interface{}) {
	if c.debug {
		log.Printf("DEBUG: collection %s: "+format, append([]interface{}{c.name}, args...)...)
	}
}

// invalidate drops the per-document entries of ids and every cached query
func (c *Collection) invalidate(ids ...string) {
	for _, id := range ids {
		c.cache.Invalidate(cache.DocumentKey(id))
	}
	n := c.cache.InvalidatePrefix(cache.QueryPrefix)
	c.debugf("invalidated %d document key(s) and %d query result(s)", len(ids), n)
}

// InsertOne stores a document and returns its id
func (c *Collection) InsertOne(doc domain.Document) (id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recorder.ObserveDuration(c.name, "insert_one", time.Now())
	defer func() { c.recorder.ObserveMutation(c.name, "insert_one", err) }()

	if err := c.checkOpen(); err != nil {
		return "", err
	}

	stored := doc.Clone()
	if stored == nil {
		stored = domain.Document{}
	}
	if err := c.validate(stored); err != nil {
		return "", err
	}
	if err := c.indexes.CheckUnique(stored.ID(), stored); err != nil {
		return "", err
	}

	id, err = c.client.Insert(stored)
	if err != nil {
		return "", err
	}
	stored[domain.IDField] = id
	c.indexes.OnInsert(id, stored)
	c.invalidate(id)
	return id, nil
}

// InsertMany stores every document or none. On error no ids are returned
// and neither the index nor the cache is touched.
func (c *Collection) InsertMany(docs []domain.Document) (ids []string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recorder.ObserveDuration(c.name, "insert_many", time.Now())
	defer func() { c.recorder.ObserveMutation(c.name, "insert_many", err) }()

	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []string{}, nil
	}

	stored := make([]domain.Document, len(docs))
	for i, doc := range docs {
		stored[i] = doc.Clone()
		if stored[i] == nil {
			stored[i] = domain.Document{}
		}
		if err := c.validate(stored[i]); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
	if err := c.indexes.CheckUniqueBatch(stored); err != nil {
		return nil, err
	}

	ids, err = c.client.InsertMany(stored)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(stored) {
		return nil, domain.NewStorageError("insert_many", fmt.Sprintf("core returned %d ids for %d documents", len(ids), len(stored)))
	}

	for i, id := range ids {
		stored[i][domain.IDField] = id
		c.indexes.OnInsert(id, stored[i])
	}
	c.invalidate(ids...)
	return ids, nil
}

// GetByID returns the document stored under id, or nil
func (c *Collection) GetByID(id string) (domain.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recorder.ObserveDuration(c.name, "get_by_id", time.Now())

	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	key := cache.DocumentKey(id)
	if c.queryCache {
		if cached, ok := c.cache.Get(key); ok {
			c.recorder.ObserveCache(c.name, true)
			c.recorder.ObserveQuery(c.name, metrics.PathCache)
			return cached.(domain.Document).Clone(), nil
		}
		c.recorder.ObserveCache(c.name, false)
	}

	doc, err := c.client.Get(id)
	if err != nil {
		return nil, err
	}
	c.recorder.ObserveQuery(c.name, metrics.PathIndex)
	if doc != nil && c.queryCache {
		c.cache.Set(key, doc.Clone())
	}
	return doc, nil
}

// UpdateOne applies spec to the first matching document
func (c *Collection) UpdateOne(filterDoc, spec map[string]interface{}) (domain.UpdateResult, error) {
	return c.updateMatching(filterDoc, spec, true)
}

// UpdateMany applies spec to every matching document
func (c *Collection) UpdateMany(filterDoc, spec map[string]interface{}) (domain.UpdateResult, error) {
	return c.updateMatching(filterDoc, spec, false)
}

func (c *Collection) updateMatching(filterDoc, spec map[string]interface{}, one bool) (result domain.UpdateResult, err error) {
	op := "update_many"
	if one {
		op = "update_one"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recorder.ObserveDuration(c.name, op, time.Now())
	defer func() { c.recorder.ObserveMutation(c.name, op, err) }()

	if err := c.checkOpen(); err != nil {
		return result, err
	}

	f := filter.Parse(filterDoc)
	c.logUnknown(f)
	matched, err := c.matching(f, one)
	if err != nil {
		return result, err
	}
	result.MatchedCount = len(matched)

	u := update.Parse(spec)
	changes := make(map[string]domain.Document)
	var order []string
	var changed []domain.Document
	previous := make(map[string]domain.Document)
	for _, doc := range matched {
		updated := u.Apply(doc)
		if sameDocument(doc, updated) {
			continue
		}
		if err := c.validate(updated); err != nil {
			return result, err
		}
		id := doc.ID()
		changes[id] = updated
		previous[id] = doc
		order = append(order, id)
		changed = append(changed, updated)
	}
	if len(order) == 0 {
		return result, nil
	}
	if err := c.indexes.CheckUniqueBatch(changed); err != nil {
		return result, err
	}

	n, err := c.client.UpdateMany(changes, order)
	if err != nil {
		c.resync(previous)
		return result, err
	}
	for _, id := range order {
		c.indexes.OnUpdate(id, previous[id], changes[id])
	}
	c.invalidate(order...)
	result.ModifiedCount = n
	return result, nil
}

// DeleteOne removes the first matching document
func (c *Collection) DeleteOne(filterDoc map[string]interface{}) (domain.DeleteResult, error) {
	return c.deleteMatching(filterDoc, true)
}

// DeleteMany removes every matching document
func (c *Collection) DeleteMany(filterDoc map[string]interface{}) (domain.DeleteResult, error) {
	return c.deleteMatching(filterDoc, false)
}

func (c *Collection) deleteMatching(filterDoc map[string]interface{}, one bool) (result domain.DeleteResult, err error) {
	op := "delete_many"
	if one {
		op = "delete_one"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recorder.ObserveDuration(c.name, op, time.Now())
	defer func() { c.recorder.ObserveMutation(c.name, op, err) }()

	if err := c.checkOpen(); err != nil {
		return result, err
	}

	f := filter.Parse(filterDoc)
	c.logUnknown(f)
	matched, err := c.matching(f, one)
	if err != nil {
		return result, err
	}
	if len(matched) == 0 {
		return result, nil
	}

	ids := make([]string, len(matched))
	previous := make(map[string]domain.Document, len(matched))
	for i, doc := range matched {
		ids[i] = doc.ID()
		previous[ids[i]] = doc
	}

	n, err := c.client.DeleteMany(ids)
	if err != nil {
		c.resync(previous)
		return result, err
	}
	for _, doc := range matched {
		c.indexes.OnDelete(doc.ID(), doc)
	}
	c.invalidate(ids...)
	result.DeletedCount = n
	return result, nil
}

// resync re-reads documents after a failed batch so the index reflects
// whatever part of the batch the core applied.
func (c *Collection) resync(previous map[string]domain.Document) {
	ids := make([]string, 0, len(previous))
	for id, old := range previous {
		current, err := c.client.Get(id)
		if err != nil {
			log.Printf("ERROR: collection %s: failed to resync document %s: %v", c.name, id, err)
			continue
		}
		c.indexes.OnUpdate(id, old, current)
		ids = append(ids, id)
	}
	c.invalidate(ids...)
}

// Aggregate runs a pipeline over every stored document. Results are not cached.
func (c *Collection) Aggregate(pipeline []map[string]interface{}) ([]domain.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recorder.ObserveDuration(c.name, "aggregate", time.Now())

	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	p, err := aggregation.New(pipeline)
	if err != nil {
		return nil, err
	}
	docs, err := c.client.All()
	if err != nil {
		return nil, err
	}
	c.recorder.ObserveQuery(c.name, metrics.PathScan)
	c.debugf("aggregate %v over %d documents", p.Stages(), len(docs))
	return p.Run(docs)
}

// CreateIndex creates an index and builds it from the stored documents
func (c *Collection) CreateIndex(field string, kind domain.IndexKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpen(); err != nil {
		return err
	}
	docs, err := c.client.All()
	if err != nil {
		return err
	}
	if err := c.indexes.BuildIndex(field, kind, docs); err != nil {
		return err
	}
	log.Printf("INFO: collection %s: index on %s ready", c.name, field)
	return nil
}

// DropIndex removes an index
func (c *Collection) DropIndex(field string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.indexes.DropIndex(field)
}

// Indexes lists index definitions
func (c *Collection) Indexes() []domain.IndexInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexes.Indexes()
}

// Stats combines the core's counters with cache and index information
func (c *Collection) Stats() (domain.CollectionStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpen(); err != nil {
		return domain.CollectionStats{}, err
	}
	storageStats, err := c.client.Stats()
	if err != nil {
		return domain.CollectionStats{}, err
	}

	stats := domain.CollectionStats{
		Name:    c.name,
		Storage: storageStats,
		Cache:   c.cache.Stats(),
		Indexes: c.indexes.Indexes(),
	}
	stats.Cache.Enabled = c.queryCache
	if count, ok := domain.ToFloat64(storageStats["document_count"]); ok {
		stats.DocumentCount = int64(count)
	}
	return stats, nil
}

// ClearCache drops every cached result
func (c *Collection) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()
}

func (c *Collection) logUnknown(f *filter.Filter) {
	if unknown := f.Unknown(); len(unknown) > 0 {
		c.debugf("ignoring unknown filter operator(s) %v", unknown)
	}
}

// sameDocument compares documents by their JSON encoding, so 30 and 30.0
// are the same value.
func sameDocument(a, b domain.Document) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ja) == string(jb)
}
