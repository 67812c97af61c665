package engine

import (
	"sort"
	"time"

	"github.com/adfharrison1/go-docdb/pkg/cache"
	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/adfharrison1/go-docdb/pkg/filter"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
)

// Find starts a chainable query
func (c *Collection) Find(filterDoc map[string]interface{}) *Cursor {
	return &Cursor{coll: c, filter: filterDoc}
}

// FindOne returns the first matching document, or nil when none matches
func (c *Collection) FindOne(filterDoc map[string]interface{}) (domain.Document, error) {
	docs, err := c.FindWithOptions(filterDoc, &domain.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// FindWithOptions returns matching documents shaped by options: sort, then
// skip, then limit, then projection. Results are served from and stored in
// the query cache.
func (c *Collection) FindWithOptions(filterDoc map[string]interface{}, options *domain.FindOptions) ([]domain.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recorder.ObserveDuration(c.name, "find", time.Now())

	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.find(filterDoc, options)
}

// Count returns the number of matching documents
func (c *Collection) Count(filterDoc map[string]interface{}) (int, error) {
	docs, err := c.FindWithOptions(filterDoc, nil)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Distinct returns the distinct values of field among matching documents, in
// order of first appearance. Array values contribute their elements.
func (c *Collection) Distinct(field string, filterDoc map[string]interface{}) ([]interface{}, error) {
	docs, err := c.FindWithOptions(filterDoc, nil)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, 0)
	seen := make(map[string]struct{})
	add := func(v interface{}) {
		key := domain.GroupKey(v)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		values = append(values, v)
	}
	for _, doc := range docs {
		v, ok := doc.Get(field)
		if !ok {
			continue
		}
		if list, isList := v.([]interface{}); isList {
			for _, item := range list {
				add(item)
			}
			continue
		}
		add(v)
	}
	return values, nil
}

func (c *Collection) find(filterDoc map[string]interface{}, options *domain.FindOptions) ([]domain.Document, error) {
	if err := options.Validate(); err != nil {
		return nil, domain.Configurationf("invalid find options: %v", err)
	}

	key, cacheable := "", false
	if c.queryCache {
		key, cacheable = cache.QueryKey(filterDoc, options)
	}
	if cacheable {
		if cached, ok := c.cache.Get(key); ok {
			c.recorder.ObserveCache(c.name, true)
			c.recorder.ObserveQuery(c.name, metrics.PathCache)
			c.debugf("cache hit for %s", key)
			return domain.CloneAll(cached.([]domain.Document)), nil
		}
		c.recorder.ObserveCache(c.name, false)
	}

	f := filter.Parse(filterDoc)
	c.logUnknown(f)

	docs, path, err := c.candidates(f)
	if err != nil {
		return nil, err
	}
	c.recorder.ObserveQuery(c.name, path)

	matched := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if f.Matches(doc) {
			matched = append(matched, doc)
		}
	}
	c.debugf("%s path examined %d document(s), matched %d", path, len(docs), len(matched))

	result := shape(matched, options)
	if cacheable {
		c.cache.Set(key, domain.CloneAll(result))
	}
	return result, nil
}

// matching returns documents matching f without consulting the cache
func (c *Collection) matching(f *filter.Filter, one bool) ([]domain.Document, error) {
	docs, path, err := c.candidates(f)
	if err != nil {
		return nil, err
	}
	c.debugf("mutation matched through %s path", path)

	matched := make([]domain.Document, 0)
	for _, doc := range docs {
		if f.Matches(doc) {
			matched = append(matched, doc)
			if one {
				break
			}
		}
	}
	return matched, nil
}

// candidates picks the documents a filter has to be checked against. An
// _id equality reads that one document; otherwise the first top-level
// equality on an indexed field, in field order, narrows the set through the
// index; otherwise every document is scanned.
func (c *Collection) candidates(f *filter.Filter) ([]domain.Document, string, error) {
	equalities := f.Equalities()

	if id, ok := equalities[domain.IDField].(string); ok {
		doc, err := c.client.Get(id)
		if err != nil {
			return nil, "", err
		}
		if doc == nil {
			return nil, metrics.PathIndex, nil
		}
		return []domain.Document{doc}, metrics.PathIndex, nil
	}

	for _, field := range sortedFields(equalities) {
		ids, indexed := c.indexes.CandidateIDs(field, equalities[field])
		if !indexed {
			continue
		}
		c.debugf("using index on %s (%d candidate(s))", field, len(ids))
		docs := make([]domain.Document, 0, len(ids))
		for _, id := range ids {
			doc, err := c.client.Get(id)
			if err != nil {
				return nil, "", err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return docs, metrics.PathIndex, nil
	}

	docs, err := c.client.All()
	if err != nil {
		return nil, "", err
	}
	return docs, metrics.PathScan, nil
}

// shape applies sort, skip, limit and projection
func shape(docs []domain.Document, options *domain.FindOptions) []domain.Document {
	if options == nil {
		return docs
	}
	domain.SortDocuments(docs, options.Sort)
	docs = domain.Page(docs, options.Skip, options.Limit)

	fields := options.IncludedFields()
	if len(fields) == 0 {
		return docs
	}
	projected := make([]domain.Document, len(docs))
	for i, doc := range docs {
		projected[i] = domain.ProjectFields(doc, fields)
	}
	return projected
}

func sortedFields(m map[string]interface{}) []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
