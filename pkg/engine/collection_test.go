package engine

import (
	"errors"
	"testing"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
	"github.com/adfharrison1/go-docdb/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollection(t *testing.T, opts ...Option) *Collection {
	t.Helper()
	coll, err := New(storage.NewMemoryCore("users"), append([]Option{WithName("users")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { coll.Close() })
	return coll
}

func seedAges(t *testing.T, coll *Collection) []string {
	t.Helper()
	ids, err := coll.InsertMany([]domain.Document{
		{"name": "Dave", "age": 20},
		{"name": "Bob", "age": 25},
		{"name": "Alice", "age": 30},
	})
	require.NoError(t, err)
	return ids
}

func names(docs []domain.Document) []interface{} {
	out := make([]interface{}, len(docs))
	for i, doc := range docs {
		out[i] = doc["name"]
	}
	return out
}

func TestScenario_FindOneByName(t *testing.T) {
	coll := newCollection(t)
	_, err := coll.InsertOne(domain.Document{"name": "Alice", "age": 30})
	require.NoError(t, err)

	doc, err := coll.FindOne(map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.EqualValues(t, 30, doc["age"])
}

func TestScenario_RangeQuery(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	docs, err := coll.Find(map[string]interface{}{"age": map[string]interface{}{"$gte": 25}}).ToArray()
	require.NoError(t, err)
	assert.ElementsMatch(t, []interface{}{"Bob", "Alice"}, names(docs))
}

func TestScenario_IncThenFindOne(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	result, err := coll.UpdateOne(
		map[string]interface{}{"name": "Alice"},
		map[string]interface{}{"$inc": map[string]interface{}{"age": 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, result)

	doc, err := coll.FindOne(map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	assert.EqualValues(t, 31, doc["age"])
}

func TestScenario_DeleteManyThenCountAndAggregate(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	pipeline := []map[string]interface{}{
		{"$match": map[string]interface{}{"age": map[string]interface{}{"$gte": 25}}},
		{"$group": map[string]interface{}{"_id": nil, "avgAge": map[string]interface{}{"$avg": "$age"}}},
	}
	groups, err := coll.Aggregate(pipeline)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 27.5, groups[0]["avgAge"])

	result, err := coll.DeleteMany(map[string]interface{}{"age": map[string]interface{}{"$lt": 30}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)

	count, err := coll.Count(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	groups, err = coll.Aggregate(pipeline)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 30.0, groups[0]["avgAge"])
}

func TestRoundTrip(t *testing.T) {
	coll := newCollection(t)
	doc := domain.Document{
		"name":    "Alice",
		"age":     30.0,
		"active":  true,
		"tags":    []interface{}{"a", "b"},
		"address": map[string]interface{}{"city": "NYC", "zip": "10001"},
		"nothing": nil,
	}

	id, err := coll.InsertOne(doc)
	require.NoError(t, err)
	assert.NotContains(t, doc, "_id", "caller's document must not be modified")

	found, err := coll.FindOne(map[string]interface{}{"_id": id})
	require.NoError(t, err)

	expected := doc.Clone()
	expected["_id"] = id
	assert.Equal(t, expected, found)
}

func TestFindOne_NotFound(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	doc, err := coll.FindOne(map[string]interface{}{"name": "Zed"})
	require.NoError(t, err)
	assert.Nil(t, doc)

	doc, err = coll.FindOne(map[string]interface{}{"_id": "nope"})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCacheCorrectnessAfterMutations(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)
	adults := map[string]interface{}{"age": map[string]interface{}{"$gte": 25}}

	docs, err := coll.FindWithOptions(adults, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// served from cache
	_, err = coll.FindWithOptions(adults, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), coll.cache.Stats().Hits)

	_, err = coll.InsertOne(domain.Document{"name": "Eve", "age": 40})
	require.NoError(t, err)
	docs, err = coll.FindWithOptions(adults, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	_, err = coll.UpdateMany(map[string]interface{}{"name": "Bob"}, map[string]interface{}{"$set": map[string]interface{}{"age": 10}})
	require.NoError(t, err)
	docs, err = coll.FindWithOptions(adults, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []interface{}{"Alice", "Eve"}, names(docs))

	_, err = coll.DeleteOne(map[string]interface{}{"name": "Eve"})
	require.NoError(t, err)
	docs, err = coll.FindWithOptions(adults, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Alice"}, names(docs))
}

func TestCachedResultsAreCopies(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	docs, err := coll.FindWithOptions(map[string]interface{}{"name": "Alice"}, nil)
	require.NoError(t, err)
	docs[0]["name"] = "Mallory"

	docs, err = coll.FindWithOptions(map[string]interface{}{"name": "Alice"}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Alice", docs[0]["name"])
}

func TestCacheKeyIgnoresKeyOrder(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	_, err := coll.FindWithOptions(map[string]interface{}{"name": "Alice", "age": 30}, nil)
	require.NoError(t, err)
	_, err = coll.FindWithOptions(map[string]interface{}{"age": 30.0, "name": "Alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), coll.cache.Stats().Hits)
}

func TestQueryCacheDisabled(t *testing.T) {
	coll := newCollection(t, WithQueryCache(false))
	seedAges(t, coll)

	for i := 0; i < 3; i++ {
		_, err := coll.FindWithOptions(map[string]interface{}{}, nil)
		require.NoError(t, err)
	}
	stats, err := coll.Stats()
	require.NoError(t, err)
	assert.False(t, stats.Cache.Enabled)
	assert.Equal(t, 0, stats.Cache.Size)
	assert.Equal(t, uint64(0), stats.Cache.Hits+stats.Cache.Misses)
}

func TestInsertMany_AllOrNothing(t *testing.T) {
	coll := newCollection(t)
	require.NoError(t, coll.CreateIndex("name", domain.IndexHash))
	seedAges(t, coll)

	_, err := coll.Count(map[string]interface{}{})
	require.NoError(t, err)

	ids, err := coll.InsertMany([]domain.Document{
		{"_id": "x", "name": "Xavier"},
		{"_id": "x", "name": "Yolanda"},
	})
	require.Error(t, err)
	assert.Nil(t, ids)
	assert.True(t, errors.Is(err, domain.ErrStorage))

	count, err := coll.Count(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	doc, err := coll.FindOne(map[string]interface{}{"name": "Xavier"})
	require.NoError(t, err)
	assert.Nil(t, doc)
	for _, info := range coll.Indexes() {
		assert.Equal(t, 3, info.Entries)
	}

	ids, err = coll.InsertMany(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStorageFailurePropagates(t *testing.T) {
	core := storage.NewMemoryCore("users")
	coll, err := New(core, WithMemoryLimit(64))
	require.NoError(t, err)

	_, err = coll.InsertOne(domain.Document{"blob": string(make([]byte, 200))})
	require.Error(t, err)

	var storageErr *domain.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Contains(t, storageErr.Message, "memory limit exceeded")
}

func TestUpdate_Semantics(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	result, err := coll.UpdateMany(
		map[string]interface{}{"age": map[string]interface{}{"$gte": 25}},
		map[string]interface{}{"$set": map[string]interface{}{"adult": true}},
	)
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateResult{MatchedCount: 2, ModifiedCount: 2}, result)

	// applying the same $set again matches but modifies nothing
	result, err = coll.UpdateMany(
		map[string]interface{}{"age": map[string]interface{}{"$gte": 25}},
		map[string]interface{}{"$set": map[string]interface{}{"adult": true}},
	)
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateResult{MatchedCount: 2, ModifiedCount: 0}, result)

	// replacement keeps _id
	alice, err := coll.FindOne(map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	_, err = coll.UpdateOne(map[string]interface{}{"_id": alice.ID()}, map[string]interface{}{"_id": "other", "nickname": "Al"})
	require.NoError(t, err)

	updated, err := coll.GetByID(alice.ID())
	require.NoError(t, err)
	assert.Equal(t, alice.ID(), updated.ID())
	assert.Equal(t, "Al", updated["nickname"])
	assert.Equal(t, "Alice", updated["name"])

	result, err = coll.UpdateOne(map[string]interface{}{"name": "Nobody"}, map[string]interface{}{"$set": map[string]interface{}{"x": 1}})
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateResult{}, result)
}

func TestAddToSetIdempotent(t *testing.T) {
	coll := newCollection(t)
	id, err := coll.InsertOne(domain.Document{"name": "Alice", "tags": []interface{}{"a"}})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = coll.UpdateOne(map[string]interface{}{"_id": id}, map[string]interface{}{"$addToSet": map[string]interface{}{"tags": "b"}})
		require.NoError(t, err)
	}
	doc, err := coll.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, doc["tags"])
}

func TestCursor(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)
	_, err := coll.InsertOne(domain.Document{"name": "Carol", "age": 25})
	require.NoError(t, err)

	docs, err := coll.Find(map[string]interface{}{}).Sort("age", -1).Sort("name", 1).Exec()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Alice", "Bob", "Carol", "Dave"}, names(docs))

	docs, err = coll.Find(map[string]interface{}{}).Sort("age", 1).Skip(1).Limit(2).Project("name").ToArray()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []interface{}{"Bob", "Carol"}, names(docs))
	assert.Len(t, docs[0], 2, "projection keeps name and _id")
	assert.Contains(t, docs[0], "_id")

	count, err := coll.Find(map[string]interface{}{"age": 25}).Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = coll.Find(map[string]interface{}{}).Limit(3).Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = coll.Find(map[string]interface{}{}).Sort("age", 2).ToArray()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestDistinct(t *testing.T) {
	coll := newCollection(t)
	_, err := coll.InsertMany([]domain.Document{
		{"city": "NYC", "tags": []interface{}{"a", "b"}},
		{"city": "LA", "tags": []interface{}{"b", "c"}},
		{"city": "NYC"},
		{"other": true},
	})
	require.NoError(t, err)

	cities, err := coll.Distinct("city", nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"NYC", "LA"}, cities)

	tags, err := coll.Distinct("tags", map[string]interface{}{"city": "NYC"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, tags)

	tags, err = coll.Distinct("tags", nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b", "c"}, tags)
}

func TestAggregate_UnknownStage(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)

	_, err := coll.Aggregate([]map[string]interface{}{{"$bogus": 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestGetByID_Cache(t *testing.T) {
	coll := newCollection(t)
	ids := seedAges(t, coll)

	doc, err := coll.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Dave", doc["name"])

	doc, err = coll.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Dave", doc["name"])
	assert.Equal(t, uint64(1), coll.cache.Stats().Hits)

	_, err = coll.UpdateOne(map[string]interface{}{"_id": ids[0]}, map[string]interface{}{"$set": map[string]interface{}{"name": "David"}})
	require.NoError(t, err)

	doc, err = coll.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "David", doc["name"])

	doc, err = coll.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestStats(t *testing.T) {
	coll := newCollection(t)
	seedAges(t, coll)
	require.NoError(t, coll.CreateIndex("name", ""))

	stats, err := coll.Stats()
	require.NoError(t, err)
	assert.Equal(t, "users", stats.Name)
	assert.Equal(t, int64(3), stats.DocumentCount)
	assert.Equal(t, "memory", stats.Storage["backend"])
	assert.True(t, stats.Cache.Enabled)
	assert.Equal(t, 100, stats.Cache.Capacity)
	require.Len(t, stats.Indexes, 1)
	assert.Equal(t, domain.IndexInfo{Field: "name", Kind: domain.IndexHash, Entries: 3}, stats.Indexes[0])
}

func TestClose(t *testing.T) {
	coll, err := New(storage.NewMemoryCore("users"))
	require.NoError(t, err)
	require.NoError(t, coll.Close())
	require.NoError(t, coll.Close())

	_, err = coll.InsertOne(domain.Document{"a": 1})
	assert.True(t, errors.Is(err, domain.ErrClosed))
	_, err = coll.FindWithOptions(nil, nil)
	assert.True(t, errors.Is(err, domain.ErrClosed))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(storage.NewMemoryCore("users"), WithCacheSize(-1))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = New(storage.NewMemoryCore("users"), WithSchema("{not json"))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = New(storage.NewMemoryCore("users"), WithIndexHints(map[string]domain.IndexKind{"name": "btree"}))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestMetricsRecorded(t *testing.T) {
	recorder := metrics.NewRecorder(nil)
	coll := newCollection(t, WithMetrics(recorder), WithIndexHints(map[string]domain.IndexKind{"name": domain.IndexHash}))
	seedAges(t, coll)

	_, err := coll.FindWithOptions(map[string]interface{}{"name": "Alice"}, nil)
	require.NoError(t, err)
	_, err = coll.FindWithOptions(map[string]interface{}{"name": "Alice"}, nil)
	require.NoError(t, err)
	_, err = coll.FindWithOptions(map[string]interface{}{"age": 20}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.QueriesTotal.WithLabelValues("users", metrics.PathIndex)))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.QueriesTotal.WithLabelValues("users", metrics.PathCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.QueriesTotal.WithLabelValues("users", metrics.PathScan)))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.MutationsTotal.WithLabelValues("users", "insert_many", "ok")))
}
