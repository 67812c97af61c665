package indexing

import (
	"errors"
	"testing"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() []domain.Document {
	return []domain.Document{
		{"_id": "1", "name": "Alice", "age": 25, "city": "New York"},
		{"_id": "2", "name": "Bob", "age": 30, "city": "Boston"},
		{"_id": "3", "name": "Charlie", "age": 25, "city": "New York"},
		{"_id": "4", "name": "David", "age": 35, "tags": []interface{}{"x"}},
	}
}

func TestCreateIndex(t *testing.T) {
	ie := NewIndexEngine()

	// Test creating index on "name" field
	err := ie.CreateIndex("name", domain.IndexHash)
	assert.NoError(t, err)

	// Same definition again is a no-op
	err = ie.CreateIndex("name", domain.IndexHash)
	assert.NoError(t, err)

	// Default kind is hash
	err = ie.CreateIndex("name", "")
	assert.NoError(t, err)

	// Conflicting kind
	err = ie.CreateIndex("name", domain.IndexUnique)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Contains(t, err.Error(), "already exists")

	// Unknown kind
	err = ie.CreateIndex("age", domain.IndexKind("btree"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	err = ie.CreateIndex("", domain.IndexHash)
	assert.Error(t, err)

	assert.Equal(t, []domain.IndexInfo{{Field: "name", Kind: domain.IndexHash}}, ie.Indexes())
}

func TestBuildIndexAndQuery(t *testing.T) {
	ie := NewIndexEngine()
	require.NoError(t, ie.BuildIndex("age", domain.IndexHash, testDocs()))

	ids, ok := ie.CandidateIDs("age", 25)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "3"}, ids)

	// Numeric values of different Go types share a key
	ids, _ = ie.CandidateIDs("age", float64(30))
	assert.Equal(t, []string{"2"}, ids)

	ids, _ = ie.CandidateIDs("age", 99)
	assert.Empty(t, ids)

	_, ok = ie.CandidateIDs("city", "Boston")
	assert.False(t, ok, "no index on city")

	// Arrays are not indexed
	require.NoError(t, ie.BuildIndex("tags", domain.IndexHash, testDocs()))
	ids, _ = ie.CandidateIDs("tags", "x")
	assert.Empty(t, ids)
}

func TestIndexMaintenance(t *testing.T) {
	ie := NewIndexEngine()
	require.NoError(t, ie.BuildIndex("city", domain.IndexHash, testDocs()))

	// Insert
	newDoc := domain.Document{"_id": "5", "name": "Eve", "city": "Boston"}
	ie.OnInsert("5", newDoc)
	ids, _ := ie.CandidateIDs("city", "Boston")
	assert.Equal(t, []string{"2", "5"}, ids)

	// Update moves the id between value sets
	updated := newDoc.Clone()
	updated["city"] = "Chicago"
	ie.OnUpdate("5", newDoc, updated)
	ids, _ = ie.CandidateIDs("city", "Boston")
	assert.Equal(t, []string{"2"}, ids)
	ids, _ = ie.CandidateIDs("city", "Chicago")
	assert.Equal(t, []string{"5"}, ids)

	// Unchanged value is a no-op
	ie.OnUpdate("5", updated, updated.Clone())
	ids, _ = ie.CandidateIDs("city", "Chicago")
	assert.Equal(t, []string{"5"}, ids)

	// Field removed by update
	stripped := domain.Document{"_id": "5", "name": "Eve"}
	ie.OnUpdate("5", updated, stripped)
	ids, _ = ie.CandidateIDs("city", "Chicago")
	assert.Empty(t, ids)

	// Delete
	ie.OnDelete("2", testDocs()[1])
	ids, _ = ie.CandidateIDs("city", "Boston")
	assert.Empty(t, ids)

	index, ok := ie.GetIndex("city")
	require.True(t, ok)
	assert.NotContains(t, index.Inverted, "s:Boston", "empty value sets are pruned")
}

func TestUniqueIndex(t *testing.T) {
	ie := NewIndexEngine()

	err := ie.BuildIndex("age", domain.IndexUnique, testDocs())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.False(t, ie.HasIndex("age"), "failed unique build leaves no index")

	require.NoError(t, ie.BuildIndex("name", domain.IndexUnique, testDocs()))

	err = ie.CheckUnique("9", domain.Document{"name": "Alice"})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	// The same document may keep its own value
	assert.NoError(t, ie.CheckUnique("1", domain.Document{"name": "Alice", "age": 26}))
	assert.NoError(t, ie.CheckUnique("9", domain.Document{"name": "Zed"}))
}

func TestDropIndex(t *testing.T) {
	ie := NewIndexEngine()
	require.NoError(t, ie.CreateIndex("name", domain.IndexHash))
	require.NoError(t, ie.DropIndex("name"))
	assert.False(t, ie.HasIndex("name"))

	err := ie.DropIndex("name")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestCheckUniqueBatch(t *testing.T) {
	ie := NewIndexEngine()
	require.NoError(t, ie.CreateIndex("email", domain.IndexUnique))
	ie.OnInsert("1", domain.Document{"_id": "1", "email": "a@x"})

	err := ie.CheckUniqueBatch([]domain.Document{{"email": "b@x"}, {"email": "c@x"}})
	assert.NoError(t, err)

	err = ie.CheckUniqueBatch([]domain.Document{{"email": "b@x"}, {"email": "b@x"}})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	err = ie.CheckUniqueBatch([]domain.Document{{"email": "a@x"}})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
