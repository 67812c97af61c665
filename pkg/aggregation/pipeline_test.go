package aggregation

import (
	"errors"
	"testing"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people() []domain.Document {
	return []domain.Document{
		{"_id": "1", "name": "Alice", "age": 30.0, "city": "NYC", "tags": []interface{}{"a"}},
		{"_id": "2", "name": "Bob", "age": 25.0, "city": "LA", "tags": []interface{}{"b"}},
		{"_id": "3", "name": "Carol", "age": 35.0, "city": "NYC"},
		{"_id": "4", "name": "Dave", "age": 20.0, "city": "LA"},
	}
}

func run(t *testing.T, stages []map[string]interface{}, docs []domain.Document) []domain.Document {
	t.Helper()
	pipeline, err := New(stages)
	require.NoError(t, err)
	result, err := pipeline.Run(docs)
	require.NoError(t, err)
	return result
}

func TestPipeline_MatchGroupAvg(t *testing.T) {
	docs := []domain.Document{
		{"_id": "1", "name": "Alice", "age": 30.0},
		{"_id": "2", "name": "Bob", "age": 25.0},
	}
	stages := []map[string]interface{}{
		{"$match": map[string]interface{}{"age": map[string]interface{}{"$gte": 25}}},
		{"$group": map[string]interface{}{"_id": nil, "avgAge": map[string]interface{}{"$avg": "$age"}}},
	}

	result := run(t, stages, docs)
	require.Len(t, result, 1)
	assert.Nil(t, result[0]["_id"])
	assert.Equal(t, 27.5, result[0]["avgAge"])

	result = run(t, stages, docs[:1])
	require.Len(t, result, 1)
	assert.Equal(t, 30.0, result[0]["avgAge"])
}

func TestPipeline_GroupAccumulators(t *testing.T) {
	stages := []map[string]interface{}{
		{"$group": map[string]interface{}{
			"_id":    "$city",
			"count":  map[string]interface{}{"$sum": 1},
			"total":  map[string]interface{}{"$sum": "$age"},
			"oldest": map[string]interface{}{"$max": "$age"},
			"young":  map[string]interface{}{"$min": "$age"},
			"names":  map[string]interface{}{"$push": "$name"},
			"first":  map[string]interface{}{"$first": "$name"},
			"n":      map[string]interface{}{"$count": map[string]interface{}{}},
		}},
	}

	result := run(t, stages, people())
	require.Len(t, result, 2)

	// first appearance order
	assert.Equal(t, "NYC", result[0]["_id"])
	assert.Equal(t, "LA", result[1]["_id"])

	nyc := result[0]
	assert.Equal(t, 2.0, nyc["count"])
	assert.Equal(t, 65.0, nyc["total"])
	assert.Equal(t, 35.0, nyc["oldest"])
	assert.Equal(t, 30.0, nyc["young"])
	assert.Equal(t, []interface{}{"Alice", "Carol"}, nyc["names"])
	assert.Equal(t, "Alice", nyc["first"])
	assert.Equal(t, 2, nyc["n"])
}

func TestPipeline_GroupAddToSetAndMissing(t *testing.T) {
	docs := []domain.Document{
		{"_id": "1", "city": "NYC"},
		{"_id": "2", "city": "NYC"},
		{"_id": "3", "city": "LA"},
		{"_id": "4"},
	}
	stages := []map[string]interface{}{
		{"$group": map[string]interface{}{
			"_id":    nil,
			"cities": map[string]interface{}{"$addToSet": "$city"},
			"avg":    map[string]interface{}{"$avg": "$age"},
			"max":    map[string]interface{}{"$max": "$age"},
		}},
	}

	result := run(t, stages, docs)
	require.Len(t, result, 1)
	assert.Equal(t, []interface{}{"NYC", "LA"}, result[0]["cities"])
	assert.Nil(t, result[0]["avg"])
	assert.Nil(t, result[0]["max"])
}

func TestPipeline_GroupCompoundKey(t *testing.T) {
	docs := []domain.Document{
		{"_id": "1", "a": "x", "b": 1.0},
		{"_id": "2", "a": "x", "b": 1.0},
		{"_id": "3", "a": "x", "b": 2.0},
	}
	stages := []map[string]interface{}{
		{"$group": map[string]interface{}{
			"_id":   map[string]interface{}{"a": "$a", "b": "$b"},
			"count": map[string]interface{}{"$sum": 1},
		}},
	}

	result := run(t, stages, docs)
	require.Len(t, result, 2)
	assert.Equal(t, map[string]interface{}{"a": "x", "b": 1.0}, result[0]["_id"])
	assert.Equal(t, 2.0, result[0]["count"])
}

func TestPipeline_SortSkipLimit(t *testing.T) {
	stages := []map[string]interface{}{
		{"$sort": map[string]interface{}{"age": -1}},
		{"$skip": 1},
		{"$limit": 2},
	}

	result := run(t, stages, people())
	require.Len(t, result, 2)
	assert.Equal(t, "Alice", result[0]["name"])
	assert.Equal(t, "Bob", result[1]["name"])
}

func TestPipeline_SortMultiKey(t *testing.T) {
	stages := []map[string]interface{}{
		{"$sort": []interface{}{
			[]interface{}{"city", 1},
			[]interface{}{"age", -1},
		}},
	}

	result := run(t, stages, people())
	names := make([]interface{}, len(result))
	for i, doc := range result {
		names[i] = doc["name"]
	}
	assert.Equal(t, []interface{}{"Bob", "Dave", "Carol", "Alice"}, names)

	stages = []map[string]interface{}{
		{"$sort": []interface{}{
			map[string]interface{}{"city": -1},
			map[string]interface{}{"age": 1},
		}},
	}
	result = run(t, stages, people())
	assert.Equal(t, "Alice", result[0]["name"])
	assert.Equal(t, "Dave", result[2]["name"])
}

func TestPipeline_SortIsStable(t *testing.T) {
	stages := []map[string]interface{}{
		{"$sort": map[string]interface{}{"city": 1}},
	}
	result := run(t, stages, people())
	assert.Equal(t, "2", result[0]["_id"])
	assert.Equal(t, "4", result[1]["_id"])
	assert.Equal(t, "1", result[2]["_id"])
	assert.Equal(t, "3", result[3]["_id"])
}

func TestPipeline_Project(t *testing.T) {
	stages := []map[string]interface{}{
		{"$match": map[string]interface{}{"name": "Alice"}},
		{"$project": map[string]interface{}{
			"name":     1,
			"location": "$city",
			"label":    map[string]interface{}{"$concat": []interface{}{"$name", "@", "$city"}},
			"nextAge":  map[string]interface{}{"$add": []interface{}{"$age", 1}},
			"double":   map[string]interface{}{"$multiply": []interface{}{"$age", 2}},
		}},
	}

	result := run(t, stages, people())
	require.Len(t, result, 1)
	assert.Equal(t, domain.Document{
		"_id":      "1",
		"name":     "Alice",
		"location": "NYC",
		"label":    "Alice@NYC",
		"nextAge":  31.0,
		"double":   60.0,
	}, result[0])
}

func TestPipeline_ProjectExclusion(t *testing.T) {
	stages := []map[string]interface{}{
		{"$project": map[string]interface{}{"tags": 0, "_id": false}},
	}
	docs := people()
	result := run(t, stages, docs)
	assert.Equal(t, domain.Document{"name": "Alice", "age": 30.0, "city": "NYC"}, result[0])
	assert.Contains(t, docs[0], "tags", "input documents must not be modified")
}

func TestPipeline_Count(t *testing.T) {
	stages := []map[string]interface{}{
		{"$match": map[string]interface{}{"city": "LA"}},
		{"$count": "total"},
	}
	result := run(t, stages, people())
	assert.Equal(t, []domain.Document{{"total": 2}}, result)
}

func TestPipeline_EmptyInput(t *testing.T) {
	result := run(t, []map[string]interface{}{
		{"$group": map[string]interface{}{"_id": nil, "n": map[string]interface{}{"$sum": 1}}},
	}, nil)
	assert.Empty(t, result)
	assert.NotNil(t, result)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		stages []map[string]interface{}
	}{
		{"unknown stage", []map[string]interface{}{{"$lookup": map[string]interface{}{}}}},
		{"two keys", []map[string]interface{}{{"$limit": 1, "$skip": 1}}},
		{"empty stage", []map[string]interface{}{{}}},
		{"match not object", []map[string]interface{}{{"$match": "x"}}},
		{"negative limit", []map[string]interface{}{{"$limit": -1}}},
		{"skip not number", []map[string]interface{}{{"$skip": "2"}}},
		{"group without id", []map[string]interface{}{{"$group": map[string]interface{}{"n": map[string]interface{}{"$sum": 1}}}}},
		{"unknown accumulator", []map[string]interface{}{{"$group": map[string]interface{}{"_id": nil, "n": map[string]interface{}{"$median": "$a"}}}}},
		{"multi-key sort map", []map[string]interface{}{{"$sort": map[string]interface{}{"a": 1, "b": -1}}}},
		{"bad sort direction", []map[string]interface{}{{"$sort": map[string]interface{}{"a": 2}}}},
		{"mixed projection", []map[string]interface{}{{"$project": map[string]interface{}{"a": 1, "b": 0}}}},
		{"unknown expression", []map[string]interface{}{{"$project": map[string]interface{}{"a": map[string]interface{}{"$pow": []interface{}{1, 2}}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.stages)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)

			var cfgErr *domain.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestPipeline_Stages(t *testing.T) {
	pipeline, err := New([]map[string]interface{}{
		{"$match": map[string]interface{}{}},
		{"$limit": 5},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"$match", "$limit"}, pipeline.Stages())
}
