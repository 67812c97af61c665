// Package aggregation interprets $match/$group/$sort/$limit/$skip/$project
// pipelines over an in-memory document set.
package aggregation

import (
	"fmt"
	"sort"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/adfharrison1/go-docdb/pkg/filter"
)

// Pipeline represents an aggregation pipeline
type Pipeline struct {
	stages []Stage
}

// Stage represents a single stage in the pipeline
type Stage interface {
	Execute(docs []domain.Document) ([]domain.Document, error)
	Type() string
}

// New parses a pipeline. Unknown stages and malformed stage bodies are
// reported as *domain.ConfigurationError.
func New(stages []map[string]interface{}) (*Pipeline, error) {
	pipeline := &Pipeline{
		stages: make([]Stage, 0, len(stages)),
	}

	for i, stageDef := range stages {
		stage, err := createStage(stageDef)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %d: %w", i, err)
		}
		pipeline.stages = append(pipeline.stages, stage)
	}

	return pipeline, nil
}

// Run executes the pipeline over docs. The input documents are not modified.
func (p *Pipeline) Run(docs []domain.Document) ([]domain.Document, error) {
	result := docs

	for _, stage := range p.stages {
		var err error
		result, err = stage.Execute(result)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", stage.Type(), err)
		}
	}

	if result == nil {
		result = []domain.Document{}
	}
	return result, nil
}

// Stages returns the stage names in execution order
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Type()
	}
	return names
}

func createStage(stageDef map[string]interface{}) (Stage, error) {
	if len(stageDef) != 1 {
		return nil, domain.Configurationf("a stage must have exactly one key, got %d", len(stageDef))
	}
	for stageType, stageSpec := range stageDef {
		switch stageType {
		case "$match":
			return newMatchStage(stageSpec)
		case "$project":
			return newProjectStage(stageSpec)
		case "$sort":
			return newSortStage(stageSpec)
		case "$limit":
			return newLimitStage(stageSpec)
		case "$skip":
			return newSkipStage(stageSpec)
		case "$group":
			return newGroupStage(stageSpec)
		case "$count":
			return newCountStage(stageSpec)
		default:
			return nil, domain.Configurationf("unsupported stage type: %s", stageType)
		}
	}
	return nil, domain.Configurationf("empty stage definition")
}

// MatchStage filters documents
type MatchStage struct {
	filter *filter.Filter
}

func newMatchStage(spec interface{}) (*MatchStage, error) {
	raw, ok := asDocument(spec)
	if !ok {
		return nil, domain.Configurationf("$match requires a filter object")
	}
	return &MatchStage{filter: filter.Parse(raw)}, nil
}

func (s *MatchStage) Execute(docs []domain.Document) ([]domain.Document, error) {
	result := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if s.filter.Matches(doc) {
			result = append(result, doc)
		}
	}
	return result, nil
}

func (s *MatchStage) Type() string {
	return "$match"
}

// SortStage sorts documents stably by one or more keys
type SortStage struct {
	fields []domain.SortField
}

// newSortStage accepts {"field": dir} or an ordered list of [field, dir]
// pairs / single-key maps. Map iteration order is random, so a map with more
// than one key is rejected.
func newSortStage(spec interface{}) (*SortStage, error) {
	var fields []domain.SortField

	if sortSpec, ok := asDocument(spec); ok {
		if len(sortSpec) != 1 {
			return nil, domain.Configurationf("$sort with several keys must be an ordered list of [field, direction] pairs")
		}
		for field, dir := range sortSpec {
			sf, err := sortField(field, dir)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sf)
		}
		return &SortStage{fields: fields}, nil
	}

	list, ok := asList(spec)
	if !ok || len(list) == 0 {
		return nil, domain.Configurationf("$sort requires a sort specification")
	}
	for _, entry := range list {
		if pair, ok := asList(entry); ok && len(pair) == 2 {
			name, ok := pair[0].(string)
			if !ok {
				return nil, domain.Configurationf("$sort field name must be a string")
			}
			sf, err := sortField(name, pair[1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, sf)
			continue
		}
		if m, ok := asDocument(entry); ok && len(m) == 1 {
			for name, dir := range m {
				sf, err := sortField(name, dir)
				if err != nil {
					return nil, err
				}
				fields = append(fields, sf)
			}
			continue
		}
		return nil, domain.Configurationf("invalid $sort entry: %v", entry)
	}
	return &SortStage{fields: fields}, nil
}

func sortField(field string, dir interface{}) (domain.SortField, error) {
	n, ok := domain.ToFloat64(dir)
	if !ok || (n != 1 && n != -1) {
		return domain.SortField{}, domain.Configurationf("$sort direction for %s must be 1 or -1", field)
	}
	return domain.SortField{Field: field, Direction: int(n)}, nil
}

func (s *SortStage) Execute(docs []domain.Document) ([]domain.Document, error) {
	result := make([]domain.Document, len(docs))
	copy(result, docs)
	domain.SortDocuments(result, s.fields)
	return result, nil
}

func (s *SortStage) Type() string {
	return "$sort"
}

// LimitStage limits the number of documents
type LimitStage struct {
	limit int
}

func newLimitStage(spec interface{}) (*LimitStage, error) {
	limit, ok := count(spec)
	if !ok {
		return nil, domain.Configurationf("$limit requires a non-negative number")
	}
	return &LimitStage{limit: limit}, nil
}

func (s *LimitStage) Execute(docs []domain.Document) ([]domain.Document, error) {
	if s.limit >= len(docs) {
		return docs, nil
	}
	return docs[:s.limit], nil
}

func (s *LimitStage) Type() string {
	return "$limit"
}

// SkipStage skips documents
type SkipStage struct {
	skip int
}

func newSkipStage(spec interface{}) (*SkipStage, error) {
	skip, ok := count(spec)
	if !ok {
		return nil, domain.Configurationf("$skip requires a non-negative number")
	}
	return &SkipStage{skip: skip}, nil
}

func (s *SkipStage) Execute(docs []domain.Document) ([]domain.Document, error) {
	if s.skip >= len(docs) {
		return []domain.Document{}, nil
	}
	return docs[s.skip:], nil
}

func (s *SkipStage) Type() string {
	return "$skip"
}

// CountStage replaces the input with a single {field: n} document
type CountStage struct {
	field string
}

func newCountStage(spec interface{}) (*CountStage, error) {
	field, ok := spec.(string)
	if !ok || field == "" || field[0] == '$' {
		return nil, domain.Configurationf("$count requires a field name")
	}
	return &CountStage{field: field}, nil
}

func (s *CountStage) Execute(docs []domain.Document) ([]domain.Document, error) {
	return []domain.Document{{s.field: len(docs)}}, nil
}

func (s *CountStage) Type() string {
	return "$count"
}

func count(spec interface{}) (int, bool) {
	n, ok := domain.ToFloat64(spec)
	if !ok || n < 0 || n != float64(int(n)) {
		return 0, false
	}
	return int(n), true
}

func asDocument(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case domain.Document:
		return m, true
	}
	return nil, false
}

func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case []string:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case [][]interface{}:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
