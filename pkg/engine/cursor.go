package engine

import (
	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// Cursor is a chainable query. Nothing runs until ToArray, Exec or Count.
type Cursor struct {
	coll    *Collection
	filter  map[string]interface{}
	options domain.FindOptions
}

// Sort adds a sort key; keys apply in the order they are added. direction is 1 or -1.
func (cur *Cursor) Sort(field string, direction int) *Cursor {
	cur.options.Sort = append(cur.options.Sort, domain.SortField{Field: field, Direction: direction})
	return cur
}

// Limit caps the number of results. 0 means no limit.
func (cur *Cursor) Limit(n int) *Cursor {
	cur.options.Limit = n
	return cur
}

// Skip drops the first n results
func (cur *Cursor) Skip(n int) *Cursor {
	cur.options.Skip = n
	return cur
}

// Project keeps only the given fields (and _id)
func (cur *Cursor) Project(fields ...string) *Cursor {
	if cur.options.Projection == nil {
		cur.options.Projection = make(map[string]bool, len(fields))
	}
	for _, field := range fields {
		cur.options.Projection[field] = true
	}
	return cur
}

// Options returns the accumulated find options
func (cur *Cursor) Options() domain.FindOptions {
	return cur.options
}

// ToArray runs the query
func (cur *Cursor) ToArray() ([]domain.Document, error) {
	options := cur.options
	return cur.coll.FindWithOptions(cur.filter, &options)
}

// Exec is ToArray
func (cur *Cursor) Exec() ([]domain.Document, error) {
	return cur.ToArray()
}

// Count returns how many documents ToArray would return, skip and limit included
func (cur *Cursor) Count() (int, error) {
	options := cur.options
	options.Projection = nil
	docs, err := cur.coll.FindWithOptions(cur.filter, &options)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
