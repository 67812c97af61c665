// Package update interprets MongoDB-style update documents.
package update

import (
	"reflect"
	"sort"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// Operator is an update keyword
type Operator string

const (
	OpSet      Operator = "$set"
	OpUnset    Operator = "$unset"
	OpInc      Operator = "$inc"
	OpPush     Operator = "$push"
	OpPull     Operator = "$pull"
	OpAddToSet Operator = "$addToSet"
)

// Order is the fixed order in which operators are applied
var Order = []Operator{OpSet, OpUnset, OpInc, OpPush, OpPull, OpAddToSet}

// FieldOp is one field assignment of an operator
type FieldOp struct {
	Field string
	Value interface{}
}

// Operation groups the field assignments of one operator
type Operation struct {
	Operator Operator
	Fields   []FieldOp
}

// Update is a parsed update document: either a list of operations or, when
// no operator key is present, a replacement merged over the document.
type Update struct {
	Operations  []Operation
	Replacement map[string]interface{}
}

// Parse converts an update document. Operator values that are not documents
// are ignored.
func Parse(spec map[string]interface{}) *Update {
	u := &Update{}
	hasOperator := false
	for _, op := range Order {
		raw, ok := spec[string(op)]
		if !ok {
			continue
		}
		hasOperator = true
		fields, ok := asDocument(raw)
		if !ok {
			continue
		}
		u.Operations = append(u.Operations, Operation{Operator: op, Fields: sortedFields(fields)})
	}
	if !hasOperator {
		u.Replacement = spec
	}
	return u
}

// Apply applies an update document to a copy of doc
func Apply(doc domain.Document, spec map[string]interface{}) domain.Document {
	return Parse(spec).Apply(doc)
}

// IsReplacement reports whether the update is a direct field assignment
func (u *Update) IsReplacement() bool {
	return u.Replacement != nil
}

// Apply returns the updated copy of doc. The input is never modified and
// the _id field is never changed.
func (u *Update) Apply(doc domain.Document) domain.Document {
	out := doc.Clone()
	if out == nil {
		out = domain.Document{}
	}

	if u.Replacement != nil {
		for k, v := range u.Replacement {
			if k == domain.IDField {
				continue
			}
			out[k] = domain.CloneValue(v)
		}
		return out
	}

	for _, op := range u.Operations {
		for _, f := range op.Fields {
			if f.Field == domain.IDField {
				continue
			}
			switch op.Operator {
			case OpSet:
				out.Set(f.Field, domain.CloneValue(f.Value))
			case OpUnset:
				out.Delete(f.Field)
			case OpInc:
				applyInc(out, f.Field, f.Value)
			case OpPush:
				applyPush(out, f.Field, f.Value)
			case OpPull:
				applyPull(out, f.Field, f.Value)
			case OpAddToSet:
				applyAddToSet(out, f.Field, f.Value)
			}
		}
	}
	return out
}

func applyInc(doc domain.Document, field string, delta interface{}) {
	d, ok := domain.ToFloat64(delta)
	if !ok {
		return
	}
	current, exists := doc.Get(field)
	if !exists {
		doc.Set(field, delta)
		return
	}
	c, ok := domain.ToFloat64(current)
	if !ok {
		return
	}
	ci, cInt := current.(int)
	di, dInt := delta.(int)
	if cInt && dInt {
		doc.Set(field, ci+di)
		return
	}
	doc.Set(field, c+d)
}

func applyPush(doc domain.Document, field string, value interface{}) {
	current, exists := doc.Get(field)
	if !exists {
		doc.Set(field, []interface{}{domain.CloneValue(value)})
		return
	}
	list, ok := asList(current)
	if !ok {
		return
	}
	doc.Set(field, append(list, domain.CloneValue(value)))
}

func applyPull(doc domain.Document, field string, value interface{}) {
	current, exists := doc.Get(field)
	if !exists {
		return
	}
	list, ok := asList(current)
	if !ok {
		return
	}
	kept := make([]interface{}, 0, len(list))
	for _, item := range list {
		if !domain.StrictEqual(item, value) {
			kept = append(kept, item)
		}
	}
	doc.Set(field, kept)
}

// applyAddToSet checks membership with strict equality, so documents and
// arrays are always appended.
func applyAddToSet(doc domain.Document, field string, value interface{}) {
	current, exists := doc.Get(field)
	if !exists {
		doc.Set(field, []interface{}{domain.CloneValue(value)})
		return
	}
	list, ok := asList(current)
	if !ok {
		return
	}
	for _, item := range list {
		if domain.StrictEqual(item, value) {
			return
		}
	}
	doc.Set(field, append(list, domain.CloneValue(value)))
}

func sortedFields(fields map[string]interface{}) []FieldOp {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]FieldOp, len(names))
	for i, name := range names {
		out[i] = FieldOp{Field: name, Value: fields[name]}
	}
	return out
}

func asDocument(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case domain.Document:
		return m, true
	default:
		return nil, false
	}
}

// asList copies any slice into a fresh []interface{}
func asList(v interface{}) ([]interface{}, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len(), rv.Len()+1)
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
