// Package filter parses MongoDB-style filter documents into an immutable
// syntax tree and evaluates it against documents.
//
// Evaluation is permissive: parsing never fails, unknown operators are
// recorded and ignored, and malformed clauses match nothing.
package filter

import (
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// Operator is a field-level comparison keyword
type Operator string

const (
	OpEq     Operator = "$eq"
	OpNe     Operator = "$ne"
	OpGt     Operator = "$gt"
	OpGte    Operator = "$gte"
	OpLt     Operator = "$lt"
	OpLte    Operator = "$lte"
	OpIn     Operator = "$in"
	OpNin    Operator = "$nin"
	OpExists Operator = "$exists"
	OpRegex  Operator = "$regex"

	keyAnd     = "$and"
	keyOr      = "$or"
	keyOptions = "$options"
)

var knownOperators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNin: true, OpExists: true, OpRegex: true,
}

// Node is one element of a parsed filter
type Node interface {
	Matches(doc domain.Document) bool
}

// And matches when every child matches. An empty And matches everything.
type And struct {
	Children []Node
}

// Or matches when any child matches
type Or struct {
	Children []Node
}

// Equality compares a field against a literal with strict equality
type Equality struct {
	Field string
	Value interface{}
}

// Comparison applies one operator to a field
type Comparison struct {
	Field    string
	Operator Operator
	Operand  interface{}
	pattern  *regexp.Regexp
}

// Never matches nothing; malformed clauses parse to it
type Never struct{}

// Filter is a parsed filter document
type Filter struct {
	root    *And
	unknown []string
}

// Parse converts a map-based filter into its syntax tree.
// filter: { "age": { "$gte": 25 }, "$or": [ { "role": "admin" }, { "vip": true } ] }
func Parse(raw map[string]interface{}) *Filter {
	f := &Filter{}
	f.root = f.parseDocument(raw)
	return f
}

// Matches evaluates a raw filter against a document in one step
func Matches(doc domain.Document, raw map[string]interface{}) bool {
	return Parse(raw).Matches(doc)
}

// Matches reports whether the document satisfies the filter
func (f *Filter) Matches(doc domain.Document) bool {
	return f.root.Matches(doc)
}

// Unknown lists unrecognised operators, in the order they were found
func (f *Filter) Unknown() []string {
	return f.unknown
}

// IsEmpty reports whether the filter matches every document
func (f *Filter) IsEmpty() bool {
	return len(f.root.Children) == 0
}

// Equalities returns the top-level equality conditions whose literal is a
// scalar, keyed by field. These are the conditions an index can answer.
func (f *Filter) Equalities() map[string]interface{} {
	out := make(map[string]interface{})
	for _, child := range f.root.Children {
		if eq, ok := child.(*Equality); ok && domain.IsScalar(eq.Value) {
			out[eq.Field] = eq.Value
		}
	}
	return out
}

func (f *Filter) parseDocument(raw map[string]interface{}) *And {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &And{Children: make([]Node, 0, len(keys))}
	for _, key := range keys {
		value := raw[key]
		switch key {
		case keyAnd:
			node.Children = append(node.Children, f.parseLogical(value, false))
		case keyOr:
			node.Children = append(node.Children, f.parseLogical(value, true))
		default:
			node.Children = append(node.Children, f.parseField(key, value)...)
		}
	}
	return node
}

func (f *Filter) parseLogical(value interface{}, or bool) Node {
	list, ok := asList(value)
	if !ok {
		return Never{}
	}
	children := make([]Node, 0, len(list))
	for _, item := range list {
		sub, ok := asDocument(item)
		if !ok {
			return Never{}
		}
		children = append(children, f.parseDocument(sub))
	}
	if or {
		return &Or{Children: children}
	}
	return &And{Children: children}
}

func (f *Filter) parseField(field string, value interface{}) []Node {
	ops, ok := asDocument(value)
	if !ok {
		return []Node{&Equality{Field: field, Value: value}}
	}

	names := make([]string, 0, len(ops))
	for k := range ops {
		names = append(names, k)
	}
	sort.Strings(names)

	var nodes []Node
	for _, name := range names {
		op := Operator(name)
		if name == keyOptions {
			continue
		}
		if !knownOperators[op] {
			f.unknown = append(f.unknown, name)
			continue
		}
		cmp := &Comparison{Field: field, Operator: op, Operand: ops[name]}
		if op == OpRegex {
			options, _ := ops[keyOptions].(string)
			re, ok := compilePattern(ops[name], options)
			if !ok {
				nodes = append(nodes, Never{})
				continue
			}
			cmp.pattern = re
		}
		nodes = append(nodes, cmp)
	}
	return nodes
}

func compilePattern(operand interface{}, options string) (*regexp.Regexp, bool) {
	if re, ok := operand.(*regexp.Regexp); ok {
		return re, true
	}
	pattern, ok := operand.(string)
	if !ok {
		return nil, false
	}
	var flags strings.Builder
	for _, c := range options {
		switch c {
		case 'i', 'm', 's':
			flags.WriteRune(c)
		}
	}
	if flags.Len() > 0 {
		pattern = "(?" + flags.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	return re, true
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

func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case []map[string]interface{}:
		out := make([]interface{}, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	case []domain.Document:
		out := make([]interface{}, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
