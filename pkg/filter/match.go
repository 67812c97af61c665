package filter

import (
	"github.com/adfharrison1/go-docdb/pkg/domain"
)

func (n *And) Matches(doc domain.Document) bool {
	for _, child := range n.Children {
		if !child.Matches(doc) {
			return false
		}
	}
	return true
}

func (n *Or) Matches(doc domain.Document) bool {
	for _, child := range n.Children {
		if child.Matches(doc) {
			return true
		}
	}
	return false
}

func (Never) Matches(domain.Document) bool {
	return false
}

func (n *Equality) Matches(doc domain.Document) bool {
	actual, exists := doc.Get(n.Field)
	if !exists {
		return false
	}
	return domain.StrictEqual(actual, n.Value)
}

// Matches evaluates the operator. A missing field fails every operator
// except $ne, $nin and $exists:false.
func (n *Comparison) Matches(doc domain.Document) bool {
	actual, exists := doc.Get(n.Field)

	switch n.Operator {
	case OpExists:
		return exists == truthy(n.Operand)
	case OpNe:
		return !exists || !domain.StrictEqual(actual, n.Operand)
	case OpNin:
		list, ok := asList(n.Operand)
		if !ok {
			return false
		}
		return !exists || !contains(list, actual)
	}

	if !exists {
		return false
	}

	switch n.Operator {
	case OpEq:
		return domain.StrictEqual(actual, n.Operand)
	case OpGt:
		c, ok := compareOrdered(actual, n.Operand)
		return ok && c > 0
	case OpGte:
		c, ok := compareOrdered(actual, n.Operand)
		return ok && c >= 0
	case OpLt:
		c, ok := compareOrdered(actual, n.Operand)
		return ok && c < 0
	case OpLte:
		c, ok := compareOrdered(actual, n.Operand)
		return ok && c <= 0
	case OpIn:
		list, ok := asList(n.Operand)
		return ok && contains(list, actual)
	case OpRegex:
		s, ok := actual.(string)
		return ok && n.pattern != nil && n.pattern.MatchString(s)
	}
	return false
}

// compareOrdered orders two numbers or two strings; any other pairing is
// not comparable.
func compareOrdered(a, b interface{}) (int, bool) {
	if af, ok := domain.ToFloat64(a); ok {
		if bf, ok := domain.ToFloat64(b); ok {
			return domain.CompareValues(af, bf), true
		}
		return 0, false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return domain.CompareValues(as, bs), true
	}
	return 0, false
}

func contains(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if domain.StrictEqual(item, v) {
			return true
		}
	}
	return false
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if f, ok := domain.ToFloat64(v); ok {
		return f != 0
	}
	return true
}
