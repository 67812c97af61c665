package aggregation

import (
	"github.com/adfharrison1/go-docdb/pkg/domain"
)

const (
	accSum      = "$sum"
	accAvg      = "$avg"
	accMin      = "$min"
	accMax      = "$max"
	accPush     = "$push"
	accAddToSet = "$addToSet"
	accFirst    = "$first"
	accLast     = "$last"
	accCount    = "$count"
)

// GroupStage groups documents by an _id expression and computes accumulators.
// Groups are emitted in order of first appearance.
type GroupStage struct {
	id           interface{}
	accumulators []accumulatorSpec
}

type accumulatorSpec struct {
	field    string
	operator string
	operand  interface{}
}

func newGroupStage(spec interface{}) (*GroupStage, error) {
	groupSpec, ok := asDocument(spec)
	if !ok {
		return nil, domain.Configurationf("$group requires a group specification")
	}

	id, exists := groupSpec[domain.IDField]
	if !exists {
		return nil, domain.Configurationf("$group requires an _id field")
	}
	if err := validateExpression(id); err != nil {
		return nil, err
	}

	stage := &GroupStage{id: id}
	for _, field := range sortedKeys(groupSpec) {
		if field == domain.IDField {
			continue
		}
		accMap, ok := asDocument(groupSpec[field])
		if !ok || len(accMap) != 1 {
			return nil, domain.Configurationf("$group field %s must be a single accumulator object", field)
		}
		for op, operand := range accMap {
			switch op {
			case accSum, accAvg, accMin, accMax, accPush, accAddToSet, accFirst, accLast, accCount:
			default:
				return nil, domain.Configurationf("unsupported accumulator %s for field %s", op, field)
			}
			if err := validateExpression(operand); err != nil {
				return nil, err
			}
			stage.accumulators = append(stage.accumulators, accumulatorSpec{field: field, operator: op, operand: operand})
		}
	}
	return stage, nil
}

type group struct {
	id   interface{}
	docs []domain.Document
}

func (s *GroupStage) Execute(docs []domain.Document) ([]domain.Document, error) {
	var order []*group
	groups := make(map[string]*group)

	for _, doc := range docs {
		id := evaluate(s.id, doc)
		key := domain.GroupKey(id)
		g, ok := groups[key]
		if !ok {
			g = &group{id: id}
			groups[key] = g
			order = append(order, g)
		}
		g.docs = append(g.docs, doc)
	}

	result := make([]domain.Document, 0, len(order))
	for _, g := range order {
		out := domain.Document{domain.IDField: g.id}
		for _, acc := range s.accumulators {
			out[acc.field] = acc.compute(g.docs)
		}
		result = append(result, out)
	}
	return result, nil
}

func (s *GroupStage) Type() string {
	return "$group"
}

func (a accumulatorSpec) compute(docs []domain.Document) interface{} {
	switch a.operator {
	case accCount:
		return len(docs)
	case accSum:
		sum := 0.0
		for _, doc := range docs {
			if n, ok := domain.ToFloat64(evaluate(a.operand, doc)); ok {
				sum += n
			}
		}
		return sum
	case accAvg:
		sum, n := 0.0, 0
		for _, doc := range docs {
			if v, ok := domain.ToFloat64(evaluate(a.operand, doc)); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return sum / float64(n)
	case accMin, accMax:
		var best interface{}
		for _, doc := range docs {
			v := evaluate(a.operand, doc)
			if v == nil {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			cmp := domain.CompareValues(v, best)
			if (a.operator == accMin && cmp < 0) || (a.operator == accMax && cmp > 0) {
				best = v
			}
		}
		return best
	case accPush:
		values := make([]interface{}, 0, len(docs))
		for _, doc := range docs {
			if v := evaluate(a.operand, doc); v != nil {
				values = append(values, v)
			}
		}
		return values
	case accAddToSet:
		values := make([]interface{}, 0)
		seen := make(map[string]struct{})
		for _, doc := range docs {
			v := evaluate(a.operand, doc)
			if v == nil {
				continue
			}
			key := domain.GroupKey(v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			values = append(values, v)
		}
		return values
	case accFirst:
		return evaluate(a.operand, docs[0])
	case accLast:
		return evaluate(a.operand, docs[len(docs)-1])
	}
	return nil
}
