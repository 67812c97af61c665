package aggregation

import (
	"strings"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

type exprFunc func(args []interface{}) interface{}

var expressionOperators = map[string]exprFunc{
	"$concat":   concat,
	"$add":      add,
	"$multiply": multiply,
	"$subtract": subtract,
	"$divide":   divide,
}

// isOperator reports whether m is a single-key {"$op": args} expression
func isOperator(m map[string]interface{}) (string, interface{}, bool) {
	if len(m) != 1 {
		return "", nil, false
	}
	for k, v := range m {
		if strings.HasPrefix(k, "$") {
			return k, v, true
		}
	}
	return "", nil, false
}

// validateExpression rejects unknown expression operators before the pipeline runs
func validateExpression(expr interface{}) error {
	m, ok := asDocument(expr)
	if !ok {
		return nil
	}
	op, args, ok := isOperator(m)
	if !ok {
		for _, k := range sortedKeys(m) {
			if err := validateExpression(m[k]); err != nil {
				return err
			}
		}
		return nil
	}
	if op == "$literal" {
		return nil
	}
	if _, known := expressionOperators[op]; !known {
		return domain.Configurationf("unsupported expression operator: %s", op)
	}
	list, ok := asList(args)
	if !ok {
		return domain.Configurationf("%s requires an array of arguments", op)
	}
	if (op == "$subtract" || op == "$divide") && len(list) != 2 {
		return domain.Configurationf("%s requires exactly 2 arguments", op)
	}
	for _, arg := range list {
		if err := validateExpression(arg); err != nil {
			return err
		}
	}
	return nil
}

// evaluate resolves an expression against doc: "$field" references a field
// (nil when missing), {"$op": [...]} applies an operator, other documents
// are evaluated key by key and anything else is a literal.
func evaluate(expr interface{}, doc domain.Document) interface{} {
	if s, ok := expr.(string); ok {
		if strings.HasPrefix(s, "$") && len(s) > 1 {
			value, _ := doc.Get(s[1:])
			return value
		}
		return s
	}

	m, ok := asDocument(expr)
	if !ok {
		return domain.CloneValue(expr)
	}
	op, args, ok := isOperator(m)
	if !ok {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = evaluate(v, doc)
		}
		return out
	}
	if op == "$literal" {
		return domain.CloneValue(args)
	}
	fn, known := expressionOperators[op]
	if !known {
		return nil
	}
	list, _ := asList(args)
	values := make([]interface{}, len(list))
	for i, arg := range list {
		values[i] = evaluate(arg, doc)
	}
	return fn(values)
}

// concat joins strings; any non-string argument yields null
func concat(args []interface{}) interface{} {
	var b strings.Builder
	for _, arg := range args {
		s, ok := arg.(string)
		if !ok {
			return nil
		}
		b.WriteString(s)
	}
	return b.String()
}

func add(args []interface{}) interface{} {
	total := 0.0
	for _, arg := range args {
		n, ok := domain.ToFloat64(arg)
		if !ok {
			return nil
		}
		total += n
	}
	return total
}

func multiply(args []interface{}) interface{} {
	product := 1.0
	for _, arg := range args {
		n, ok := domain.ToFloat64(arg)
		if !ok {
			return nil
		}
		product *= n
	}
	return product
}

func subtract(args []interface{}) interface{} {
	if len(args) != 2 {
		return nil
	}
	a, okA := domain.ToFloat64(args[0])
	b, okB := domain.ToFloat64(args[1])
	if !okA || !okB {
		return nil
	}
	return a - b
}

// divide returns null on division by zero
func divide(args []interface{}) interface{} {
	if len(args) != 2 {
		return nil
	}
	a, okA := domain.ToFloat64(args[0])
	b, okB := domain.ToFloat64(args[1])
	if !okA || !okB || b == 0 {
		return nil
	}
	return a / b
}
