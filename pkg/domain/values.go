package domain

import (
	"encoding/json"
	"strconv"
)

// ToFloat64 converts various numeric types to float64 for comparison
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IsScalar reports whether v is null, a number, a string or a boolean.
func IsScalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, bool:
		return true
	}
	_, ok := ToFloat64(v)
	return ok
}

// StrictEqual compares two values the way the query layer defines equality:
// scalars compare by value (numbers numerically across Go types), while
// arrays and nested documents are never equal to anything, including a
// structurally identical copy.
func StrictEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := ToFloat64(a); ok {
		bf, ok := ToFloat64(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// typeRank orders values of different kinds for sorting.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 2
	case bool:
		return 3
	case map[string]interface{}, Document:
		return 4
	case []interface{}:
		return 5
	}
	if _, ok := ToFloat64(v); ok {
		return 1
	}
	return 6
}

// CompareValues returns -1, 0 or 1. Values of different kinds order by kind
// (null < numbers < strings < booleans < documents < arrays); numbers and
// strings order naturally, false sorts before true.
func CompareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 1:
		af, _ := ToFloat64(a)
		bf, _ := ToFloat64(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	case 2:
		as, bs := a.(string), b.(string)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
	case 3:
		ab, bb := a.(bool), b.(bool)
		if ab != bb {
			if !ab {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ScalarKey returns a hashable key identifying a scalar value. Values that
// are StrictEqual share a key. Non-scalar values report false.
func ScalarKey(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "null", true
	case string:
		return "s:" + val, true
	case bool:
		if val {
			return "b:true", true
		}
		return "b:false", true
	}
	if f, ok := ToFloat64(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return "", false
}

// GroupKey is ScalarKey extended to documents and arrays through their JSON
// encoding, for grouping and de-duplication of arbitrary values.
func GroupKey(v interface{}) string {
	if key, ok := ScalarKey(v); ok {
		return key
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "x:" + strconv.Quote(err.Error())
	}
	return "j:" + string(data)
}
