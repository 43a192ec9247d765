package service

import (
	"fmt"
	"strconv"
	"strings"

	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
)

// resolvePath walks a dot-path ("user.email") through nested maps. The
// second return reports whether the full path resolved.
func resolvePath(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// evalCondition applies one condition against the trigger payload. An
// unresolved field or unknown operator evaluates false.
func evalCondition(cond automationdomain.Condition, data map[string]any) bool {
	actual, ok := resolvePath(data, cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case automationdomain.OpEquals:
		return asString(actual) == asString(cond.Value)
	case automationdomain.OpNotEquals:
		return asString(actual) != asString(cond.Value)
	case automationdomain.OpGreater, automationdomain.OpGreaterEq,
		automationdomain.OpLess, automationdomain.OpLessEq:
		left, leftOK := asFloat(actual)
		right, rightOK := asFloat(cond.Value)
		if !leftOK || !rightOK {
			return false
		}
		switch cond.Operator {
		case automationdomain.OpGreater:
			return left > right
		case automationdomain.OpGreaterEq:
			return left >= right
		case automationdomain.OpLess:
			return left < right
		default:
			return left <= right
		}
	case automationdomain.OpContains:
		return strings.Contains(asString(actual), asString(cond.Value))
	case automationdomain.OpNotContains:
		return !strings.Contains(asString(actual), asString(cond.Value))
	case automationdomain.OpStartsWith:
		return strings.HasPrefix(asString(actual), asString(cond.Value))
	case automationdomain.OpEndsWith:
		return strings.HasSuffix(asString(actual), asString(cond.Value))
	}
	return false
}

// evalConditions is an implicit AND over the full list. An empty list is
// always true.
func evalConditions(conds []automationdomain.Condition, data map[string]any) bool {
	for _, cond := range conds {
		if !evalCondition(cond, data) {
			return false
		}
	}
	return true
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}
