package service

import (
	"testing"

	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
)

func TestResolvePath(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"email": "jo@example.com",
			"plan":  map[string]any{"tier": "premium"},
		},
		"amount": 49.99,
	}

	cases := []struct {
		path string
		want any
		ok   bool
	}{
		{"amount", 49.99, true},
		{"user.email", "jo@example.com", true},
		{"user.plan.tier", "premium", true},
		{"user.missing", nil, false},
		{"user.email.domain", nil, false},
		{"", nil, false},
	}
	for _, tc := range cases {
		got, ok := resolvePath(data, tc.path)
		if ok != tc.ok {
			t.Fatalf("resolvePath(%q) ok = %v, want %v", tc.path, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("resolvePath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestEvalConditionOperators(t *testing.T) {
	data := map[string]any{
		"payment": map[string]any{"amount": 75.0, "currency": "USD"},
		"user":    map[string]any{"email": "jo@example.com"},
		"count":   3,
	}

	cases := []struct {
		name string
		cond automationdomain.Condition
		want bool
	}{
		{"equals", automationdomain.Condition{Field: "payment.currency", Operator: automationdomain.OpEquals, Value: "USD"}, true},
		{"equals_miss", automationdomain.Condition{Field: "payment.currency", Operator: automationdomain.OpEquals, Value: "EUR"}, false},
		{"not_equals", automationdomain.Condition{Field: "payment.currency", Operator: automationdomain.OpNotEquals, Value: "EUR"}, true},
		{"greater", automationdomain.Condition{Field: "payment.amount", Operator: automationdomain.OpGreater, Value: 50}, true},
		{"greater_false", automationdomain.Condition{Field: "payment.amount", Operator: automationdomain.OpGreater, Value: 100}, false},
		{"greater_eq", automationdomain.Condition{Field: "payment.amount", Operator: automationdomain.OpGreaterEq, Value: 75}, true},
		{"less", automationdomain.Condition{Field: "count", Operator: automationdomain.OpLess, Value: 10}, true},
		{"less_eq", automationdomain.Condition{Field: "count", Operator: automationdomain.OpLessEq, Value: 3}, true},
		{"contains", automationdomain.Condition{Field: "user.email", Operator: automationdomain.OpContains, Value: "@example"}, true},
		{"not_contains", automationdomain.Condition{Field: "user.email", Operator: automationdomain.OpNotContains, Value: "@corp"}, true},
		{"starts_with", automationdomain.Condition{Field: "user.email", Operator: automationdomain.OpStartsWith, Value: "jo"}, true},
		{"ends_with", automationdomain.Condition{Field: "user.email", Operator: automationdomain.OpEndsWith, Value: ".com"}, true},
		{"numeric_string_value", automationdomain.Condition{Field: "payment.amount", Operator: automationdomain.OpGreater, Value: "50"}, true},
		{"unresolved_field", automationdomain.Condition{Field: "payment.missing", Operator: automationdomain.OpEquals, Value: "x"}, false},
		{"unknown_operator", automationdomain.Condition{Field: "count", Operator: "regex", Value: ".*"}, false},
		{"non_numeric_comparison", automationdomain.Condition{Field: "user.email", Operator: automationdomain.OpGreater, Value: 5}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := evalCondition(tc.cond, data); got != tc.want {
				t.Fatalf("evalCondition = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvalConditionsIsImplicitAND(t *testing.T) {
	data := map[string]any{"payment": map[string]any{"amount": 75.0, "currency": "USD"}}

	both := []automationdomain.Condition{
		{Field: "payment.amount", Operator: automationdomain.OpGreater, Value: 50},
		{Field: "payment.currency", Operator: automationdomain.OpEquals, Value: "USD"},
	}
	if !evalConditions(both, data) {
		t.Fatal("both true conditions should pass")
	}

	oneFalse := append(both, automationdomain.Condition{
		Field: "payment.amount", Operator: automationdomain.OpLess, Value: 10,
	})
	if evalConditions(oneFalse, data) {
		t.Fatal("one false condition should fail the set")
	}

	if !evalConditions(nil, data) {
		t.Fatal("empty condition list should always pass")
	}
}

func TestAsStringCoercions(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{49.99, "49.99"},
		{75.0, "75"},
		{true, "true"},
	}
	for _, tc := range cases {
		if got := asString(tc.in); got != tc.want {
			t.Fatalf("asString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
