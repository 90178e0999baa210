package filter

import (
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
	}{
		{"gte only", nil, floatPtr(3), nil, nil},
		{"lte only", nil, nil, nil, floatPtr(10)},
		{"gte+lte", nil, floatPtr(3), nil, floatPtr(10)},
		{"gt+lt", floatPtr(0), nil, floatPtr(5), nil},
		{"point", nil, floatPtr(4), nil, floatPtr(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewRangeFilter_Invalid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
		wantErr          string
	}{
		{"no boundary", nil, nil, nil, nil, "at least one"},
		{"gt and gte", floatPtr(1), floatPtr(1), nil, nil, "gt and gte"},
		{"lt and lte", nil, nil, floatPtr(1), floatPtr(1), "lt and lte"},
		{"inverted", nil, floatPtr(10), nil, floatPtr(3), "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestRange_Contains(t *testing.T) {
	r, _ := Between(floatPtr(3), floatPtr(5))
	for v, want := range map[float64]bool{2.9: false, 3: true, 4: true, 5: true, 5.1: false} {
		if got := r.Contains(v); got != want {
			t.Errorf("Contains(%g) = %v, want %v", v, got, want)
		}
	}
	open, _ := NewRangeFilter(floatPtr(0), nil, nil, nil)
	if open.Contains(0) {
		t.Error("exclusive lower bound should not contain 0")
	}
}

func TestNewMatch_AnyOf(t *testing.T) {
	c, err := NewMatch("skill_key", "python#3", "python#4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key() != "skill_key" || len(c.Values()) != 2 {
		t.Errorf("unexpected condition: %+v", c)
	}
	if !c.IsMatch() || c.IsRange() {
		t.Error("expected a match condition")
	}
}

func TestNewMatch_Invalid(t *testing.T) {
	if _, err := NewMatch("", "go"); err == nil || !strings.Contains(err.Error(), "key is required") {
		t.Errorf("empty key: %v", err)
	}
	if _, err := NewMatch("sector"); err == nil || !strings.Contains(err.Error(), "match value") {
		t.Errorf("no values: %v", err)
	}
	if _, err := NewMatch("sector", "it", "  "); err == nil {
		t.Error("blank value should be rejected")
	}
	many := make([]string, MaxValuesPerCondition+1)
	for i := range many {
		many[i] = "v"
	}
	if _, err := NewMatch("sector", many...); err == nil {
		t.Error("too many values should be rejected")
	}
}

func TestNewRange_EmptyKey(t *testing.T) {
	r, _ := NewRangeFilter(floatPtr(0), nil, nil, nil)
	if _, err := NewRange("", r); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewExpression_Limits(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		conds[i] = Condition{key: "k", values: []string{"v"}}
	}
	if _, err := NewExpression(conds, nil, nil); err == nil || !strings.Contains(err.Error(), "too many must") {
		t.Errorf("must: %v", err)
	}
	if _, err := NewExpression(nil, conds, nil); err == nil || !strings.Contains(err.Error(), "too many should") {
		t.Errorf("should: %v", err)
	}
	if _, err := NewExpression(nil, nil, conds); err == nil || !strings.Contains(err.Error(), "too many must_not") {
		t.Errorf("must_not: %v", err)
	}
	if _, err := NewExpression(conds[:MaxConditionsPerGroup], nil, nil); err != nil {
		t.Fatalf("unexpected error for exactly max conditions: %v", err)
	}
}

func TestExpression_WithDoesNotAlias(t *testing.T) {
	a, _ := NewMatch("a", "1")
	b, _ := NewMatch("b", "2")
	base, _ := NewExpression([]Condition{a}, nil, nil)
	ext := base.With(b)

	if len(base.Must()) != 1 {
		t.Errorf("base mutated: %d conditions", len(base.Must()))
	}
	if len(ext.Must()) != 2 || ext.IsEmpty() {
		t.Errorf("extended expression has %d conditions", len(ext.Must()))
	}
}
