package alerts

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEvaluateDefaults(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	metrics := map[string]float64{
		"rto_rate":          22.2, // > 15, critical
		"cancellation_rate": 4,    // under threshold
		"revenue":           250000,
		"roas":              1.5, // < 2, warning
	}

	fired := Evaluate(DefaultRules(), metrics, now)
	if len(fired) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %+v", len(fired), fired)
	}
	if fired[0].Rule.ID != "high_rto" {
		t.Errorf("critical alert should sort first, got %q", fired[0].Rule.ID)
	}
	if fired[1].Rule.ID != "low_roas" {
		t.Errorf("expected low_roas second, got %q", fired[1].Rule.ID)
	}
	if fired[0].Value != 22.2 {
		t.Errorf("alert should carry the tripping value, got %v", fired[0].Value)
	}
}

func TestEvaluateSkipsMissingAndDisabled(t *testing.T) {
	rules := []Rule{
		{ID: "a", Metric: "absent", Operator: OpGreaterThan, Threshold: 1, Enabled: true},
		{ID: "b", Metric: "present", Operator: OpGreaterThan, Threshold: 1, Enabled: false},
	}
	fired := Evaluate(rules, map[string]float64{"present": 5}, time.Now())
	if len(fired) != 0 {
		t.Fatalf("expected no alerts, got %+v", fired)
	}
}

func TestEvaluateOperators(t *testing.T) {
	tests := []struct {
		op   Operator
		v    float64
		want bool
	}{
		{OpGreaterThan, 16, true},
		{OpGreaterThan, 15, false},
		{OpLessThan, 14, true},
		{OpLessThan, 15, false},
		{OpEquals, 15, true},
		{OpEquals, 14, false},
	}
	for _, tt := range tests {
		r := Rule{Operator: tt.op, Threshold: 15}
		if got := r.triggered(tt.v); got != tt.want {
			t.Errorf("%s with value %v = %v, want %v", tt.op, tt.v, got, tt.want)
		}
	}
}

func TestLoadRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `
- id: custom_rto
  name: Custom RTO
  metric: rto_rate
  operator: greater_than
  threshold: 25
  unit: "%"
  severity: critical
  enabled: true
  description: RTO rate exceeds 25%
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "custom_rto" || rules[0].Threshold != 25 {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}

func TestLoadRulesMissingFileUsesDefaults(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != len(DefaultRules()) {
		t.Fatalf("expected defaults, got %d rules", len(rules))
	}
}

func TestLoadRulesRejectsBadOperator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `
- id: bad
  metric: rto_rate
  operator: sideways
  threshold: 1
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for unknown operator")
	}
}
