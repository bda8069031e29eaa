// Package alerts evaluates threshold rules against business metrics.
// Rules ship with sensible defaults and can be replaced wholesale from a
// YAML file, so operators tune thresholds without a rebuild.
package alerts

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Severity orders alerts for display. Critical sorts first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

// Operator is the comparison a rule applies to its metric.
type Operator string

const (
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpEquals      Operator = "equals"
)

// Rule is one configurable threshold check.
type Rule struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Metric      string   `yaml:"metric"`
	Operator    Operator `yaml:"operator"`
	Threshold   float64  `yaml:"threshold"`
	Unit        string   `yaml:"unit"`
	Severity    Severity `yaml:"severity"`
	Enabled     bool     `yaml:"enabled"`
	Description string   `yaml:"description"`
}

// Alert is a rule that fired, with the value that tripped it.
type Alert struct {
	Rule      Rule      `json:"rule"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID: "high_rto", Name: "High RTO Rate",
			Metric: "rto_rate", Operator: OpGreaterThan, Threshold: 15, Unit: "%",
			Severity: SeverityCritical, Enabled: true,
			Description: "RTO rate exceeds 15%",
		},
		{
			ID: "low_revenue", Name: "Revenue Drop",
			Metric: "revenue", Operator: OpLessThan, Threshold: 10000, Unit: "₹",
			Severity: SeverityWarning, Enabled: true,
			Description: "Delivered revenue below ₹10,000",
		},
		{
			ID: "high_cancellation", Name: "High Cancellation",
			Metric: "cancellation_rate", Operator: OpGreaterThan, Threshold: 10, Unit: "%",
			Severity: SeverityWarning, Enabled: true,
			Description: "Cancellation rate exceeds 10%",
		},
		{
			ID: "low_stock", Name: "Low Stock Alert",
			Metric: "low_stock_items", Operator: OpGreaterThan, Threshold: 5, Unit: "products",
			Severity: SeverityInfo, Enabled: true,
			Description: "More than 5 products have low stock",
		},
		{
			ID: "high_ad_spend", Name: "High Ad Spend",
			Metric: "ad_spend", Operator: OpGreaterThan, Threshold: 50000, Unit: "₹",
			Severity: SeverityInfo, Enabled: true,
			Description: "Ad spend exceeds ₹50,000",
		},
		{
			ID: "low_roas", Name: "Low ROAS",
			Metric: "roas", Operator: OpLessThan, Threshold: 2.0, Unit: "x",
			Severity: SeverityWarning, Enabled: true,
			Description: "ROAS below 2x",
		},
	}
}

// LoadRules reads a YAML rule file. An empty path or a missing file falls
// back to DefaultRules; a malformed file is an error.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return nil, fmt.Errorf("read alert rules: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse alert rules %s: %w", path, err)
	}
	for i, r := range rules {
		if r.ID == "" || r.Metric == "" {
			return nil, fmt.Errorf("alert rule %d: id and metric are required", i)
		}
		switch r.Operator {
		case OpGreaterThan, OpLessThan, OpEquals:
		default:
			return nil, fmt.Errorf("alert rule %q: unknown operator %q", r.ID, r.Operator)
		}
	}
	return rules, nil
}

// Evaluate checks every enabled rule against the metric map. Rules whose
// metric is absent are skipped. Fired alerts come back sorted by severity,
// then rule ID for a stable order.
func Evaluate(rules []Rule, metrics map[string]float64, now time.Time) []Alert {
	var fired []Alert
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		v, ok := metrics[r.Metric]
		if !ok {
			continue
		}
		if r.triggered(v) {
			fired = append(fired, Alert{Rule: r, Value: v, Timestamp: now})
		}
	}
	sort.Slice(fired, func(i, j int) bool {
		ri, rj := severityRank[fired[i].Rule.Severity], severityRank[fired[j].Rule.Severity]
		if ri != rj {
			return ri < rj
		}
		return fired[i].Rule.ID < fired[j].Rule.ID
	})
	return fired
}

func (r Rule) triggered(v float64) bool {
	switch r.Operator {
	case OpGreaterThan:
		return v > r.Threshold
	case OpLessThan:
		return v < r.Threshold
	case OpEquals:
		return v == r.Threshold
	default:
		return false
	}
}
