package autoresponder

import (
	"sort"
	"time"
)

// Rule sends TemplateID when Condition matches. Lower Priority values are evaluated first.
type Rule struct {
	ID         int64
	Name       string
	TemplateID string
	Condition  Condition
	Priority   int
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Sort orders rules by priority, then by id for a stable result.
func Sort(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

// Select returns the first enabled rule matching in, or nil.
func Select(rules []Rule, in Input) *Rule {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	Sort(ordered)
	for i := range ordered {
		if ordered[i].Enabled && Matches(ordered[i].Condition, in) {
			return &ordered[i]
		}
	}
	return nil
}
