package roster

import (
	"strings"

	"certledger.dev/certledger/model"
)

// Rule classifies a header key into one semantic field category.
//
// Matching is auditable in isolation: each rule is a named predicate over the
// lowercased, trimmed key, and the table below is evaluated in priority
// order. The first rule that matches a key wins; a key that matches no rule
// is ignored.
type Rule struct {
	Field model.FieldKey
	Match func(key string) bool
}

func contains(subs ...string) func(string) bool {
	return func(key string) bool {
		for _, s := range subs {
			if !strings.Contains(key, s) {
				return false
			}
		}
		return true
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(key string) bool {
		for _, s := range subs {
			if strings.Contains(key, s) {
				return true
			}
		}
		return false
	}
}

// matchRulesV1 is the v1 header matching table. Order matters: "student
// registration" style headers must classify as studentName before the
// registration rule gets a chance.
func matchRulesV1() []Rule {
	return []Rule{
		{Field: model.FieldStudentName, Match: contains("student", "name")},
		{Field: model.FieldRegistrationNumber, Match: containsAny("registration", "reg")},
		{Field: model.FieldSchoolName, Match: containsAny("school", "institution")},
		{Field: model.FieldCourseName, Match: containsAny("course")},
	}
}

// classify returns the field category for a raw header key, or "" when the
// key matches no rule.
func classify(rules []Rule, rawKey string) model.FieldKey {
	key := strings.ToLower(strings.TrimSpace(rawKey))
	for _, r := range rules {
		if r.Match(key) {
			return r.Field
		}
	}
	return ""
}
