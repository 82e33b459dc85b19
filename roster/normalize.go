// Package roster turns loosely-keyed tabular rows into normalized
// RecipientRecord sequences.
//
// Header keys are matched case-insensitively against the four semantic
// field categories by an explicit, prioritized rule table (see rules.go),
// so matching behavior is testable apart from normalization itself.
package roster

import (
	"fmt"
	"sort"
	"strings"

	"certledger.dev/certledger/model"
)

// Row is one loosely-keyed input row: arbitrary header strings to cell
// values, casing and spacing unconstrained.
type Row map[string]string

// Normalize produces one RecipientRecord per row, in input order, with
// sequential 1-based IDs.
//
// The FIRST row's keys must cover all four field categories; otherwise
// normalization fails with a Validation error and produces no records.
// An empty value inside a matched column is not an error: only a category
// left entirely unmatched is.
//
// Normalize is a pure transform over its input.
func Normalize(rows []Row) ([]model.RecipientRecord, error) {
	if len(rows) == 0 {
		return nil, model.NewError(model.KindValidation, "CERT-VAL-002", "no rows to normalize")
	}

	rules := matchRulesV1()
	if missing := missingCategories(rules, rows[0]); len(missing) > 0 {
		return nil, model.NewError(model.KindValidation, "CERT-VAL-001",
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	records := make([]model.RecipientRecord, 0, len(rows))
	for i, row := range rows {
		rec := model.RecipientRecord{ID: i + 1}

		// Keys are walked in sorted order so the output does not depend on
		// map iteration; within one row a later matching key overwrites an
		// earlier one for the same category.
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			switch classify(rules, k) {
			case model.FieldStudentName:
				rec.StudentName = row[k]
			case model.FieldRegistrationNumber:
				rec.RegistrationNumber = row[k]
			case model.FieldSchoolName:
				rec.SchoolName = row[k]
			case model.FieldCourseName:
				rec.CourseName = row[k]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// missingCategories returns the field categories that no key of the row
// matches, in canonical field order.
func missingCategories(rules []Rule, row Row) []string {
	matched := make(map[model.FieldKey]bool, len(model.FieldKeys))
	for k := range row {
		if f := classify(rules, k); f != "" {
			matched[f] = true
		}
	}
	var missing []string
	for _, f := range model.FieldKeys {
		if !matched[f] {
			missing = append(missing, string(f))
		}
	}
	return missing
}

// Preview returns at most n leading records, for table previews.
func Preview(records []model.RecipientRecord, n int) []model.RecipientRecord {
	if n < 0 {
		n = 0
	}
	if len(records) <= n {
		return records
	}
	return records[:n]
}
