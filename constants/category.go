package constants

import (
	"strings"
)

// Category is a budget category label as shown in reports and exports.
type Category string

const (
	Groceries      Category = "Groceries"
	Household      Category = "Household"
	PersonalCare   Category = "Personal Care"
	Dining         Category = "Dining"
	Transportation Category = "Transportation"
	Entertainment  Category = "Entertainment"
	Education      Category = "Education"
	Health         Category = "Health"
	Clothing       Category = "Clothing"
	Electronics    Category = "Electronics"
	Gifts          Category = "Gifts"
	Other          Category = "Other"
)

// Uncategorized replaces Other in export rows.
const Uncategorized = "Uncategorized"

var allCategories = []Category{
	Groceries,
	Household,
	PersonalCare,
	Dining,
	Transportation,
	Entertainment,
	Education,
	Health,
	Clothing,
	Electronics,
	Gifts,
	Other,
}

// AsStringSlice lists every category label, in dropdown order.
func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a user supplied label to a Category. It accepts the
// label in any case, its snake_case form ("personal_care"), the export
// label "Uncategorized" and a few synonyms.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Other, false
	}

	synonyms := map[string]Category{
		"grocery":       Groceries,
		"food":          Groceries,
		"restaurant":    Dining,
		"restaurants":   Dining,
		"transport":     Transportation,
		"travel":        Transportation,
		"toiletries":    PersonalCare,
		"uncategorized": Other,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		label := strings.ToLower(string(cat))
		if normalized == label || normalized == strings.ReplaceAll(label, " ", "_") {
			return cat, true
		}
	}
	return Other, false
}
