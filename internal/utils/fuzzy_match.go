package utils

import (
	"fmt"
	"strings"
)

// facilityAliases maps a canonical facility to the spellings seen in listings.
var facilityAliases = map[string][]string{
	"kolam renang":   {"kolam renang", "swimming pool", "pool", "kolam"},
	"taman":          {"taman", "garden", "halaman"},
	"carport":        {"carport", "car port", "parkir"},
	"garasi":         {"garasi", "garage"},
	"ac":             {"ac", "air conditioner", "aircon", "pendingin"},
	"water heater":   {"water heater", "pemanas air", "heater"},
	"dapur":          {"dapur", "kitchen", "kitchen set"},
	"gudang":         {"gudang", "storage"},
	"one gate":       {"one gate", "one gate system", "cluster", "perumahan tertutup"},
	"keamanan 24":    {"security", "satpam", "keamanan 24", "cctv"},
	"masjid":         {"masjid", "mushola", "musholla"},
	"sekolah":        {"sekolah", "school"},
	"playground":     {"playground", "taman bermain"},
	"gym":            {"gym", "fitness"},
	"balkon":         {"balkon", "balcony", "teras"},
	"furnished":      {"furnished", "full furnish", "semi furnish"},
	"kamar pembantu": {"kamar pembantu", "kt pembantu", "art"},
}

// FuzzyMatchFacility reports whether a listing facility satisfies a
// requested one, using substring and alias matching.
func FuzzyMatchFacility(searchTerm, facility string) bool {
	searchLower := strings.ToLower(strings.TrimSpace(searchTerm))
	facilityLower := strings.ToLower(strings.TrimSpace(facility))
	if searchLower == "" || facilityLower == "" {
		return false
	}

	if searchLower == facilityLower || strings.Contains(facilityLower, searchLower) {
		return true
	}

	for _, alias := range facilityPatterns(searchLower) {
		if strings.Contains(facilityLower, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

// NormalizeFacility maps a facility onto its canonical name when an alias
// is known, or lowercases it otherwise.
func NormalizeFacility(facility string) string {
	lower := strings.ToLower(strings.TrimSpace(facility))
	for canonical, aliases := range facilityAliases {
		for _, alias := range aliases {
			if lower == alias {
				return canonical
			}
		}
	}
	return lower
}

// facilityPatterns returns the ILIKE patterns for one requested facility.
func facilityPatterns(termLower string) []string {
	for canonical, aliases := range facilityAliases {
		if termLower == canonical {
			return aliases
		}
		for _, alias := range aliases {
			if termLower == alias {
				return aliases
			}
		}
	}
	return []string{termLower}
}

// BuildFuzzyFacilityQuery builds one EXISTS condition per requested facility
// against the facilities JSONB array. Placeholders start at paramIndex; the
// next free index is returned.
func BuildFuzzyFacilityQuery(searchTerms []string, paramIndex int) ([]string, []interface{}, int) {
	if len(searchTerms) == 0 {
		return nil, nil, paramIndex
	}

	var conditions []string
	var params []interface{}

	for _, term := range searchTerms {
		termLower := strings.ToLower(strings.TrimSpace(term))
		if termLower == "" {
			continue
		}

		var orConditions []string
		for _, pattern := range facilityPatterns(termLower) {
			orConditions = append(orConditions, fmt.Sprintf("elem ILIKE $%d", paramIndex))
			params = append(params, "%"+pattern+"%")
			paramIndex++
		}

		condition := "EXISTS (SELECT 1 FROM jsonb_array_elements_text(COALESCE(facilities, '[]'::jsonb)) elem WHERE " +
			strings.Join(orConditions, " OR ") + ")"
		conditions = append(conditions, condition)
	}

	return conditions, params, paramIndex
}
