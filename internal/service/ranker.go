package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/utils"
)

// Match reason constants
const (
	ReasonBedroomsMatch     = "Bedrooms match"
	ReasonPropertyTypeMatch = "Property type match"
	ReasonLocationMatch     = "Location match"
	ReasonPriceMatch        = "Price within budget"
	ReasonLandAreaMatch     = "Land area match"
	ReasonFacilitiesMatch   = "Facilities match"
	ReasonContentRelevant   = "Content relevant"
	ReasonNewlyListed       = "Newly listed"
	ReasonNegotiable        = "Negotiable"
	ReasonGeneralMatch      = "General match"
)

// Ranker handles ranking and scoring of search results
type Ranker struct {
	weightText    float64
	weightPrice   float64
	weightRecency float64
	now           func() time.Time
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightText, weightPrice, weightRecency float64) *Ranker {
	return &Ranker{
		weightText:    weightText,
		weightPrice:   weightPrice,
		weightRecency: weightRecency,
		now:           time.Now,
	}
}

// RankResults scores and ranks search results. textRanks holds a 0-1
// relevance per property id; missing ids score zero. Ties keep the
// storage order.
func (r *Ranker) RankResults(
	properties []model.Property,
	textRanks map[int64]float64,
	filter *model.SearchFilter,
) []model.PropertySearchResult {
	results := make([]model.PropertySearchResult, 0, len(properties))

	for _, p := range properties {
		textScore := r.normalizeTextScore(textRanks[p.ID])
		priceScore := r.calculatePriceScore(p.Price, filter)
		recencyScore := r.calculateRecencyScore(p.CreatedAt)

		results = append(results, model.PropertySearchResult{
			Property: p,
			Score: (r.weightText * textScore) +
				(r.weightPrice * priceScore) +
				(r.weightRecency * recencyScore),
			MatchedReasons: r.generateMatchedReasons(p, filter, textScore, priceScore),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

func (r *Ranker) normalizeTextScore(rank float64) float64 {
	if rank > 1.0 {
		return 1.0
	}
	if rank < 0 {
		return 0
	}
	return rank
}

// calculatePriceScore calculates how well the price matches user's budget
func (r *Ranker) calculatePriceScore(price *int64, filter *model.SearchFilter) float64 {
	if price == nil {
		return 0.5 // Neutral score if no price
	}

	if filter == nil || (filter.MinPrice == nil && filter.MaxPrice == nil) {
		return 1.0
	}

	actual := float64(*price)

	if filter.MinPrice != nil && filter.MaxPrice != nil {
		minPrice := float64(*filter.MinPrice)
		maxPrice := float64(*filter.MaxPrice)

		if actual < minPrice || actual > maxPrice {
			return 0.0
		}

		midpoint := (minPrice + maxPrice) / 2
		priceRange := maxPrice - minPrice
		if priceRange == 0 {
			return 1.0
		}

		score := 1.0 - (math.Abs(actual-midpoint) / (priceRange / 2))
		if score < 0 {
			score = 0
		}
		return score
	}

	if filter.MinPrice != nil {
		if actual < float64(*filter.MinPrice) {
			return 0.0
		}
		return 1.0
	}

	maxPrice := float64(*filter.MaxPrice)
	if actual > maxPrice {
		return 0.0
	}
	if maxPrice == 0 {
		return 1.0
	}
	// Closer to max is better
	return math.Min(actual/maxPrice, 1.0)
}

// calculateRecencyScore decays with listing age: ~0.74 after 30 days,
// ~0.41 after 90 days.
func (r *Ranker) calculateRecencyScore(created time.Time) float64 {
	if created.IsZero() {
		return 0.5
	}

	days := r.now().Sub(created).Hours() / 24
	score := math.Exp(-0.01 * days)

	return math.Max(0, math.Min(score, 1.0))
}

// generateMatchedReasons generates human-readable reasons for why this listing matched
func (r *Ranker) generateMatchedReasons(
	p model.Property,
	filter *model.SearchFilter,
	textScore float64,
	priceScore float64,
) []string {
	reasons := []string{}

	if filter != nil {
		if filter.PropertyType != nil && p.PropertyType != nil && strings.EqualFold(*p.PropertyType, *filter.PropertyType) {
			reasons = append(reasons, ReasonPropertyTypeMatch)
		}

		if filter.LocationKeyword != nil && locationMatches(p, *filter.LocationKeyword) {
			reasons = append(reasons, ReasonLocationMatch)
		}

		if filter.MinBedrooms != nil && p.Bedrooms != nil && *p.Bedrooms >= *filter.MinBedrooms {
			reasons = append(reasons, ReasonBedroomsMatch)
		}

		if filter.MinLandArea != nil && p.LandArea != nil && *p.LandArea >= *filter.MinLandArea {
			reasons = append(reasons, ReasonLandAreaMatch)
		}

		if len(filter.MustHaveFacilities) > 0 && hasAllFacilities(p.Facilities, filter.MustHaveFacilities) {
			reasons = append(reasons, ReasonFacilitiesMatch)
		}

		if (filter.MinPrice != nil || filter.MaxPrice != nil) && priceScore > 0.8 {
			reasons = append(reasons, ReasonPriceMatch)
		}
	}

	if textScore > 0.1 {
		reasons = append(reasons, ReasonContentRelevant)
	}

	if !p.CreatedAt.IsZero() && r.now().Sub(p.CreatedAt) < 7*24*time.Hour {
		reasons = append(reasons, ReasonNewlyListed)
	}

	if p.Negotiable != nil && *p.Negotiable {
		reasons = append(reasons, ReasonNegotiable)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}

func locationMatches(p model.Property, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	for _, field := range []*string{p.City, p.District, p.Address} {
		if field != nil && strings.Contains(strings.ToLower(*field), kw) {
			return true
		}
	}
	return false
}

func hasAllFacilities(have []string, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if utils.FuzzyMatchFacility(w, h) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
