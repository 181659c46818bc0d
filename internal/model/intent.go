package model

// SearchFilter is the structured form of a natural-language search request.
// A nil field leaves that dimension unconstrained.
type SearchFilter struct {
	PropertyType       *string  `json:"property_type,omitempty"`
	LocationKeyword    *string  `json:"location_keyword,omitempty"`
	MinPrice           *int64   `json:"min_price,omitempty"`
	MaxPrice           *int64   `json:"max_price,omitempty"`
	MinBedrooms        *int     `json:"min_bedrooms,omitempty"`
	MinLandArea        *int     `json:"min_land_area,omitempty"`
	MustHaveFacilities []string `json:"must_have_facilities,omitempty"`
}

// IsEmpty reports whether the filter matches everything.
func (f SearchFilter) IsEmpty() bool {
	return f.PropertyType == nil && f.LocationKeyword == nil &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinBedrooms == nil && f.MinLandArea == nil &&
		len(f.MustHaveFacilities) == 0
}

// LocationFilter narrows listings by exact city/district and a price band.
type LocationFilter struct {
	City     string `form:"city"`
	District string `form:"district"`
	MinPrice *int64 `form:"min_price"`
	MaxPrice *int64 `form:"max_price"`
}
