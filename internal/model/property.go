package model

import "time"

// Listing statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User owns the listings collected through the API. ExternalID is the
// caller-supplied identity (chat id, account id) sent in X-User-ID.
type User struct {
	ID         int64     `json:"id" db:"id"`
	ExternalID string    `json:"external_id" db:"external_id"`
	Username   *string   `json:"username,omitempty" db:"username"`
	FirstName  *string   `json:"first_name,omitempty" db:"first_name"`
	LastName   *string   `json:"last_name,omitempty" db:"last_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	LastActive time.Time `json:"last_active" db:"last_active"`
}

// Property is a stored listing
type Property struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`
	ExtractedListing
	PricePerMeter *int64    `json:"price_per_meter,omitempty" db:"price_per_meter"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ComputePricePerMeter sets PricePerMeter from price and land area, or
// clears it when either is missing.
func (p *Property) ComputePricePerMeter() {
	p.PricePerMeter = nil
	if p.Price == nil || p.LandArea == nil || *p.LandArea <= 0 {
		return
	}
	v := *p.Price / int64(*p.LandArea)
	p.PricePerMeter = &v
}

// PropertySearchResult represents a search hit with ranking metadata
type PropertySearchResult struct {
	Property
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matched_reasons"`
}

// PropertyImage is a photo attached to a listing
type PropertyImage struct {
	ID         int64     `json:"id" db:"id"`
	PropertyID int64     `json:"property_id" db:"property_id"`
	FileID     string    `json:"file_id" db:"file_id"`
	FilePath   *string   `json:"file_path,omitempty" db:"file_path"`
	Caption    *string   `json:"caption,omitempty" db:"caption"`
	IsPrimary  bool      `json:"is_primary" db:"is_primary"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Page is one page of a paginated result
type Page[T any] struct {
	Items       []T `json:"items"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// NewPage fills the page counters from the total row count.
func NewPage[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page[T]{
		Items:       items,
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    limit,
	}
}

// Stats summarises a user's listings
type Stats struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	Inactive      int            `json:"inactive"`
	ByType        map[string]int `json:"by_type"`
	ByTransaction map[string]int `json:"by_transaction"`
}
