package model

import (
	"encoding/json"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }

func TestExtractedListing_IsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		listing ExtractedListing
		want    bool
	}{
		{"zero value", ExtractedListing{}, true},
		{"empty facilities slice", ExtractedListing{Facilities: JSONArray{}}, true},
		{"price only", ExtractedListing{Price: int64Ptr(1)}, false},
		{"facilities only", ExtractedListing{Facilities: JSONArray{"taman"}}, false},
		{"video url only", ExtractedListing{VideoReviewURL: strPtr("https://x")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.listing.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractedListing_Merge(t *testing.T) {
	base := ExtractedListing{
		PropertyType: strPtr("rumah"),
		City:         strPtr("Surabaya"),
		Price:        int64Ptr(1_000_000_000),
		Facilities:   JSONArray{"taman"},
	}
	patch := ExtractedListing{
		Price:      int64Ptr(900_000_000),
		Bedrooms:   intPtr(3),
		Facilities: JSONArray{"carport", "kolam renang"},
	}

	base.Merge(patch)

	if *base.PropertyType != "rumah" || *base.City != "Surabaya" {
		t.Errorf("unset patch fields must not clear existing values: %+v", base)
	}
	if *base.Price != 900_000_000 {
		t.Errorf("Price = %d, want 900000000", *base.Price)
	}
	if base.Bedrooms == nil || *base.Bedrooms != 3 {
		t.Errorf("Bedrooms = %v, want 3", base.Bedrooms)
	}
	if len(base.Facilities) != 2 || base.Facilities[0] != "carport" {
		t.Errorf("Facilities = %v", base.Facilities)
	}

	// merged values must not alias the patch
	*patch.Price = 1
	if *base.Price != 900_000_000 {
		t.Error("Merge aliased the patch pointer")
	}
}

func TestExtractedListing_OmitsUnknownFields(t *testing.T) {
	data, err := json.Marshal(ExtractedListing{Bedrooms: intPtr(3)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"bedrooms":3}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestProperty_ComputePricePerMeter(t *testing.T) {
	tests := []struct {
		name  string
		price *int64
		land  *int
		want  *int64
	}{
		{"both set", int64Ptr(1_300_000_000), intPtr(180), int64Ptr(7_222_222)},
		{"missing land", int64Ptr(1_000), nil, nil},
		{"zero land", int64Ptr(1_000), intPtr(0), nil},
		{"missing price", nil, intPtr(100), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Property{ExtractedListing: ExtractedListing{Price: tt.price, LandArea: tt.land}}
			p.ComputePricePerMeter()
			switch {
			case tt.want == nil && p.PricePerMeter != nil:
				t.Errorf("PricePerMeter = %d, want nil", *p.PricePerMeter)
			case tt.want != nil && (p.PricePerMeter == nil || *p.PricePerMeter != *tt.want):
				t.Errorf("PricePerMeter = %v, want %d", p.PricePerMeter, *tt.want)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		total, limit, wantPages int
	}{
		{0, 5, 0},
		{5, 5, 1},
		{6, 5, 2},
		{11, 5, 3},
	}
	for _, tt := range tests {
		p := NewPage[int](nil, tt.total, 1, tt.limit)
		if p.TotalPages != tt.wantPages {
			t.Errorf("NewPage(total=%d, limit=%d).TotalPages = %d, want %d", tt.total, tt.limit, p.TotalPages, tt.wantPages)
		}
		if p.Items == nil {
			t.Error("Items should be an empty slice, not nil")
		}
	}
}

func TestSearchFilter_IsEmpty(t *testing.T) {
	if !(SearchFilter{}).IsEmpty() {
		t.Error("zero filter should be empty")
	}
	if (SearchFilter{MustHaveFacilities: []string{"kolam renang"}}).IsEmpty() {
		t.Error("filter with facilities should not be empty")
	}
}
