package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Property types accepted in ExtractedListing.PropertyType
const (
	PropertyTypeRumah     = "rumah"
	PropertyTypeApartemen = "apartemen"
	PropertyTypeTanah     = "tanah"
	PropertyTypeRuko      = "ruko"
	PropertyTypeVilla     = "villa"
	PropertyTypeKost      = "kost"
	PropertyTypeGudang    = "gudang"
	PropertyTypeKantor    = "kantor"
	PropertyTypeLainnya   = "lainnya"
)

// Transaction types accepted in ExtractedListing.TransactionType
const (
	TransactionJual     = "jual"
	TransactionSewa     = "sewa"
	TransactionJualSewa = "jual sewa"
)

// Certificate types accepted in ExtractedListing.CertificateType
const (
	CertificateSHM     = "SHM"
	CertificateSHGB    = "SHGB"
	CertificateAJB     = "AJB"
	CertificateGirik   = "Girik"
	CertificateLainnya = "Lainnya"
)

// ExtractedListing is the structured form of one free-text property ad.
// A nil field means the value was not present in the source text.
type ExtractedListing struct {
	// Classification
	PropertyType    *string `json:"property_type,omitempty" db:"property_type"`
	TransactionType *string `json:"transaction_type,omitempty" db:"transaction_type"`
	Condition       *string `json:"condition,omitempty" db:"condition"`

	// Location
	Address  *string `json:"address,omitempty" db:"address"`
	District *string `json:"district,omitempty" db:"district"`
	City     *string `json:"city,omitempty" db:"city"`
	Province *string `json:"province,omitempty" db:"province"`

	// Money, in rupiah
	Price      *int64 `json:"price,omitempty" db:"price"`
	RentPrice  *int64 `json:"rent_price,omitempty" db:"rent_price"`
	Negotiable *bool  `json:"negotiable,omitempty" db:"negotiable"`

	// Dimensions, in square meters
	LandArea     *int    `json:"land_area,omitempty" db:"land_area"`
	BuildingArea *int    `json:"building_area,omitempty" db:"building_area"`
	Dimensions   *string `json:"dimensions,omitempty" db:"dimensions"`

	// Specifications
	Bedrooms       *int     `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms      *int     `json:"bathrooms,omitempty" db:"bathrooms"`
	Floors         *float64 `json:"floors,omitempty" db:"floors"`
	Carports       *int     `json:"carports,omitempty" db:"carports"`
	Garages        *int     `json:"garages,omitempty" db:"garages"`
	YearBuilt      *int     `json:"year_built,omitempty" db:"year_built"`
	Electricity    *int     `json:"electricity,omitempty" db:"electricity"` // watts
	Orientation    *string  `json:"orientation,omitempty" db:"orientation"`
	WaterType      *string  `json:"water_type,omitempty" db:"water_type"`
	Furnished      *string  `json:"furnished,omitempty" db:"furnished"`
	RowRoad        *string  `json:"row_road,omitempty" db:"row_road"`
	PhoneLineCount *int     `json:"phone_line_count,omitempty" db:"phone_line_count"`

	// Legal
	CertificateType *string `json:"certificate_type,omitempty" db:"certificate_type"`
	KPR             *bool   `json:"kpr,omitempty" db:"kpr"`
	IMB             *bool   `json:"imb,omitempty" db:"imb"`
	Blueprint       *bool   `json:"blueprint,omitempty" db:"blueprint"`

	Facilities JSONArray `json:"facilities,omitempty" db:"facilities"`

	// Narrative and contact
	Description     *string `json:"description,omitempty" db:"description"`
	ContactName     *string `json:"contact_name,omitempty" db:"contact_name"`
	ContactPhone    *string `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactWhatsapp *string `json:"contact_whatsapp,omitempty" db:"contact_whatsapp"`
	PropertyURL     *string `json:"property_url,omitempty" db:"property_url"`
	AgentURL        *string `json:"agent_url,omitempty" db:"agent_url"`
	VideoReviewURL  *string `json:"video_review_url,omitempty" db:"video_review_url"`
}

// IsEmpty reports whether no field was extracted.
func (l ExtractedListing) IsEmpty() bool {
	return l.PropertyType == nil && l.TransactionType == nil && l.Condition == nil &&
		l.Address == nil && l.District == nil && l.City == nil && l.Province == nil &&
		l.Price == nil && l.RentPrice == nil && l.Negotiable == nil &&
		l.LandArea == nil && l.BuildingArea == nil && l.Dimensions == nil &&
		l.Bedrooms == nil && l.Bathrooms == nil && l.Floors == nil &&
		l.Carports == nil && l.Garages == nil && l.YearBuilt == nil &&
		l.Electricity == nil && l.Orientation == nil && l.WaterType == nil &&
		l.Furnished == nil && l.RowRoad == nil && l.PhoneLineCount == nil &&
		l.CertificateType == nil && l.KPR == nil && l.IMB == nil && l.Blueprint == nil &&
		len(l.Facilities) == 0 &&
		l.Description == nil && l.ContactName == nil && l.ContactPhone == nil &&
		l.ContactWhatsapp == nil && l.PropertyURL == nil && l.AgentURL == nil &&
		l.VideoReviewURL == nil
}

// Merge copies every field set in patch onto l. Unset fields in patch leave
// the current value untouched.
func (l *ExtractedListing) Merge(patch ExtractedListing) {
	mergePtr(&l.PropertyType, patch.PropertyType)
	mergePtr(&l.TransactionType, patch.TransactionType)
	mergePtr(&l.Condition, patch.Condition)
	mergePtr(&l.Address, patch.Address)
	mergePtr(&l.District, patch.District)
	mergePtr(&l.City, patch.City)
	mergePtr(&l.Province, patch.Province)
	mergePtr(&l.Price, patch.Price)
	mergePtr(&l.RentPrice, patch.RentPrice)
	mergePtr(&l.Negotiable, patch.Negotiable)
	mergePtr(&l.LandArea, patch.LandArea)
	mergePtr(&l.BuildingArea, patch.BuildingArea)
	mergePtr(&l.Dimensions, patch.Dimensions)
	mergePtr(&l.Bedrooms, patch.Bedrooms)
	mergePtr(&l.Bathrooms, patch.Bathrooms)
	mergePtr(&l.Floors, patch.Floors)
	mergePtr(&l.Carports, patch.Carports)
	mergePtr(&l.Garages, patch.Garages)
	mergePtr(&l.YearBuilt, patch.YearBuilt)
	mergePtr(&l.Electricity, patch.Electricity)
	mergePtr(&l.Orientation, patch.Orientation)
	mergePtr(&l.WaterType, patch.WaterType)
	mergePtr(&l.Furnished, patch.Furnished)
	mergePtr(&l.RowRoad, patch.RowRoad)
	mergePtr(&l.PhoneLineCount, patch.PhoneLineCount)
	mergePtr(&l.CertificateType, patch.CertificateType)
	mergePtr(&l.KPR, patch.KPR)
	mergePtr(&l.IMB, patch.IMB)
	mergePtr(&l.Blueprint, patch.Blueprint)
	if patch.Facilities != nil {
		l.Facilities = append(JSONArray(nil), patch.Facilities...)
	}
	mergePtr(&l.Description, patch.Description)
	mergePtr(&l.ContactName, patch.ContactName)
	mergePtr(&l.ContactPhone, patch.ContactPhone)
	mergePtr(&l.ContactWhatsapp, patch.ContactWhatsapp)
	mergePtr(&l.PropertyURL, patch.PropertyURL)
	mergePtr(&l.AgentURL, patch.AgentURL)
	mergePtr(&l.VideoReviewURL, patch.VideoReviewURL)
}

func mergePtr[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface. The JSON is returned as a
// string so lib/pq does not send it as bytea.
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("JSONArray: unsupported scan type %T", value)
	}
}
