package service

import (
	"regexp"
	"strings"

	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/utils"
)

// Fixed priority: the first matching keyword wins.
var propertyTypeKeywords = []struct {
	re  *regexp.Regexp
	typ string
}{
	{regexp.MustCompile(`\brumah\b`), model.PropertyTypeRumah},
	{regexp.MustCompile(`\b(?:apartemen|apartment)\b`), model.PropertyTypeApartemen},
	{regexp.MustCompile(`\b(?:tanah|kavling|kaveling)\b`), model.PropertyTypeTanah},
	{regexp.MustCompile(`\bruko\b`), model.PropertyTypeRuko},
	{regexp.MustCompile(`\b(?:villa|vila)\b`), model.PropertyTypeVilla},
}

var (
	rentKeywordRe = regexp.MustCompile(`\b(?:sewa|disewakan|disewa|rent|kontrak|dikontrakkan)\b`)
	saleKeywordRe = regexp.MustCompile(`\b(?:jual|dijual|beli)\b`)

	// "luas tanah" and "hak atas tanah" describe the plot of any property
	tanahQualifierRe = regexp.MustCompile(`(?:luas|atas|sertifikat)[ \t]+$`)
)

// FallbackExtract is the deterministic safety net used when the model path
// is unavailable or unusable. It only sets fields it has textual evidence
// for and never panics.
func FallbackExtract(text string) model.ExtractedListing {
	var l model.ExtractedListing
	lower := strings.ToLower(text)

	if t, ok := findPropertyType(lower); ok {
		l.PropertyType = &t
	}

	switch {
	case rentKeywordRe.MatchString(lower):
		l.TransactionType = ptr(model.TransactionSewa)
	case saleKeywordRe.MatchString(lower):
		l.TransactionType = ptr(model.TransactionJual)
	}

	if price, ok := utils.FindPrice(lower); ok {
		l.Price = &price
	}

	l.Bedrooms, l.Bathrooms = utils.FindRoomCounts(lower)
	l.LandArea, l.BuildingArea = utils.FindAreas(lower)

	if nego, found := utils.FindNegotiable(lower); found {
		l.Negotiable = &nego
	}
	if dims, ok := utils.FindDimensions(lower); ok {
		l.Dimensions = &dims
	}
	if cert, ok := utils.FindCertificate(lower); ok {
		l.CertificateType = &cert
	}
	if district, ok := utils.FindDistrict(lower); ok {
		l.District = &district
	}
	if city, ok := utils.FindCity(lower); ok {
		l.City = &city
	}

	urls := utils.FindURLs(text)
	if len(urls) > 0 {
		l.PropertyURL = &urls[0]
	}
	if len(urls) > 1 {
		l.AgentURL = &urls[1]
	}

	if phone, whatsapp, ok := utils.FindPhone(lower); ok {
		l.ContactPhone = ptr(phone)
		if whatsapp {
			l.ContactWhatsapp = ptr(phone)
		}
	}
	if watts, ok := utils.FindElectricity(lower); ok {
		l.Electricity = &watts
	}
	if dir, ok := utils.FindOrientation(lower); ok {
		l.Orientation = &dir
	}

	return l
}

func findPropertyType(lower string) (string, bool) {
	for _, kw := range propertyTypeKeywords {
		for _, m := range kw.re.FindAllStringIndex(lower, -1) {
			if kw.typ == model.PropertyTypeTanah && tanahQualifierRe.MatchString(lower[:m[0]]) {
				continue
			}
			return kw.typ, true
		}
	}
	return "", false
}

func ptr[T any](v T) *T {
	return &v
}
