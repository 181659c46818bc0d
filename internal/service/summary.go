package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fajarsembar01/home/internal/model"
)

// GenerateSummary renders a listing as a short, chat-friendly Indonesian
// text block. Sections without data are left out.
func GenerateSummary(l model.ExtractedListing) string {
	parts := []string{"✨ *Ringkasan Properti:*"}

	propType := "Properti"
	if l.PropertyType != nil {
		propType = capitalize(*l.PropertyType)
	}
	header := fmt.Sprintf("🏠 *%s*", propType)
	if l.Condition != nil {
		header += fmt.Sprintf(" (%s)", *l.Condition)
	}
	header += " - " + capitalize(deref(l.TransactionType))
	parts = append(parts, header)

	var location []string
	for _, s := range []*string{l.Address, l.District, l.City} {
		if s != nil {
			location = append(location, *s)
		}
	}
	if len(location) > 0 {
		parts = append(parts, "📍 "+strings.Join(location, ", "))
	}

	var price string
	if l.Price != nil && *l.Price > 0 {
		price = fmt.Sprintf("💰 *Jual: %s*", FormatRupiah(*l.Price))
	}
	if l.RentPrice != nil && *l.RentPrice > 0 {
		if price != "" {
			price += " | "
		}
		price += fmt.Sprintf("🪙 *Sewa: %s*", FormatRupiah(*l.RentPrice))
	}
	if l.Negotiable != nil && *l.Negotiable {
		price += " (Nego)"
	}
	if price != "" {
		parts = append(parts, price)
	}

	parts = append(parts, "")

	var specs []string
	if positive(l.LandArea) {
		specs = append(specs, fmt.Sprintf("📐 LT: %dm²", *l.LandArea))
	}
	if positive(l.BuildingArea) {
		specs = append(specs, fmt.Sprintf("🏗️ LB: %dm²", *l.BuildingArea))
	}
	if positive(l.Bedrooms) {
		specs = append(specs, fmt.Sprintf("🛏️ KT: %d", *l.Bedrooms))
	}
	if positive(l.Bathrooms) {
		specs = append(specs, fmt.Sprintf("🚿 KM: %d", *l.Bathrooms))
	}
	if l.Floors != nil && *l.Floors > 0 {
		specs = append(specs, "🏢 Lantai: "+strconv.FormatFloat(*l.Floors, 'f', -1, 64))
	}
	if len(specs) > 0 {
		parts = append(parts, strings.Join(specs, " | "))
	}

	var details []string
	if l.Dimensions != nil {
		details = append(details, "📏 Dimensi: "+*l.Dimensions)
	}
	if l.Orientation != nil {
		details = append(details, "🧭 Hadap: "+*l.Orientation)
	}
	if positive(l.Electricity) {
		details = append(details, fmt.Sprintf("⚡ Listrik: %d Watt", *l.Electricity))
	}
	if l.WaterType != nil {
		details = append(details, "💧 Air: "+*l.WaterType)
	}
	if l.Furnished != nil {
		details = append(details, "🪑 Furnish: "+*l.Furnished)
	}
	if l.RowRoad != nil {
		details = append(details, "🛣️ Jalan: "+*l.RowRoad)
	}
	var parking []string
	if positive(l.Carports) {
		parking = append(parking, fmt.Sprintf("%d Carport", *l.Carports))
	}
	if positive(l.Garages) {
		parking = append(parking, fmt.Sprintf("%d Garasi", *l.Garages))
	}
	if len(parking) > 0 {
		details = append(details, "🚗 "+strings.Join(parking, " + "))
	}
	if len(details) > 0 {
		parts = append(parts, "• "+strings.Join(details, "\n• "))
	}

	var legal []string
	if l.CertificateType != nil {
		legal = append(legal, *l.CertificateType)
	}
	if isTrue(l.IMB) {
		legal = append(legal, "IMB")
	}
	if isTrue(l.Blueprint) {
		legal = append(legal, "Blueprint")
	}
	if isTrue(l.KPR) {
		legal = append(legal, "Bisa KPR")
	}
	if len(legal) > 0 {
		parts = append(parts, "\n📜 *Legalitas:* "+strings.Join(legal, ", "))
	}

	if len(l.Facilities) > 0 {
		parts = append(parts, "✨ *Fasilitas:* "+strings.Join(l.Facilities, ", "))
	}

	var contact []string
	if l.ContactName != nil {
		contact = append(contact, *l.ContactName)
	}
	if l.ContactPhone != nil {
		contact = append(contact, *l.ContactPhone)
	}
	if len(contact) > 0 {
		parts = append(parts, "\n📞 *Kontak:* "+strings.Join(contact, " - "))
	}

	return strings.Join(parts, "\n")
}

// FormatRupiah renders an amount as "Rp 1.3 Miliar", "Rp 850 Juta" or
// "Rp 750.000".
func FormatRupiah(amount int64) string {
	switch {
	case amount >= 1_000_000_000:
		return fmt.Sprintf("Rp %.1f Miliar", float64(amount)/1_000_000_000)
	case amount >= 1_000_000:
		return fmt.Sprintf("Rp %.0f Juta", float64(amount)/1_000_000)
	}
	return "Rp " + groupThousands(amount)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func positive(n *int) bool {
	return n != nil && *n > 0
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
