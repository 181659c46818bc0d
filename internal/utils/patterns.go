package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fajarsembar01/home/internal/model"
)

// Rules shared by the fallback parser and mirrored in the extraction prompt.
// Every function expects lowercased input unless documented otherwise.

const (
	billion = 1_000_000_000
	million = 1_000_000

	// cueWindow bounds how far back (in bytes, same line) a price or area
	// cue may sit from the number it qualifies.
	cueWindow = 40
)

// CueKind classifies the nearest magnitude cue before a number.
type CueKind int

const (
	CueNone CueKind = iota
	CuePrice
	CueArea
)

var (
	priceCueRe = regexp.MustCompile(`\brp\.?|\b(?:harga|hrg|dijual|jual|disewakan|sewa|dilepas)\b`)
	areaCueRe  = regexp.MustCompile(`\b(?:lt|lb|luas|panjang|lebar|dimensi|ukuran)\b`)

	dimensionRe = regexp.MustCompile(`\b(\d+(?:[.,]\d+)?)[ \t]*[x×][ \t]*(\d+(?:[.,]\d+)?)\b`)

	priceToken = `(?:rp\.?[ \t]*)?\d+(?:[.,]\d+)*(?:[ \t]*(?:miliar|milyar|milyard|juta|jt|m)\b)?`
	priceSep   = `[ \t]*(?:>>|》|»|→)[ \t]*`
	priceChain = regexp.MustCompile(`\b` + priceToken + `(?:` + priceSep + priceToken + `)+`)
	chainElem  = regexp.MustCompile(`(\d+(?:[.,]\d+)*)(?:[ \t]*(miliar|milyar|milyard|juta|jt|m)\b)?`)

	billionsRe = regexp.MustCompile(`\b(\d+(?:[.,]\d+)*)[ \t]*(miliar|milyar|milyard|m)\b`)
	millionsRe = regexp.MustCompile(`\b(\d+(?:[.,]\d+)*)[ \t]*(?:juta|jt)\b`)
	rupiahRe   = regexp.MustCompile(`\brp\.?[ \t]*(\d+(?:[.,]\d+)*)`)

	groupedThousandsRe = regexp.MustCompile(`^\d{1,3}(?:[.,]\d{3})+$`)

	areaRe = regexp.MustCompile(`\b(lt|luas[ \t]+tanah|lb|luas[ \t]+bangunan)[ \t]*[:=\-.]?[ \t]*(\d+(?:[.,]\d+)?)[ \t]*(?:m²|(?:m2|meter|mtr|m)\b)`)

	roomNumberRe = regexp.MustCompile(`\d+(?:[ \t]*\+[ \t]*\d+)?`)
	areaTailRe   = regexp.MustCompile(`\b(?:lt|lb|luas(?:[ \t]+(?:tanah|bangunan))?|panjang|lebar)$`)
	wordRe       = regexp.MustCompile(`[a-z]+`)

	negoRe        = regexp.MustCompile(`\b(?:(tidak|tdk|gak|ga|no|non|tanpa|bukan)[ \t]+(?:bisa[ \t]+)?)?nego(?:tiable|siasi|siable)?\b`)
	certRe        = regexp.MustCompile(`\b(shm|shgb|hgb|ajb|girik)\b`)
	districtRe    = regexp.MustCompile(`\b(?:kecamatan|kec\.?)[ \t]+([a-z][a-z'\-]*(?:[ \t]+[a-z][a-z'\-]*)?)`)
	cityRe        = regexp.MustCompile(`\b(?:kota|kabupaten|kab\.?)[ \t]+([a-z][a-z'\-]*(?:[ \t]+[a-z][a-z'\-]*){0,2})`)
	urlRe         = regexp.MustCompile(`(?i)https?://[^\s<>"'()\[\]]+`)
	phoneRe       = regexp.MustCompile(`(?:\+62|62|0)8\d(?:[\-.]?\d){7,11}`)
	phoneSpacedRe = regexp.MustCompile(`(?:\+62[\-. ]?|62|0)8\d(?:[\-. ]?\d){7,11}`)
	whatsappRe    = regexp.MustCompile(`\b(?:wa|whatsapp|whatsap)\b`)
	wattRe        = regexp.MustCompile(`\b(?:listrik|pln|daya)[ \t:]*(\d{1,2}[.,]\d{3}|\d{3,5})[ \t]*(?:va|watt|w)?\b|\b(\d{1,2}[.,]\d{3}|\d{3,5})[ \t]*(?:va|watt)\b`)
	orientRe      = regexp.MustCompile(`\bhadap(?:an)?[ \t:]+(timur[ \t]+laut|barat[ \t]+laut|barat[ \t]+daya|tenggara|utara|selatan|timur|barat)\b`)
	multiSpace    = regexp.MustCompile(`[ \t]+`)
	placeStopRe   = regexp.MustCompile(`^(?:kota|kabupaten|kab|kecamatan|kec|jalan|jl|dekat|harga|hrg|dijual|jual|sewa|lt|lb|kt|km|shm|shgb|ajb|luas|dan|di|yang|provinsi|prov|rp)$`)
)

// ParseIndonesianNumber parses a number written with Indonesian separators.
// With preferDecimal a single separator is a decimal point ("1.650" is
// 1.65, as in "1.650M"). Otherwise groups of three digits are thousands
// ("1.300.000.000", "1.500").
func ParseIndonesianNumber(s string, preferDecimal bool) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	seps := strings.Count(s, ".") + strings.Count(s, ",")
	var clean string
	switch {
	case seps == 0:
		clean = s
	case seps == 1 && preferDecimal:
		clean = strings.Replace(s, ",", ".", 1)
	case groupedThousandsRe.MatchString(s):
		clean = stripSeparators(s)
	default:
		last := strings.LastIndexAny(s, ".,")
		clean = stripSeparators(s[:last]) + "." + s[last+1:]
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// CueBefore returns the kind of the nearest price or area cue that precedes
// pos on the same line.
func CueBefore(lower string, pos int) CueKind {
	start := pos - cueWindow
	if start < 0 {
		start = 0
	}
	if nl := strings.LastIndexByte(lower[start:pos], '\n'); nl >= 0 {
		start += nl + 1
	}
	window := lower[start:pos]

	best, kind := -1, CueNone
	for _, m := range priceCueRe.FindAllStringIndex(window, -1) {
		if m[0] > best {
			best, kind = m[0], CuePrice
		}
	}
	for _, m := range areaCueRe.FindAllStringIndex(window, -1) {
		if m[0] > best {
			best, kind = m[0], CueArea
		}
	}
	return kind
}

// dimensionSpans returns the byte ranges of every "<n> x <n>" token.
func dimensionSpans(lower string) [][]int {
	return dimensionRe.FindAllStringIndex(lower, -1)
}

func overlaps(spans [][]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}

func unitMultiplier(unit string) (mult float64, preferDecimal bool) {
	switch unit {
	case "miliar", "milyar", "milyard", "m":
		return billion, true
	case "juta", "jt":
		return million, false
	}
	return 1, false
}

func toRupiah(v, mult float64) int64 {
	return int64(math.Round(v * mult))
}

// FindPrice resolves the asking price in rupiah. A markdown chain such as
// "1.650m >> 1.350m >> 1.300" yields its last element; otherwise the first
// billions, millions or Rp literal match wins, in that order.
func FindPrice(lower string) (int64, bool) {
	dims := dimensionSpans(lower)

	if p, ok := findChainPrice(lower, dims); ok {
		return p, true
	}

	for _, m := range billionsRe.FindAllStringSubmatchIndex(lower, -1) {
		if overlaps(dims, m[0], m[1]) {
			continue
		}
		unit := lower[m[4]:m[5]]
		if unit == "m" && CueBefore(lower, m[0]) != CuePrice {
			continue
		}
		if v, ok := ParseIndonesianNumber(lower[m[2]:m[3]], true); ok && v > 0 {
			return toRupiah(v, billion), true
		}
	}

	for _, m := range millionsRe.FindAllStringSubmatchIndex(lower, -1) {
		if overlaps(dims, m[0], m[1]) {
			continue
		}
		if v, ok := ParseIndonesianNumber(lower[m[2]:m[3]], false); ok && v > 0 {
			return toRupiah(v, million), true
		}
	}

	for _, m := range rupiahRe.FindAllStringSubmatchIndex(lower, -1) {
		if v, ok := ParseIndonesianNumber(lower[m[2]:m[3]], false); ok && v > 0 {
			return toRupiah(v, 1), true
		}
	}

	return 0, false
}

// findChainPrice accepts a chain only when its last element carries a
// unit, directly or from an earlier element, or the chain has an Rp cue.
func findChainPrice(lower string, dims [][]int) (int64, bool) {
	for _, chain := range priceChain.FindAllStringIndex(lower, -1) {
		if overlaps(dims, chain[0], chain[1]) {
			continue
		}
		if CueBefore(lower, chain[0]) == CueArea {
			continue
		}

		text := lower[chain[0]:chain[1]]
		mult, preferDecimal := 1.0, false
		hasUnit := false
		var last int64
		ok := false
		for _, e := range chainElem.FindAllStringSubmatch(text, -1) {
			if e[2] != "" {
				mult, preferDecimal = unitMultiplier(e[2])
				hasUnit = true
			}
			v, parsed := ParseIndonesianNumber(e[1], preferDecimal)
			if !parsed || v == 0 {
				ok = false
				break
			}
			last, ok = toRupiah(v, mult), true
		}
		if ok && (hasUnit || strings.Contains(text, "rp")) {
			return last, true
		}
	}
	return 0, false
}

// FindDimensions returns the first "<w> x <h>" token, normalised to "W x H".
func FindDimensions(lower string) (string, bool) {
	m := dimensionRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	return m[1] + " x " + m[2], true
}

type roomCue struct {
	start, end int
	bath       bool
	bound      bool
	n          int
}

type roomToken struct {
	start, end int
	n          int
	bound      bool
}

// FindRoomCounts binds "<n>" and "<n>+<m>" tokens to an adjacent bedroom
// (kt, kamar tidur, bed) or bathroom (km, kamar mandi, bath) cue. Only the
// first integer of "<n>+<m>" is counted. A token glued to a following cue
// ("3kt") binds first; the rest follow whichever layout, "kt 3" or "3 kt",
// pairs more tokens, and the other layout fills the cues still free.
func FindRoomCounts(lower string) (bedrooms, bathrooms *int) {
	cues := roomCues(lower)
	if len(cues) == 0 {
		return nil, nil
	}
	toks := roomTokens(lower, cues)

	for _, t := range toks {
		if c := cueAdjacentAfter(lower, cues, t.end); c != nil && c.start == t.end {
			bindRoom(t, c)
		}
	}

	before := func(t *roomToken) *roomCue { return cueAdjacentBefore(lower, cues, t.start) }
	after := func(t *roomToken) *roomCue { return cueAdjacentAfter(lower, cues, t.end) }
	first, second := before, after
	if countAdjacent(toks, after) > countAdjacent(toks, before) {
		first, second = after, before
	}
	for _, look := range []func(*roomToken) *roomCue{first, second} {
		for _, t := range toks {
			if t.bound {
				continue
			}
			if c := look(t); c != nil {
				bindRoom(t, c)
			}
		}
	}

	for _, c := range cues {
		if !c.bound {
			continue
		}
		n := c.n
		if c.bath {
			if bathrooms == nil {
				bathrooms = &n
			}
		} else if bedrooms == nil {
			bedrooms = &n
		}
	}
	return bedrooms, bathrooms
}

func bindRoom(t *roomToken, c *roomCue) {
	t.bound, c.bound, c.n = true, true, t.n
}

func countAdjacent(toks []*roomToken, look func(*roomToken) *roomCue) int {
	n := 0
	for _, t := range toks {
		if !t.bound && look(t) != nil {
			n++
		}
	}
	return n
}

// roomTokens returns the numbers that may be room counts. Unit exponents
// ("m2") and values of an area cue ("lt 72") are skipped.
func roomTokens(lower string, cues []*roomCue) []*roomToken {
	var toks []*roomToken
	for _, m := range roomNumberRe.FindAllStringIndex(lower, -1) {
		start, end := m[0], m[1]
		if !isStandaloneNumber(lower, start, end) {
			continue
		}
		if start > 0 && isLetter(lower[start-1]) && !cueEndsAt(cues, start) {
			continue
		}
		if areaTailRe.MatchString(strings.TrimRight(lower[:start], " \t:=-.")) {
			continue
		}
		n, err := strconv.Atoi(leadingDigits(lower[start:end]))
		if err != nil || n > 50 {
			continue
		}
		toks = append(toks, &roomToken{start: start, end: end, n: n})
	}
	return toks
}

func cueEndsAt(cues []*roomCue, pos int) bool {
	for _, c := range cues {
		if c.end == pos {
			return true
		}
	}
	return false
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

func roomCues(lower string) []*roomCue {
	words := wordRe.FindAllStringIndex(lower, -1)
	var cues []*roomCue
	for i := 0; i < len(words); i++ {
		w := lower[words[i][0]:words[i][1]]
		next := ""
		if i+1 < len(words) && onlyBlank(lower[words[i][1]:words[i+1][0]]) {
			next = lower[words[i+1][0]:words[i+1][1]]
		}

		cue := &roomCue{start: words[i][0], end: words[i][1]}
		switch w {
		case "kt", "bedroom", "bedrooms", "bed", "beds":
		case "km", "bathroom", "bathrooms", "bath", "baths":
			cue.bath = true
			if w == "km" && (next == "ke" || next == "dari" || next == "menuju" || next == "to" || next == "from") {
				continue
			}
		case "kamar":
			if next != "tidur" && next != "mandi" {
				continue
			}
			cue.bath = next == "mandi"
			cue.end = words[i+1][1]
			i++
		default:
			continue
		}

		// maid rooms are not part of the headline count
		if j := indexAfter(words, cue.end); j >= 0 && onlyBlank(lower[cue.end:words[j][0]]) {
			if nw := lower[words[j][0]:words[j][1]]; nw == "pembantu" || nw == "art" {
				continue
			}
		}
		cues = append(cues, cue)
	}
	return cues
}

func indexAfter(words [][]int, pos int) int {
	for j, w := range words {
		if w[0] >= pos {
			return j
		}
	}
	return -1
}

func cueAdjacentBefore(lower string, cues []*roomCue, pos int) *roomCue {
	for i := len(cues) - 1; i >= 0; i-- {
		c := cues[i]
		if c.end > pos {
			continue
		}
		if !c.bound && strings.Trim(lower[c.end:pos], " \t:=-") == "" {
			return c
		}
		return nil
	}
	return nil
}

func cueAdjacentAfter(lower string, cues []*roomCue, pos int) *roomCue {
	for _, c := range cues {
		if c.start < pos {
			continue
		}
		if !c.bound && onlyBlank(lower[pos:c.start]) {
			return c
		}
		return nil
	}
	return nil
}

func isStandaloneNumber(s string, start, end int) bool {
	if start > 0 {
		if p := s[start-1]; p == '.' || p == ',' || (p >= '0' && p <= '9') {
			return false
		}
	}
	if end < len(s) {
		if n := s[end]; n == '.' || n == ',' || n == 'x' {
			return end+1 >= len(s) || s[end+1] < '0' || s[end+1] > '9'
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

func onlyBlank(s string) bool {
	return strings.Trim(s, " \t") == ""
}

// FindAreas returns land (LT / luas tanah) and building (LB / luas bangunan)
// areas. A number counts only with an explicit cue and a meter unit.
func FindAreas(lower string) (land, building *int) {
	for _, m := range areaRe.FindAllStringSubmatch(lower, -1) {
		v, ok := ParseIndonesianNumber(m[2], false)
		if !ok || v <= 0 {
			continue
		}
		n := int(v)
		if strings.HasPrefix(m[1], "lt") || strings.HasSuffix(m[1], "tanah") {
			if land == nil {
				land = &n
			}
		} else if building == nil {
			building = &n
		}
	}
	return land, building
}

// FindNegotiable reports explicit negotiation evidence. "nego" sets true,
// a negated form ("tidak nego", "no nego") sets false.
func FindNegotiable(lower string) (negotiable bool, found bool) {
	m := negoRe.FindStringSubmatch(lower)
	if m == nil {
		return false, false
	}
	return m[1] == "", true
}

// FindCertificate maps the first certificate token to its canonical name.
func FindCertificate(lower string) (string, bool) {
	m := certRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	return NormalizeCertificate(m[1])
}

// FindDistrict returns the proper noun following "kecamatan" / "kec.".
func FindDistrict(lower string) (string, bool) {
	return findPlace(districtRe, lower)
}

// FindCity returns the proper noun following "kota" / "kabupaten".
func FindCity(lower string) (string, bool) {
	return findPlace(cityRe, lower)
}

func findPlace(re *regexp.Regexp, lower string) (string, bool) {
	for _, m := range re.FindAllStringSubmatch(lower, -1) {
		var words []string
		for _, w := range strings.Fields(m[1]) {
			if placeStopRe.MatchString(w) {
				break
			}
			words = append(words, w)
		}
		if len(words) > 0 {
			return TitleCase(strings.Join(words, " ")), true
		}
	}
	return "", false
}

// FindURLs returns distinct http(s) URLs in order of appearance. It expects
// the raw, non-lowercased text.
func FindURLs(text string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?*_")
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// FindPhone returns the first Indonesian mobile number, digits only, and
// whether a WhatsApp cue precedes it on the same line.
func FindPhone(lower string) (phone string, whatsapp bool, ok bool) {
	if phone, whatsapp, ok = findPhone(phoneRe, lower); ok {
		return phone, whatsapp, ok
	}
	return findPhone(phoneSpacedRe, lower)
}

func findPhone(re *regexp.Regexp, lower string) (string, bool, bool) {
	for _, m := range re.FindAllStringIndex(lower, -1) {
		if m[0] > 0 && isDigit(lower[m[0]-1]) || m[1] < len(lower) && isDigit(lower[m[1]]) {
			continue
		}
		raw := lower[m[0]:m[1]]
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, raw)
		if len(digits) < 10 || len(digits) > 14 {
			continue
		}
		if strings.HasPrefix(raw, "+") {
			digits = "+" + digits
		}

		lineStart := strings.LastIndexByte(lower[:m[0]], '\n') + 1
		return digits, whatsappRe.MatchString(lower[lineStart:m[0]]), true
	}
	return "", false, false
}

// FindElectricity returns the electrical capacity in watts.
func FindElectricity(lower string) (int, bool) {
	m := wattRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	v, ok := ParseIndonesianNumber(raw, false)
	if !ok || v <= 0 {
		return 0, false
	}
	return int(v), true
}

// FindOrientation returns the facing direction after "hadap".
func FindOrientation(lower string) (string, bool) {
	m := orientRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	return TitleCase(multiSpace.ReplaceAllString(m[1], " ")), true
}

// NormalizePropertyType maps free text onto the property type enum.
// Unrecognised non-empty values become "lainnya".
func NormalizePropertyType(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return "", false
	case "rumah", "house", "rumah tinggal", "landed", "perumahan":
		return model.PropertyTypeRumah, true
	case "apartemen", "apartment", "apartement", "apartemen/kondominium", "kondominium", "condo":
		return model.PropertyTypeApartemen, true
	case "tanah", "kavling", "kaveling", "lahan", "land":
		return model.PropertyTypeTanah, true
	case "ruko", "rukan", "shophouse":
		return model.PropertyTypeRuko, true
	case "villa", "vila":
		return model.PropertyTypeVilla, true
	case "kost", "kos", "kosan", "kost-kostan", "rumah kost", "rumah kos":
		return model.PropertyTypeKost, true
	case "gudang", "warehouse":
		return model.PropertyTypeGudang, true
	case "kantor", "office", "gedung kantor":
		return model.PropertyTypeKantor, true
	}
	return model.PropertyTypeLainnya, true
}

// NormalizeTransactionType maps free text onto jual, sewa or "jual sewa".
// Anything else is rejected.
func NormalizeTransactionType(s string) (string, bool) {
	v := multiSpace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
	switch v {
	case "jual", "dijual", "sale", "for sale", "beli":
		return model.TransactionJual, true
	case "sewa", "disewakan", "rent", "for rent", "kontrak", "dikontrakkan":
		return model.TransactionSewa, true
	case "jual sewa", "jual/sewa", "jual & sewa", "jual dan sewa", "jualsewa", "jual-sewa", "sewa jual":
		return model.TransactionJualSewa, true
	}
	return "", false
}

// NormalizeCertificate maps a certificate label onto SHM, SHGB, AJB, Girik
// or Lainnya.
func NormalizeCertificate(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return "", false
	case v == "shm" || strings.Contains(v, "hak milik"):
		return model.CertificateSHM, true
	case v == "shgb" || v == "hgb" || strings.Contains(v, "guna bangunan"):
		return model.CertificateSHGB, true
	case v == "ajb":
		return model.CertificateAJB, true
	case v == "girik" || strings.HasPrefix(v, "petok") || v == "letter c":
		return model.CertificateGirik, true
	}
	return model.CertificateLainnya, true
}

// TitleCase capitalises each word ("rungkut menanggal" -> "Rungkut Menanggal").
func TitleCase(s string) string {
	return cases.Title(language.Indonesian).String(s)
}
