package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/utils"
)

// LLMExtractor turns free text into typed records with one model call.
// It does not retry and does not fall back; see ListingExtractor.
type LLMExtractor struct {
	client      AIClient
	temperature float64
	logger      *slog.Logger
}

// NewLLMExtractor wraps an AI client. A non-positive temperature selects 0.1.
func NewLLMExtractor(client AIClient, temperature float64, logger *slog.Logger) *LLMExtractor {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMExtractor{
		client:      client,
		temperature: temperature,
		logger:      logger,
	}
}

// Enabled reports whether a configured client is available.
func (e *LLMExtractor) Enabled() bool {
	return e != nil && e.client != nil && e.client.IsEnabled()
}

// Provider returns the client name, for logs and errors.
func (e *LLMExtractor) Provider() string {
	if e == nil || e.client == nil {
		return ""
	}
	return e.client.Name()
}

// Extract asks the model for a listing. Invocation errors are returned
// unchanged. Output without a parsable JSON object yields an empty listing
// and a nil error.
func (e *LLMExtractor) Extract(ctx context.Context, text string, history []string) (model.ExtractedListing, error) {
	prompt, err := BuildExtractionPrompt(text, history)
	if err != nil {
		return model.ExtractedListing{}, err
	}

	obj, err := e.generateObject(ctx, "listing", prompt)
	if err != nil || obj == nil {
		return model.ExtractedListing{}, err
	}

	listing := coerceListing(obj)
	e.logger.Info("model extraction finished",
		"provider", e.client.Name(),
		"fields", len(obj),
		"empty", listing.IsEmpty())
	return listing, nil
}

// ExtractFilter asks the model for a search filter, with the same error
// contract as Extract.
func (e *LLMExtractor) ExtractFilter(ctx context.Context, query string) (model.SearchFilter, error) {
	prompt, err := BuildSearchPrompt(query)
	if err != nil {
		return model.SearchFilter{}, err
	}

	obj, err := e.generateObject(ctx, "search", prompt)
	if err != nil || obj == nil {
		return model.SearchFilter{}, err
	}

	filter := coerceFilter(obj)
	if err := validateFilter(filter); err != nil {
		e.logger.Warn("model returned an inconsistent filter", "provider", e.client.Name(), "error", err)
		return model.SearchFilter{}, nil
	}
	return filter, nil
}

// Ask sends a free-form question and returns the model's answer with
// surrounding whitespace removed. Invocation errors are returned unchanged.
func (e *LLMExtractor) Ask(ctx context.Context, question, contextText string) (string, error) {
	prompt, err := BuildAskPrompt(question, contextText)
	if err != nil {
		return "", err
	}

	start := time.Now()
	e.logger.Debug("calling model", "provider", e.client.Name(), "kind", "ask")
	text, err := e.client.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		Temperature: e.temperature,
	})
	if err != nil {
		return "", err
	}
	e.logger.Info("model answered question",
		"provider", e.client.Name(),
		"chars", len(text),
		"took_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(text), nil
}

// generateObject returns (nil, nil) when the answer holds no usable object.
func (e *LLMExtractor) generateObject(ctx context.Context, kind, prompt string) (map[string]any, error) {
	start := time.Now()
	e.logger.Debug("calling model", "provider", e.client.Name(), "kind", kind)

	text, err := e.client.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		Temperature: e.temperature,
	})
	if err != nil {
		return nil, err
	}

	obj, err := utils.ParseJSONObject(text)
	if err != nil {
		e.logger.Warn("could not parse JSON from model output",
			"provider", e.client.Name(),
			"kind", kind,
			"error", err,
			"took_ms", time.Since(start).Milliseconds())
		return nil, nil
	}
	return obj, nil
}

// coerceListing copies recognised keys into a listing. Values of an
// unexpected type are dropped.
func coerceListing(obj map[string]any) model.ExtractedListing {
	var l model.ExtractedListing

	if s := asString(obj["property_type"]); s != nil {
		if v, ok := utils.NormalizePropertyType(*s); ok {
			l.PropertyType = &v
		}
	}
	if s := asString(obj["transaction_type"]); s != nil {
		if v, ok := utils.NormalizeTransactionType(*s); ok {
			l.TransactionType = &v
		}
	}
	if s := asString(obj["certificate_type"]); s != nil {
		if v, ok := utils.NormalizeCertificate(*s); ok {
			l.CertificateType = &v
		}
	}

	l.Condition = asString(obj["condition"])
	l.Address = asString(obj["address"])
	l.District = asString(obj["district"])
	l.City = asString(obj["city"])
	l.Province = asString(obj["province"])

	l.Price = asInt64(obj["price"])
	l.RentPrice = asInt64(obj["rent_price"])
	l.Negotiable = asBool(obj["negotiable"])

	l.LandArea = asInt(obj["land_area"])
	l.BuildingArea = asInt(obj["building_area"])
	l.Dimensions = asString(obj["dimensions"])

	l.Bedrooms = asInt(obj["bedrooms"])
	l.Bathrooms = asInt(obj["bathrooms"])
	l.Floors = asFloat(obj["floors"])
	l.Carports = asInt(obj["carports"])
	l.Garages = asInt(obj["garages"])
	l.YearBuilt = asInt(obj["year_built"])
	l.Electricity = asInt(obj["electricity"])
	l.Orientation = asString(obj["orientation"])
	l.WaterType = asString(obj["water_type"])
	l.Furnished = asString(obj["furnished"])
	l.RowRoad = asString(obj["row_road"])
	l.PhoneLineCount = asInt(obj["phone_line_count"])

	l.KPR = asBool(obj["kpr"])
	l.IMB = asBool(obj["imb"])
	l.Blueprint = asBool(obj["blueprint"])

	if facilities := asStringList(obj["facilities"]); facilities != nil {
		l.Facilities = model.JSONArray(facilities)
	}

	l.Description = asString(obj["description"])
	l.ContactName = asString(obj["contact_name"])
	l.ContactPhone = asPhone(obj["contact_phone"])
	l.ContactWhatsapp = asPhone(obj["contact_whatsapp"])
	l.PropertyURL = asURL(obj["property_url"])
	l.AgentURL = asURL(obj["agent_url"])
	l.VideoReviewURL = asURL(obj["video_review_url"])

	return l
}

func coerceFilter(obj map[string]any) model.SearchFilter {
	var f model.SearchFilter

	if s := asString(obj["property_type"]); s != nil {
		if v, ok := utils.NormalizePropertyType(*s); ok {
			f.PropertyType = &v
		}
	}
	f.LocationKeyword = asString(obj["location_keyword"])
	f.MinPrice = asInt64(obj["min_price"])
	f.MaxPrice = asInt64(obj["max_price"])
	f.MinBedrooms = asInt(obj["min_bedrooms"])
	f.MinLandArea = asInt(obj["min_land_area"])
	f.MustHaveFacilities = asStringList(obj["must_have_facilities"])

	return f
}

// validateFilter validates the AI response using business rules
func validateFilter(f model.SearchFilter) error {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("min_price (%d) cannot be greater than max_price (%d)", *f.MinPrice, *f.MaxPrice)
	}
	if f.MinBedrooms != nil && *f.MinBedrooms > 50 {
		return fmt.Errorf("min_bedrooms must be at most 50")
	}
	return nil
}

// asString accepts non-blank strings. "null" and "-" count as absent.
func asString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none", "-", "n/a", "tidak ada":
		return nil
	}
	return &s
}

// asInt64 accepts non-negative JSON numbers and numeric strings.
func asInt64(v any) *int64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, ok := utils.ParseIndonesianNumber(x, false)
		if !ok {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64/2 {
		return nil
	}
	n := int64(math.Round(f))
	return &n
}

func asInt(v any) *int {
	n := asInt64(v)
	if n == nil || *n > math.MaxInt32 {
		return nil
	}
	i := int(*n)
	return &i
}

func asFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, ok := utils.ParseIndonesianNumber(x, true)
		if !ok {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func asBool(v any) *bool {
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "ya", "yes", "bisa", "ada":
			b = true
		case "false", "tidak", "no", "tidak bisa", "tidak ada":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

// asPhone accepts strings or bare numbers and keeps digits and a leading +.
func asPhone(v any) *string {
	var raw string
	switch x := v.(type) {
	case string:
		raw = strings.TrimSpace(x)
	case float64:
		if x <= 0 || x != math.Trunc(x) {
			return nil
		}
		raw = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return nil
	}

	var sb strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			sb.WriteRune(r)
		}
	}
	phone := sb.String()
	if len(strings.TrimPrefix(phone, "+")) < 6 {
		return nil
	}
	return &phone
}

func asURL(v any) *string {
	s := asString(v)
	if s == nil {
		return nil
	}
	lower := strings.ToLower(*s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return nil
	}
	return s
}

// asStringList accepts a JSON array of strings, trimming entries and
// dropping blanks. Non-string elements are skipped.
func asStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s := asString(item); s != nil {
			out = append(out, *s)
		}
	}
	return out
}
