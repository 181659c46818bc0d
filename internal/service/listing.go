package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fajarsembar01/home/internal/config"
	"github.com/fajarsembar01/home/internal/fetcher"
	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/utils"
)

// ErrNothingExtracted is returned when neither the model nor the fallback
// parser found a single field in the input.
var ErrNothingExtracted = errors.New("no listing information found in text")

// ErrImportDisabled is returned by Import when no fetcher is configured
var ErrImportDisabled = errors.New("listing import is disabled")

// Search modes reported in SearchResponse.Mode
const (
	SearchModeFilter  = "filter"
	SearchModeKeyword = "keyword"
)

// ListingRepository is the storage used by ListingService
type ListingRepository interface {
	CreateProperty(ctx context.Context, p *model.Property) (*model.Property, error)
	GetProperty(ctx context.Context, userID, id int64) (*model.Property, error)
	UpdateProperty(ctx context.Context, p *model.Property) (*model.Property, error)
	DeleteProperty(ctx context.Context, userID, id int64) error
	ListProperties(ctx context.Context, userID int64, limit, offset int) ([]model.Property, int, error)
	SearchAdvanced(ctx context.Context, userID int64, filter model.SearchFilter, limit, offset int) ([]model.Property, int, error)
	SearchKeyword(ctx context.Context, userID int64, keyword string, limit, offset int) ([]model.Property, int, error)
	ListByLocation(ctx context.Context, userID int64, f model.LocationFilter, limit, offset int) ([]model.Property, int, error)
	ListCities(ctx context.Context, userID int64) ([]string, error)
	ListDistricts(ctx context.Context, userID int64, city string) ([]string, error)
	GetStats(ctx context.Context, userID int64) (*model.Stats, error)
	AddImage(ctx context.Context, img *model.PropertyImage) (*model.PropertyImage, error)
	ListImages(ctx context.Context, propertyID int64) ([]model.PropertyImage, error)
}

// PageFetcher downloads a listing page for import
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// ListingService handles collecting, browsing and searching listings
type ListingService struct {
	repo      ListingRepository
	extractor *ListingExtractor
	parser    *QueryParser
	fetcher   PageFetcher
	ranker    *Ranker
	limits    config.SearchConfig
	logger    *slog.Logger
}

// NewListingService creates a new listing service. pageFetcher may be nil, in
// which case Import is unavailable.
func NewListingService(
	repo ListingRepository,
	extractor *ListingExtractor,
	parser *QueryParser,
	pageFetcher PageFetcher,
	ranker *Ranker,
	limits config.SearchConfig,
	logger *slog.Logger,
) *ListingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{
		repo:      repo,
		extractor: extractor,
		parser:    parser,
		fetcher:   pageFetcher,
		ranker:    ranker,
		limits:    limits,
		logger:    logger,
	}
}

// Extract runs extraction without storing anything
func (s *ListingService) Extract(ctx context.Context, req *model.ExtractRequest) (*model.ExtractResponse, error) {
	start := time.Now()

	listing, err := s.extractor.Extract(ctx, req.Text, req.History)
	if err != nil {
		return nil, err
	}

	return &model.ExtractResponse{
		Listing: listing,
		Summary: GenerateSummary(listing),
		Took:    time.Since(start).Milliseconds(),
	}, nil
}

// ParseQuery turns a natural-language query into a filter
func (s *ListingService) ParseQuery(ctx context.Context, query string) (model.SearchFilter, error) {
	return s.parser.Parse(ctx, query)
}

// Collect extracts a listing from text and stores it for the user
func (s *ListingService) Collect(ctx context.Context, userID int64, text string, history []string) (*model.CollectResponse, error) {
	listing, err := s.extractor.Extract(ctx, text, history)
	if err != nil {
		return nil, err
	}
	if listing.IsEmpty() {
		return nil, ErrNothingExtracted
	}
	return s.store(ctx, userID, listing)
}

// Import fetches a listing page and collects it. The page URL becomes the
// property URL unless the page named one itself.
func (s *ListingService) Import(ctx context.Context, userID int64, rawURL string) (*model.CollectResponse, error) {
	if s.fetcher == nil {
		return nil, ErrImportDisabled
	}

	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("fetched listing page", "url", page.URL, "status", page.Status, "chars", len(page.Text))

	listing, err := s.extractor.Extract(ctx, page.Content(), nil)
	if err != nil {
		return nil, err
	}
	if listing.IsEmpty() {
		return nil, ErrNothingExtracted
	}
	if listing.PropertyURL == nil {
		listing.PropertyURL = ptr(page.URL)
	}
	return s.store(ctx, userID, listing)
}

func (s *ListingService) store(ctx context.Context, userID int64, listing model.ExtractedListing) (*model.CollectResponse, error) {
	p := &model.Property{UserID: userID, ExtractedListing: listing}
	applyRequiredDefaults(&p.ExtractedListing)

	created, err := s.repo.CreateProperty(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("property stored", "user_id", userID, "property_id", created.ID, "type", deref(created.PropertyType))

	return &model.CollectResponse{
		Property: *created,
		Summary:  GenerateSummary(created.ExtractedListing),
	}, nil
}

// applyRequiredDefaults fills the two columns stored as NOT NULL.
func applyRequiredDefaults(l *model.ExtractedListing) {
	if l.PropertyType == nil {
		l.PropertyType = ptr(model.PropertyTypeLainnya)
	}
	if l.TransactionType == nil {
		l.TransactionType = ptr(model.TransactionJual)
	}
}

// List returns one page of the user's listings, newest first
func (s *ListingService) List(ctx context.Context, userID int64, page, limit int) (model.Page[model.Property], error) {
	page, limit = s.clampPage(page, limit)

	items, total, err := s.repo.ListProperties(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return model.Page[model.Property]{}, err
	}
	return model.NewPage(items, total, page, limit), nil
}

// Get returns one owned listing
func (s *ListingService) Get(ctx context.Context, userID, id int64) (*model.Property, error) {
	return s.repo.GetProperty(ctx, userID, id)
}

// Update merges patch into an owned listing. Enum fields are normalized
// again so a patch cannot store free text in them.
func (s *ListingService) Update(ctx context.Context, userID, id int64, patch model.ExtractedListing) (*model.Property, error) {
	current, err := s.repo.GetProperty(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	current.Merge(patch)
	if err := normalizeEnums(&current.ExtractedListing); err != nil {
		return nil, err
	}
	applyRequiredDefaults(&current.ExtractedListing)

	return s.repo.UpdateProperty(ctx, current)
}

// ErrInvalidField is returned for patch values outside an enum
var ErrInvalidField = errors.New("invalid field value")

func normalizeEnums(l *model.ExtractedListing) error {
	if l.PropertyType != nil {
		v, _ := utils.NormalizePropertyType(*l.PropertyType)
		if v == "" {
			v = model.PropertyTypeLainnya
		}
		l.PropertyType = &v
	}
	if l.TransactionType != nil {
		v, ok := utils.NormalizeTransactionType(*l.TransactionType)
		if !ok {
			return fmt.Errorf("%w: transaction_type %q", ErrInvalidField, *l.TransactionType)
		}
		l.TransactionType = &v
	}
	if l.CertificateType != nil {
		if v, ok := utils.NormalizeCertificate(*l.CertificateType); ok {
			l.CertificateType = &v
		} else {
			l.CertificateType = nil
		}
	}
	return nil
}

// Delete removes an owned listing
func (s *ListingService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteProperty(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("property deleted", "user_id", userID, "property_id", id)
	return nil
}

// Summary renders the human-readable summary of an owned listing
func (s *ListingService) Summary(ctx context.Context, userID, id int64) (*model.SummaryResponse, error) {
	p, err := s.repo.GetProperty(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &model.SummaryResponse{ID: p.ID, Summary: GenerateSummary(p.ExtractedListing)}, nil
}

// AddImage attaches an image to an owned listing
func (s *ListingService) AddImage(ctx context.Context, userID, id int64, req *model.ImageRequest) (*model.PropertyImage, error) {
	if _, err := s.repo.GetProperty(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repo.AddImage(ctx, &model.PropertyImage{
		PropertyID: id,
		FileID:     req.FileID,
		FilePath:   req.FilePath,
		Caption:    req.Caption,
		IsPrimary:  req.IsPrimary,
	})
}

// ListImages returns the images of an owned listing
func (s *ListingService) ListImages(ctx context.Context, userID, id int64) ([]model.PropertyImage, error) {
	if _, err := s.repo.GetProperty(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repo.ListImages(ctx, id)
}

// Search parses the query into a filter and runs a structured search. When
// the filter comes back empty the raw query is used as a keyword instead.
func (s *ListingService) Search(ctx context.Context, userID int64, req *model.SearchRequest) (*model.SearchResponse, error) {
	startTime := time.Now()
	page, limit := s.clampPage(req.Page, req.PageSize)
	offset := (page - 1) * limit

	filter, err := s.parser.Parse(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	var (
		properties []model.Property
		total      int
		mode       string
		textRanks  = map[int64]float64{}
	)
	if filter.IsEmpty() {
		mode = SearchModeKeyword
		properties, total, err = s.repo.SearchKeyword(ctx, userID, strings.TrimSpace(req.Query), limit, offset)
		for i, p := range properties {
			// storage order stands in for text relevance
			textRanks[p.ID] = 1.0 - (float64(i) / float64(len(properties)))
		}
	} else {
		mode = SearchModeFilter
		properties, total, err = s.repo.SearchAdvanced(ctx, userID, filter, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	results := s.ranker.RankResults(properties, textRanks, &filter)
	paged := model.NewPage(results, total, page, limit)

	took := time.Since(startTime).Milliseconds()
	s.logger.Info("search completed", "user_id", userID, "mode", mode, "total", total, "took_ms", took)

	return &model.SearchResponse{
		Results:    paged.Items,
		Total:      total,
		Page:       page,
		PageSize:   limit,
		TotalPages: paged.TotalPages,
		HasMore:    page < paged.TotalPages,
		Filter:     filter,
		Mode:       mode,
		Took:       took,
	}, nil
}

// ByLocation lists listings in a city/district and price band, cheapest first
func (s *ListingService) ByLocation(ctx context.Context, userID int64, f model.LocationFilter, page, limit int) (model.Page[model.Property], error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return model.Page[model.Property]{}, fmt.Errorf("%w: min_price exceeds max_price", ErrInvalidField)
	}
	page, limit = s.clampPage(page, limit)

	items, total, err := s.repo.ListByLocation(ctx, userID, f, limit, (page-1)*limit)
	if err != nil {
		return model.Page[model.Property]{}, err
	}
	return model.NewPage(items, total, page, limit), nil
}

// Cities lists the cities the user has listings in
func (s *ListingService) Cities(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.ListCities(ctx, userID)
}

// Districts lists the districts of a city the user has listings in
func (s *ListingService) Districts(ctx context.Context, userID int64, city string) ([]string, error) {
	return s.repo.ListDistricts(ctx, userID, city)
}

// Stats summarises the user's listings
func (s *ListingService) Stats(ctx context.Context, userID int64) (*model.Stats, error) {
	return s.repo.GetStats(ctx, userID)
}

func (s *ListingService) clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.limits.DefaultLimit
	}
	if s.limits.MaxLimit > 0 && limit > s.limits.MaxLimit {
		limit = s.limits.MaxLimit
	}
	if limit <= 0 {
		limit = 1
	}
	return page, limit
}
