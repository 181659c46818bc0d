package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fajarsembar01/home/internal/model"
)

// ListingExtractor turns listing text into an ExtractedListing. The model
// result is used when it is non-empty; otherwise the rule-based parser runs
// on the same input. Quota exhaustion is the only error it returns.
type ListingExtractor struct {
	llm    *LLMExtractor
	logger *slog.Logger
}

// NewListingExtractor creates an extractor. client may be nil, in which
// case every call uses the fallback parser.
func NewListingExtractor(client AIClient, temperature float64, logger *slog.Logger) *ListingExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingExtractor{
		llm:    NewLLMExtractor(client, temperature, logger),
		logger: logger,
	}
}

// Extract runs the model path with fallback. history holds earlier turns of
// the same conversation and may be nil.
func (x *ListingExtractor) Extract(ctx context.Context, input string, history []string) (model.ExtractedListing, error) {
	if !x.llm.Enabled() {
		x.logger.Debug("AI disabled, using fallback parser")
		return FallbackExtract(input), nil
	}

	listing, err := x.llm.Extract(ctx, input, history)
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		x.logger.Warn("AI quota exceeded", "provider", x.llm.Provider(), "error", err)
		return model.ExtractedListing{}, &QuotaExceededError{Provider: x.llm.Provider(), Err: err}
	case err != nil:
		x.logger.Error("AI extraction failed, using fallback parser", "provider", x.llm.Provider(), "error", err)
	case listing.IsEmpty():
		x.logger.Warn("AI returned no usable fields, using fallback parser", "provider", x.llm.Provider())
	default:
		return listing, nil
	}

	return FallbackExtract(input), nil
}
