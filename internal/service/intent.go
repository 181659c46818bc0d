package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fajarsembar01/home/internal/model"
)

// QueryParser parses natural language queries into structured filters using AI
type QueryParser struct {
	llm    *LLMExtractor
	logger *slog.Logger
}

// NewQueryParser creates a new query parser. client may be nil.
func NewQueryParser(client AIClient, temperature float64, logger *slog.Logger) *QueryParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryParser{
		llm:    NewLLMExtractor(client, temperature, logger),
		logger: logger,
	}
}

// Parse extracts a SearchFilter from the query. Any failure other than
// quota exhaustion yields an empty filter, which callers treat as a cue to
// fall back to keyword search.
func (p *QueryParser) Parse(ctx context.Context, query string) (model.SearchFilter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.SearchFilter{}, nil
	}

	if !p.llm.Enabled() {
		p.logger.Debug("AI disabled, search intent left empty")
		return model.SearchFilter{}, nil
	}

	filter, err := p.llm.ExtractFilter(ctx, query)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			p.logger.Warn("AI quota exceeded for search", "provider", p.llm.Provider(), "error", err)
			return model.SearchFilter{}, &QuotaExceededError{Provider: p.llm.Provider(), Err: err}
		}
		p.logger.Error("AI parsing failed, returning empty filter", "provider", p.llm.Provider(), "error", err)
		return model.SearchFilter{}, nil
	}

	p.logger.Info("parsed search query", "query", query, "empty", filter.IsEmpty())
	return filter, nil
}
