package model

// ExtractRequest carries raw listing text and optional prior conversation
type ExtractRequest struct {
	Text    string   `json:"text" binding:"required"`
	History []string `json:"history,omitempty"`
}

// ExtractResponse returns the structured listing and its summary
type ExtractResponse struct {
	Listing ExtractedListing `json:"listing"`
	Summary string           `json:"summary"`
	Took    int64            `json:"took_ms"`
}

// CollectResponse is returned after a listing has been stored
type CollectResponse struct {
	Property Property `json:"property"`
	Summary  string   `json:"summary"`
}

// ImportRequest asks the server to fetch a listing page and store it
type ImportRequest struct {
	URL string `json:"url" binding:"required"`
}

// ParseQueryRequest is a natural-language search request to be parsed only
type ParseQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// SearchRequest represents a search query request
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// SearchResponse represents a search result response
type SearchResponse struct {
	Results    []PropertySearchResult `json:"results"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
	HasMore    bool                   `json:"has_more"`
	Filter     SearchFilter           `json:"filter"`
	Mode       string                 `json:"mode"` // "filter" or "keyword"
	Took       int64                  `json:"took_ms"`
}

// ImageRequest attaches an image reference to a listing
type ImageRequest struct {
	FileID    string  `json:"file_id" binding:"required"`
	FilePath  *string `json:"file_path,omitempty"`
	Caption   *string `json:"caption,omitempty"`
	IsPrimary bool    `json:"is_primary"`
}

// SummaryResponse carries the human-readable listing summary
type SummaryResponse struct {
	ID      int64  `json:"id"`
	Summary string `json:"summary"`
}

// AskRequest is a free-form question, optionally about the given context
type AskRequest struct {
	Question string `json:"question" binding:"required,max=4000"`
	Context  string `json:"context,omitempty" binding:"max=16000"`
}

// AskResponse carries the model's answer
type AskResponse struct {
	Answer string `json:"answer"`
	Took   int64  `json:"took_ms"`
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
