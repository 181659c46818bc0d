package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/service"
)

// Listings is the listing service as seen by the HTTP layer
type Listings interface {
	Extract(ctx context.Context, req *model.ExtractRequest) (*model.ExtractResponse, error)
	ParseQuery(ctx context.Context, query string) (model.SearchFilter, error)
	Collect(ctx context.Context, userID int64, text string, history []string) (*model.CollectResponse, error)
	Import(ctx context.Context, userID int64, rawURL string) (*model.CollectResponse, error)
	List(ctx context.Context, userID int64, page, limit int) (model.Page[model.Property], error)
	Get(ctx context.Context, userID, id int64) (*model.Property, error)
	Update(ctx context.Context, userID, id int64, patch model.ExtractedListing) (*model.Property, error)
	Delete(ctx context.Context, userID, id int64) error
	Summary(ctx context.Context, userID, id int64) (*model.SummaryResponse, error)
	AddImage(ctx context.Context, userID, id int64, req *model.ImageRequest) (*model.PropertyImage, error)
	ListImages(ctx context.Context, userID, id int64) ([]model.PropertyImage, error)
	Search(ctx context.Context, userID int64, req *model.SearchRequest) (*model.SearchResponse, error)
	ByLocation(ctx context.Context, userID int64, f model.LocationFilter, page, limit int) (model.Page[model.Property], error)
	Cities(ctx context.Context, userID int64) ([]string, error)
	Districts(ctx context.Context, userID int64, city string) ([]string, error)
	Stats(ctx context.Context, userID int64) (*model.Stats, error)
}

var _ Listings = (*service.ListingService)(nil)

// ListingHandler handles listing-related HTTP requests
type ListingHandler struct {
	listings Listings
	logger   *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listings Listings, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, logger: logger}
}

// Extract handles POST /api/v1/extract
func (h *ListingHandler) Extract(c *gin.Context) {
	var req model.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	resp, err := h.listings.Extract(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ParseQuery handles POST /api/v1/search/parse
func (h *ListingHandler) ParseQuery(c *gin.Context) {
	var req model.ParseQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	filter, err := h.listings.ParseQuery(c.Request.Context(), req.Query)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, filter)
}

// Collect handles POST /api/v1/listings
func (h *ListingHandler) Collect(c *gin.Context) {
	var req model.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	resp, err := h.listings.Collect(c.Request.Context(), currentUser(c).ID, req.Text, req.History)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Import handles POST /api/v1/listings/import
func (h *ListingHandler) Import(c *gin.Context) {
	var req model.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	resp, err := h.listings.Import(c.Request.Context(), currentUser(c).ID, req.URL)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /api/v1/listings
func (h *ListingHandler) List(c *gin.Context) {
	page, limit := pagination(c)

	result, err := h.listings.List(c.Request.Context(), currentUser(c).ID, page, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ByLocation handles GET /api/v1/listings/by-location
func (h *ListingHandler) ByLocation(c *gin.Context) {
	var f model.LocationFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, "Invalid filter: "+err.Error())
		return
	}
	page, limit := pagination(c)

	result, err := h.listings.ByLocation(c.Request.Context(), currentUser(c).ID, f, page, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/v1/listings/:id
func (h *ListingHandler) Get(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	p, err := h.listings.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update handles PATCH /api/v1/listings/:id
func (h *ListingHandler) Update(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	var patch model.ExtractedListing
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	p, err := h.listings.Update(c.Request.Context(), currentUser(c).ID, id, patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /api/v1/listings/:id
func (h *ListingHandler) Delete(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	if err := h.listings.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Summary handles GET /api/v1/listings/:id/summary
func (h *ListingHandler) Summary(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	resp, err := h.listings.Summary(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddImage handles POST /api/v1/listings/:id/images
func (h *ListingHandler) AddImage(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	var req model.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	img, err := h.listings.AddImage(c.Request.Context(), currentUser(c).ID, id, &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

// ListImages handles GET /api/v1/listings/:id/images
func (h *ListingHandler) ListImages(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	images, err := h.listings.ListImages(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// Search handles POST /api/v1/search
func (h *ListingHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	resp, err := h.listings.Search(c.Request.Context(), currentUser(c).ID, &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchStream handles POST /api/v1/search/stream. The parsed filter is
// sent ahead of the ranked results so a chat client can echo it early.
func (h *ListingHandler) SearchStream(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, http.StatusInternalServerError, CodeInternal, "Streaming not supported")
		return
	}

	sendSSE(c, "start", gin.H{"query": req.Query})
	flusher.Flush()

	resp, err := h.listings.Search(c.Request.Context(), currentUser(c).ID, &req)
	if err != nil {
		h.logger.Warn("streamed search failed", "error", err)
		sendSSE(c, "error", streamError(err))
		flusher.Flush()
		return
	}

	sendSSE(c, "filter", gin.H{"filter": resp.Filter, "mode": resp.Mode})
	sendSSE(c, "results", resp)
	sendSSE(c, "done", nil)
	flusher.Flush()
}

func streamError(err error) model.ErrorResponse {
	if isQuotaError(err) {
		return model.ErrorResponse{Error: msgQuotaExceeded, Code: CodeQuotaExceeded}
	}
	return model.ErrorResponse{Error: msgInternal, Code: CodeInternal}
}

// sendSSE writes one Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data == nil {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
}

// Cities handles GET /api/v1/locations/cities
func (h *ListingHandler) Cities(c *gin.Context) {
	cities, err := h.listings.Cities(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

// Districts handles GET /api/v1/locations/districts?city=
func (h *ListingHandler) Districts(c *gin.Context) {
	districts, err := h.listings.Districts(c.Request.Context(), currentUser(c).ID, c.Query("city"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"districts": districts})
}

// Stats handles GET /api/v1/stats
func (h *ListingHandler) Stats(c *gin.Context) {
	stats, err := h.listings.Stats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func listingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid listing ID")
		return 0, false
	}
	return id, true
}

// pagination reads ?page= and ?limit=; the service clamps both.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}
