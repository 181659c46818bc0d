package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fajarsembar01/home/internal/config"
	"github.com/fajarsembar01/home/internal/fetcher"
	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/repository"
	"github.com/fajarsembar01/home/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubListings implements Listings; unset methods panic through the nil
// embedded interface.
type stubListings struct {
	Listings

	extract  func(*model.ExtractRequest) (*model.ExtractResponse, error)
	collect  func(userID int64, text string) (*model.CollectResponse, error)
	importFn func(userID int64, url string) (*model.CollectResponse, error)
	get      func(userID, id int64) (*model.Property, error)
	update   func(userID, id int64, patch model.ExtractedListing) (*model.Property, error)
	deleteFn func(userID, id int64) error
	search   func(userID int64, req *model.SearchRequest) (*model.SearchResponse, error)
	list     func(userID int64, page, limit int) (model.Page[model.Property], error)
	byLoc    func(f model.LocationFilter) (model.Page[model.Property], error)
}

func (s *stubListings) Extract(_ context.Context, req *model.ExtractRequest) (*model.ExtractResponse, error) {
	return s.extract(req)
}

func (s *stubListings) Collect(_ context.Context, userID int64, text string, _ []string) (*model.CollectResponse, error) {
	return s.collect(userID, text)
}

func (s *stubListings) Import(_ context.Context, userID int64, rawURL string) (*model.CollectResponse, error) {
	return s.importFn(userID, rawURL)
}

func (s *stubListings) Get(_ context.Context, userID, id int64) (*model.Property, error) {
	return s.get(userID, id)
}

func (s *stubListings) Update(_ context.Context, userID, id int64, patch model.ExtractedListing) (*model.Property, error) {
	return s.update(userID, id, patch)
}

func (s *stubListings) Delete(_ context.Context, userID, id int64) error {
	return s.deleteFn(userID, id)
}

func (s *stubListings) Search(_ context.Context, userID int64, req *model.SearchRequest) (*model.SearchResponse, error) {
	return s.search(userID, req)
}

func (s *stubListings) List(_ context.Context, userID int64, page, limit int) (model.Page[model.Property], error) {
	return s.list(userID, page, limit)
}

func (s *stubListings) ByLocation(_ context.Context, _ int64, f model.LocationFilter, _, _ int) (model.Page[model.Property], error) {
	return s.byLoc(f)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) GetOrCreateUser(_ context.Context, externalID string, username, _, _ *string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[string]*model.User{}
	}
	u, ok := f.users[externalID]
	if !ok {
		u = &model.User{ID: int64(len(f.users) + 1), ExternalID: externalID}
		f.users[externalID] = u
	}
	if username != nil {
		u.Username = username
	}
	return u, nil
}

type fakeCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expires == nil {
		f.expires = map[string]time.Duration{}
	}
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func testRouter(l Listings, counter RateCounter, limit int) *gin.Engine {
	return NewRouter(RouterDeps{
		Listings:  l,
		Users:     &fakeUsers{},
		DB:        fakePinger{},
		Limiter:   counter,
		RateLimit: limit,
		Server: config.ServerConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,PATCH,DELETE,OPTIONS",
			AllowedHeaders: "Content-Type,X-User-ID",
		},
		Build:  BuildInfo{Version: "1.2.3"},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderUserID, "tg-1001")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestHealthAndVersion(t *testing.T) {
	r := testRouter(&stubListings{}, nil, 0)

	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Errorf("/health = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("missing request id header")
	}

	w = do(r, http.MethodGet, "/version", "")
	if !strings.Contains(w.Body.String(), `"version":"1.2.3"`) {
		t.Errorf("/version = %s", w.Body.String())
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	r := NewRouter(RouterDeps{
		Listings: &stubListings{},
		Users:    &fakeUsers{},
		DB:       fakePinger{err: errors.New("connection refused")},
		Server:   config.ServerConfig{AllowedOrigins: "*"},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestRequestID_ReusesValidHeader(t *testing.T) {
	r := testRouter(&stubListings{}, nil, 0)
	const id = "0b6f3a0e-4c55-4a2e-9f5b-3f6f8f1c2d11"

	w := do(r, http.MethodGet, "/version", "", HeaderRequestID, id)
	if got := w.Header().Get(HeaderRequestID); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	w = do(r, http.MethodGet, "/version", "", HeaderRequestID, "not-a-uuid")
	if got := w.Header().Get(HeaderRequestID); got == "not-a-uuid" || got == "" {
		t.Errorf("request id = %q, want a fresh uuid", got)
	}
}

func TestResolveUser_RequiresHeader(t *testing.T) {
	r := testRouter(&stubListings{}, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := decodeError(t, w).Code; got != CodeUnauthenticated {
		t.Errorf("code = %q", got)
	}
}

func TestExtract(t *testing.T) {
	stub := &stubListings{
		extract: func(req *model.ExtractRequest) (*model.ExtractResponse, error) {
			if req.Text != "Dijual rumah Rungkut 2M" {
				t.Errorf("text = %q", req.Text)
			}
			price := int64(2_000_000_000)
			return &model.ExtractResponse{
				Listing: model.ExtractedListing{Price: &price},
				Summary: "Rumah dijual",
			}, nil
		},
	}
	r := testRouter(stub, nil, 0)

	w := do(r, http.MethodPost, "/api/v1/extract", `{"text": "Dijual rumah Rungkut 2M"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp model.ExtractResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Listing.Price == nil || *resp.Listing.Price != 2_000_000_000 {
		t.Errorf("price = %v", resp.Listing.Price)
	}

	w = do(r, http.MethodPost, "/api/v1/extract", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing text: status = %d, want 400", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	quota := &service.QuotaExceededError{
		Provider: "gemini",
		Err:      &service.APIError{Provider: "gemini", StatusCode: 429, Status: "RESOURCE_EXHAUSTED"},
	}

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"quota", quota, http.StatusTooManyRequests, CodeQuotaExceeded},
		{"wrapped quota", fmt.Errorf("collect: %w", quota), http.StatusTooManyRequests, CodeQuotaExceeded},
		{"nothing extracted", service.ErrNothingExtracted, http.StatusUnprocessableEntity, CodeNothingExtracted},
		{"not found", fmt.Errorf("property 9: %w", repository.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"invalid field", fmt.Errorf("%w: transaction_type", service.ErrInvalidField), http.StatusBadRequest, CodeInvalidRequest},
		{"invalid url", fetcher.ErrInvalidURL, http.StatusBadRequest, CodeInvalidRequest},
		{"robots", fetcher.ErrDisallowed, http.StatusForbidden, CodeFetchDisallowed},
		{"bad status", fmt.Errorf("%w: 404", fetcher.ErrBadStatus), http.StatusBadGateway, CodeFetchFailed},
		{"import disabled", service.ErrImportDisabled, http.StatusServiceUnavailable, CodeUnavailable},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubListings{
				collect: func(int64, string) (*model.CollectResponse, error) { return nil, tt.err },
			}
			w := do(testRouter(stub, nil, 0), http.MethodPost, "/api/v1/listings", `{"text": "rumah"}`)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if got := decodeError(t, w).Code; got != tt.wantBody {
				t.Errorf("code = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestErrorMapping_InternalHidesDetail(t *testing.T) {
	stub := &stubListings{
		get: func(int64, int64) (*model.Property, error) {
			return nil, errors.New("pq: password authentication failed for user postgres")
		},
	}
	w := do(testRouter(stub, nil, 0), http.MethodGet, "/api/v1/listings/4", "")
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestCollectAndImport_Created(t *testing.T) {
	var gotUser int64
	stub := &stubListings{
		collect: func(userID int64, text string) (*model.CollectResponse, error) {
			gotUser = userID
			return &model.CollectResponse{Property: model.Property{ID: 11, UserID: userID}}, nil
		},
		importFn: func(userID int64, url string) (*model.CollectResponse, error) {
			if url != "https://example.com/rumah-1" {
				t.Errorf("url = %q", url)
			}
			return &model.CollectResponse{Property: model.Property{ID: 12, UserID: userID}}, nil
		},
	}
	r := testRouter(stub, nil, 0)

	if w := do(r, http.MethodPost, "/api/v1/listings", `{"text": "Dijual rumah"}`); w.Code != http.StatusCreated {
		t.Errorf("collect status = %d", w.Code)
	}
	if gotUser == 0 {
		t.Error("collect did not receive the resolved user")
	}
	if w := do(r, http.MethodPost, "/api/v1/listings/import", `{"url": "https://example.com/rumah-1"}`); w.Code != http.StatusCreated {
		t.Errorf("import status = %d", w.Code)
	}
}

func TestListingByID(t *testing.T) {
	stub := &stubListings{
		get: func(_, id int64) (*model.Property, error) {
			if id != 42 {
				return nil, repository.ErrNotFound
			}
			return &model.Property{ID: 42, Status: "active"}, nil
		},
		update: func(_, id int64, patch model.ExtractedListing) (*model.Property, error) {
			if patch.City == nil || *patch.City != "Surabaya" {
				t.Errorf("patch city = %v", patch.City)
			}
			return &model.Property{ID: id, ExtractedListing: patch}, nil
		},
		deleteFn: func(_, id int64) error { return nil },
	}
	r := testRouter(stub, nil, 0)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"get", http.MethodGet, "/api/v1/listings/42", "", http.StatusOK},
		{"get missing", http.MethodGet, "/api/v1/listings/7", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/listings/abc", "", http.StatusBadRequest},
		{"negative id", http.MethodGet, "/api/v1/listings/-3", "", http.StatusBadRequest},
		{"patch", http.MethodPatch, "/api/v1/listings/42", `{"city": "Surabaya"}`, http.StatusOK},
		{"patch bad json", http.MethodPatch, "/api/v1/listings/42", `{"price": "dua"}`, http.StatusBadRequest},
		{"delete", http.MethodDelete, "/api/v1/listings/42", "", http.StatusNoContent},
		{"unknown route", http.MethodGet, "/api/v2/listings", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestListAndByLocation(t *testing.T) {
	stub := &stubListings{
		list: func(_ int64, page, limit int) (model.Page[model.Property], error) {
			if page != 2 || limit != 5 {
				t.Errorf("page/limit = %d/%d", page, limit)
			}
			return model.NewPage([]model.Property{{ID: 6}}, 6, page, limit), nil
		},
		byLoc: func(f model.LocationFilter) (model.Page[model.Property], error) {
			if f.City != "Surabaya" || f.MaxPrice == nil || *f.MaxPrice != 3_000_000_000 {
				t.Errorf("filter = %+v", f)
			}
			return model.NewPage[model.Property](nil, 0, 1, 10), nil
		},
	}
	r := testRouter(stub, nil, 0)

	w := do(r, http.MethodGet, "/api/v1/listings?page=2&limit=5", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total_pages":2`) {
		t.Errorf("list = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/listings/by-location?city=Surabaya&max_price=3000000000", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("by-location = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/listings/by-location?max_price=murah", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad price status = %d, want 400", w.Code)
	}
}

func TestSearchStream(t *testing.T) {
	stub := &stubListings{
		search: func(_ int64, req *model.SearchRequest) (*model.SearchResponse, error) {
			loc := "Rungkut"
			return &model.SearchResponse{
				Filter: model.SearchFilter{LocationKeyword: &loc},
				Mode:   "filter",
			}, nil
		},
	}
	w := do(testRouter(stub, nil, 0), http.MethodPost, "/api/v1/search/stream", `{"query": "rumah di rungkut"}`)

	body := w.Body.String()
	last := -1
	for _, event := range []string{"event: start", "event: filter", "event: results", "event: done"} {
		i := strings.Index(body, event)
		if i < 0 || i < last {
			t.Fatalf("event %q missing or out of order in:\n%s", event, body)
		}
		last = i
	}
}

func TestSearchStream_Quota(t *testing.T) {
	stub := &stubListings{
		search: func(int64, *model.SearchRequest) (*model.SearchResponse, error) {
			return nil, &service.QuotaExceededError{Provider: "openai", Err: errors.New("insufficient_quota")}
		},
	}
	w := do(testRouter(stub, nil, 0), http.MethodPost, "/api/v1/search/stream", `{"query": "rumah"}`)
	if !strings.Contains(w.Body.String(), "event: error") || !strings.Contains(w.Body.String(), CodeQuotaExceeded) {
		t.Errorf("stream body = %s", w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	counter := &fakeCounter{}
	calls := 0
	stub := &stubListings{
		search: func(int64, *model.SearchRequest) (*model.SearchResponse, error) {
			calls++
			return &model.SearchResponse{Mode: "keyword"}, nil
		},
		list: func(_ int64, page, limit int) (model.Page[model.Property], error) {
			return model.NewPage[model.Property](nil, 0, 1, 10), nil
		},
	}
	r := testRouter(stub, counter, 2)

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/api/v1/search", `{"query": "rumah"}`); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	w := do(r, http.MethodPost, "/api/v1/search", `{"query": "rumah"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", w.Code)
	}
	if got := decodeError(t, w).Code; got != CodeRateLimited {
		t.Errorf("code = %q, want %q", got, CodeRateLimited)
	}
	if calls != 2 {
		t.Errorf("service calls = %d, want 2", calls)
	}

	// Plain reads are not limited
	if w := do(r, http.MethodGet, "/api/v1/listings", ""); w.Code != http.StatusOK {
		t.Errorf("list status = %d", w.Code)
	}

	if len(counter.expires) != 1 {
		t.Errorf("expire calls = %d, want 1", len(counter.expires))
	}
	for key, ttl := range counter.expires {
		if !strings.HasPrefix(key, "propertibot:rl:1:") || ttl != time.Minute {
			t.Errorf("expire %q %v", key, ttl)
		}
	}
}

func TestRateLimit_RedisError(t *testing.T) {
	stub := &stubListings{}
	w := do(testRouter(stub, &fakeCounter{err: errors.New("redis down")}, 5),
		http.MethodPost, "/api/v1/search", `{"query": "rumah"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

type fakeAsker struct {
	answer   string
	err      error
	question string
	context  string
}

func (f *fakeAsker) Ask(_ context.Context, question, contextText string) (string, error) {
	f.question, f.context = question, contextText
	return f.answer, f.err
}

func askRouter(asker Asker, counter RateCounter, limit int) *gin.Engine {
	return NewRouter(RouterDeps{
		Listings:  &stubListings{},
		Assistant: asker,
		Users:     &fakeUsers{},
		DB:        fakePinger{},
		Limiter:   counter,
		RateLimit: limit,
		Server:    config.ServerConfig{AllowedOrigins: "*"},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestAsk(t *testing.T) {
	asker := &fakeAsker{answer: "SHM adalah Sertifikat Hak Milik."}
	w := do(askRouter(asker, nil, 0), http.MethodPost, "/api/v1/ask",
		`{"question": "Apa itu SHM?", "context": "Rumah Rungkut SHM"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp model.AskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != asker.answer {
		t.Errorf("answer = %q", resp.Answer)
	}
	if asker.question != "Apa itu SHM?" || asker.context != "Rumah Rungkut SHM" {
		t.Errorf("asked %q with context %q", asker.question, asker.context)
	}
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name     string
		asker    *fakeAsker
		body     string
		wantCode int
		wantErr  string
	}{
		{"missing question", &fakeAsker{}, `{"context": "x"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"no assistant", nil, `{"question": "Apa itu SHM?"}`, http.StatusServiceUnavailable, CodeUnavailable},
		{"disabled", &fakeAsker{err: service.ErrAssistantDisabled}, `{"question": "Apa itu SHM?"}`,
			http.StatusServiceUnavailable, CodeUnavailable},
		{"quota", &fakeAsker{err: &service.QuotaExceededError{Provider: "gemini"}}, `{"question": "Apa itu SHM?"}`,
			http.StatusTooManyRequests, CodeQuotaExceeded},
		{"provider failure", &fakeAsker{err: errors.New("ask gemini: dial tcp: i/o timeout")}, `{"question": "Apa itu SHM?"}`,
			http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var asker Asker
			if tt.asker != nil {
				asker = tt.asker
			}
			w := do(askRouter(asker, nil, 0), http.MethodPost, "/api/v1/ask", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if got := decodeError(t, w).Code; got != tt.wantErr {
				t.Errorf("code = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestAsk_RateLimited(t *testing.T) {
	asker := &fakeAsker{answer: "ok"}
	r := askRouter(asker, &fakeCounter{}, 1)

	if w := do(r, http.MethodPost, "/api/v1/ask", `{"question": "halo"}`); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	w := do(r, http.MethodPost, "/api/v1/ask", `{"question": "halo"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", w.Code)
	}
	if got := decodeError(t, w).Code; got != CodeRateLimited {
		t.Errorf("code = %q, want %q", got, CodeRateLimited)
	}
}
