package service

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
)

const sampleListing = "Dijual rumah harga 2M nego, LT 120 m2, KT 3+1 KM 2, SHM. WA 081234567890"

func TestListingExtractor_Quota(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"http 429", &APIError{Provider: "gemini", StatusCode: http.StatusTooManyRequests}},
		{"resource exhausted status", &APIError{Provider: "gemini", StatusCode: http.StatusForbidden, Status: "RESOURCE_EXHAUSTED"}},
		{"wrapped", errors.Join(errors.New("call failed"), &APIError{Provider: "openai", StatusCode: 429})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeAIClient{err: tt.err}
			x := NewListingExtractor(client, 0.1, discardLogger())

			listing, err := x.Extract(context.Background(), sampleListing, nil)

			var quotaErr *QuotaExceededError
			if !errors.As(err, &quotaErr) {
				t.Fatalf("error = %v, want *QuotaExceededError", err)
			}
			if !errors.Is(err, ErrQuotaExceeded) {
				t.Error("errors.Is(err, ErrQuotaExceeded) = false")
			}
			if quotaErr.Provider != "fake" {
				t.Errorf("Provider = %q, want fake", quotaErr.Provider)
			}
			if !listing.IsEmpty() {
				t.Errorf("listing = %+v, want empty (no fallback on quota)", listing)
			}
			if client.calls() != 1 {
				t.Errorf("calls = %d, want 1 (no retry)", client.calls())
			}
		})
	}
}

func TestListingExtractor_FallsBack(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeAIClient
	}{
		{"prose without JSON", &fakeAIClient{response: "Maaf, saya tidak dapat membantu."}},
		{"broken JSON", &fakeAIClient{response: `{"price": 2000000000, "city": }`}},
		{"empty object", &fakeAIClient{response: "{}"}},
		{"only null fields", &fakeAIClient{response: `{"price": null, "city": "null"}`}},
		{"transient error", &fakeAIClient{err: errors.New("connection reset by peer")}},
		{"server error", &fakeAIClient{err: &APIError{Provider: "gemini", StatusCode: 503, Status: "UNAVAILABLE"}}},
		{"disabled client", &fakeAIClient{disabled: true}},
	}

	want := FallbackExtract(sampleListing)
	if want.IsEmpty() {
		t.Fatal("fallback found nothing in the sample")
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := NewListingExtractor(tt.client, 0.1, discardLogger())

			got, err := x.Extract(context.Background(), sampleListing, nil)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Extract() = %+v, want fallback result %+v", got, want)
			}
		})
	}

	t.Run("disabled client is not called", func(t *testing.T) {
		client := &fakeAIClient{disabled: true}
		NewListingExtractor(client, 0.1, discardLogger()).Extract(context.Background(), sampleListing, nil)
		if client.calls() != 0 {
			t.Errorf("calls = %d, want 0", client.calls())
		}
	})

	t.Run("nil client", func(t *testing.T) {
		got, err := NewListingExtractor(nil, 0, nil).Extract(context.Background(), sampleListing, nil)
		if err != nil || !reflect.DeepEqual(got, want) {
			t.Errorf("Extract() = %+v, %v", got, err)
		}
	})
}

func TestListingExtractor_UsesModelResult(t *testing.T) {
	client := &fakeAIClient{response: "Berikut hasilnya:\n```json\n" +
		`{"property_type": "Rumah", "transaction_type": "dijual", "price": 1300000000, "city": "Surabaya", "bedrooms": null}` +
		"\n```"}
	x := NewListingExtractor(client, 0.1, discardLogger())

	got, err := x.Extract(context.Background(), sampleListing, []string{"halo", "  "})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got.PropertyType == nil || *got.PropertyType != "rumah" {
		t.Errorf("PropertyType = %v", got.PropertyType)
	}
	if got.TransactionType == nil || *got.TransactionType != "jual" {
		t.Errorf("TransactionType = %v", got.TransactionType)
	}
	if got.Price == nil || *got.Price != 1_300_000_000 {
		t.Errorf("Price = %v", got.Price)
	}
	if got.City == nil || *got.City != "Surabaya" {
		t.Errorf("City = %v", got.City)
	}
	// no merging with the fallback result
	if got.Bedrooms != nil || got.LandArea != nil || got.ContactPhone != nil {
		t.Errorf("model result was merged with fallback fields: %+v", got)
	}
	if client.calls() != 1 {
		t.Errorf("calls = %d, want 1", client.calls())
	}
}

func TestAPIError(t *testing.T) {
	quota := &APIError{Provider: "gemini", StatusCode: 429, Message: "slow down"}
	if !errors.Is(quota, ErrQuotaExceeded) {
		t.Error("429 should match ErrQuotaExceeded")
	}

	other := &APIError{Provider: "gemini", StatusCode: 500, Status: "INTERNAL"}
	if errors.Is(other, ErrQuotaExceeded) {
		t.Error("500 should not match ErrQuotaExceeded")
	}

	// the message mentioning a quota is not a quota signal
	text := errors.New("gemini: 429 RESOURCE_EXHAUSTED")
	if errors.Is(text, ErrQuotaExceeded) {
		t.Error("plain error text should not match ErrQuotaExceeded")
	}
}
