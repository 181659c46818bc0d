package service

import (
	"context"
	"errors"
	"testing"
)

func TestBuildAskPrompt(t *testing.T) {
	tests := []struct {
		name     string
		question string
		context  string
		want     string
	}{
		{"question only", " Apa itu SHM? ", "", "Apa itu SHM?"},
		{"with context", "Berapa cicilannya?", "Rumah Rungkut, harga Rp 1.3 Miliar\n",
			"Rumah Rungkut, harga Rp 1.3 Miliar\n\nPertanyaan: Berapa cicilannya?"},
		{"blank context", "Apa itu AJB?", "  \n", "Apa itu AJB?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildAskPrompt(tt.question, tt.context)
			if err != nil {
				t.Fatalf("BuildAskPrompt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildAskPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssistant_Ask(t *testing.T) {
	client := &fakeAIClient{response: "\n  SHM adalah Sertifikat Hak Milik.  \n"}
	a := NewAssistant(client, discardLogger())

	got, err := a.Ask(context.Background(), "Apa itu SHM?", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got != "SHM adalah Sertifikat Hak Milik." {
		t.Errorf("Ask() = %q", got)
	}
	if client.calls() != 1 || client.prompts[0] != "Apa itu SHM?" {
		t.Errorf("prompts = %q", client.prompts)
	}
}

func TestAssistant_AskErrors(t *testing.T) {
	quota := &APIError{Provider: "gemini", StatusCode: 429, Status: "RESOURCE_EXHAUSTED"}
	transport := errors.New("dial tcp: i/o timeout")

	tests := []struct {
		name      string
		client    AIClient
		question  string
		wantIs    error
		wantQuota bool
	}{
		{"quota", &fakeAIClient{err: quota}, "Apa itu SHM?", ErrQuotaExceeded, true},
		{"transport", &fakeAIClient{err: transport}, "Apa itu SHM?", transport, false},
		{"blank answer", &fakeAIClient{response: "  "}, "Apa itu SHM?", ErrEmptyAnswer, false},
		{"disabled", &fakeAIClient{disabled: true}, "Apa itu SHM?", ErrAssistantDisabled, false},
		{"nil client", nil, "Apa itu SHM?", ErrAssistantDisabled, false},
		{"blank question", &fakeAIClient{response: "ok"}, " \t", ErrInvalidField, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssistant(tt.client, discardLogger()).Ask(context.Background(), tt.question, "")
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("Ask() error = %v, want %v", err, tt.wantIs)
			}
			var quotaErr *QuotaExceededError
			if got := errors.As(err, &quotaErr); got != tt.wantQuota {
				t.Errorf("QuotaExceededError = %v, want %v", got, tt.wantQuota)
			}
			if tt.wantQuota && quotaErr.Provider != "fake" {
				t.Errorf("provider = %q, want fake", quotaErr.Provider)
			}
		})
	}
}
