package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrQuotaExceeded marks a provider refusal caused by rate limiting or an
// exhausted quota. Match it with errors.Is.
var ErrQuotaExceeded = errors.New("AI quota exceeded")

// statusResourceExhausted is the google.rpc status returned by Gemini when
// the project quota is used up.
const statusResourceExhausted = "RESOURCE_EXHAUSTED"

// AIClient is the interface for AI service providers
type AIClient interface {
	// Generate sends one prompt and returns the raw model text
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// IsEnabled returns whether the AI client is configured and ready
	IsEnabled() bool

	// Name identifies the provider in logs
	Name() string
}

// GenerateRequest is a single-turn prompt
type GenerateRequest struct {
	Prompt      string
	Temperature float64
}

// APIError is a non-2xx answer from a model provider.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string // provider status such as RESOURCE_EXHAUSTED, if reported
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if e.Status != "" {
		return fmt.Sprintf("%s API request failed with status %d (%s): %s", e.Provider, e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, msg)
}

// Is reports quota exhaustion as ErrQuotaExceeded.
func (e *APIError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.QuotaExceeded()
}

// QuotaExceeded reports whether the provider refused for rate or quota reasons.
func (e *APIError) QuotaExceeded() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		strings.EqualFold(e.Status, statusResourceExhausted)
}

// QuotaExceededError is returned by the orchestrators when the model
// provider is out of quota. It is never absorbed into a fallback result.
type QuotaExceededError struct {
	Provider string
	Err      error
}

func (e *QuotaExceededError) Error() string {
	if e.Provider == "" {
		return "AI quota exceeded"
	}
	return fmt.Sprintf("%s quota exceeded", e.Provider)
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// Is lets callers match on the sentinel alone.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Ensure providers implement AIClient
var (
	_ AIClient = (*OpenAIClient)(nil)
	_ AIClient = (*GeminiClient)(nil)
)
