package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// answerTemperature leaves room for conversational answers
const answerTemperature = 0.7

// ErrAssistantDisabled is returned by Ask when no model is configured
var ErrAssistantDisabled = errors.New("AI assistant is disabled")

// ErrEmptyAnswer is returned when the model replies with blank text
var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Assistant answers general questions, optionally grounded in a context
// block such as a listing summary.
type Assistant struct {
	llm    *LLMExtractor
	logger *slog.Logger
}

// NewAssistant creates an assistant. client may be nil.
func NewAssistant(client AIClient, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		llm:    NewLLMExtractor(client, answerTemperature, logger),
		logger: logger,
	}
}

// Ask returns the model's answer to question. Quota exhaustion is reported
// as *QuotaExceededError; there is no rule-based fallback for answers.
func (a *Assistant) Ask(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is empty", ErrInvalidField)
	}
	if !a.llm.Enabled() {
		return "", ErrAssistantDisabled
	}

	answer, err := a.llm.Ask(ctx, question, contextText)
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		a.logger.Warn("AI quota exceeded for question", "provider", a.llm.Provider(), "error", err)
		return "", &QuotaExceededError{Provider: a.llm.Provider(), Err: err}
	case err != nil:
		return "", fmt.Errorf("ask %s: %w", a.llm.Provider(), err)
	case answer == "":
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
