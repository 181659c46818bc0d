package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// fakeAIClient answers every Generate call with a canned response or error
type fakeAIClient struct {
	mu       sync.Mutex
	response string
	err      error
	disabled bool
	prompts  []string
}

func (f *fakeAIClient) Generate(_ context.Context, req GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	return f.response, f.err
}

func (f *fakeAIClient) IsEnabled() bool { return !f.disabled }

func (f *fakeAIClient) Name() string { return "fake" }

func (f *fakeAIClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
