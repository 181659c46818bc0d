package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fajarsembar01/home/internal/config"
)

// GeminiClient calls the Gemini generateContent endpoint of the
// Generative Language API.
type GeminiClient struct {
	config     *config.GeminiConfig
	httpClient *http.Client
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// IsEnabled returns whether an API key is configured
func (c *GeminiClient) IsEnabled() bool {
	return c.config.Enabled
}

// Name identifies the provider in logs
func (c *GeminiClient) Name() string {
	return "gemini"
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// geminiErrorBody is the google.rpc.Status envelope returned on failure
type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends one user turn and concatenates the text parts of the
// first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if !c.config.Enabled {
		return "", fmt.Errorf("Gemini API is not enabled (missing API key)")
	}

	body := geminiGenerateContentRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: req.Prompt}},
			},
		},
		GenerationConfig: &geminiGenerationConfig{Temperature: req.Temperature},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	base := strings.TrimRight(c.config.APIBase, "/")
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(c.config.Model))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newGeminiError(resp.StatusCode, raw)
	}

	var parsed geminiGenerateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini generateContent returned no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func newGeminiError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "gemini",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var parsed geminiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Status != "" {
		apiErr.Status = parsed.Error.Status
		apiErr.Message = parsed.Error.Message
	}
	return apiErr
}
