package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maltedev/shopping-recommender/internal/fetch"
)

const maxResponseBytes = 4 << 20

var (
	ErrMissingAPIKey = errors.New("genai api key not configured")
	ErrEmptyResponse = errors.New("genai returned no text")
	ErrAPI           = errors.New("genai request failed")
)

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	Retry       fetch.RetryPolicy
}

func DefaultOptions() *Options {
	return &Options{
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		Model:       "gemini-2.0-flash",
		Timeout:     60 * time.Second,
		Temperature: 0.4,
		Retry: fetch.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    8 * time.Second,
		},
	}
}

// Client talks to the Gemini generateContent endpoint.
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger
}

func NewClient(opts *Options, logger *slog.Logger) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		opts:   *opts,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logger.With("component", "genai", "model", opts.Model),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends a single-turn prompt and returns the concatenated text of
// the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.opts.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: c.opts.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.opts.BaseURL, "/"), c.opts.Model)

	start := time.Now()
	text, err := fetch.Retry(ctx, c.opts.Retry, c.logger, endpoint, func(ctx context.Context) (string, error) {
		return c.post(ctx, endpoint, body)
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug("generation finished", "prompt_bytes", len(prompt), "response_bytes", len(text), "latency", time.Since(start))
	return text, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fetch.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.opts.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", err
		}
		return "", fetch.Permanent(err)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fetch.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if len(out.Candidates) == 0 {
		return "", fetch.Permanent(ErrEmptyResponse)
	}

	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fetch.Permanent(ErrEmptyResponse)
	}
	return text, nil
}

func statusError(status int, data []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%w: %d %s: %s", ErrAPI, status, apiErr.Error.Status, apiErr.Error.Message)
	}
	return fmt.Errorf("%w: %d", ErrAPI, status)
}
