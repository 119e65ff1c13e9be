// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package nlsql

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/querylens/internal/config"
	"github.com/tomtom215/querylens/internal/logging"
	"github.com/tomtom215/querylens/internal/metrics"
	"github.com/tomtom215/querylens/internal/models"
)

const systemPrompt = `You are a SQL assistant for an analytics dashboard backed by DuckDB.
Generate exactly one SELECT statement answering the user's question.
Use only the tables and columns listed below. Respond with SQL only, no explanation.

Tables:
%s`

// chatRequest is the OpenAI-compatible chat-completions request body
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client is an OpenAI-compatible chat-completions client that generates
// candidate SQL. Safe for concurrent use.
type Client struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a generation client from the AI configuration.
// RequestsPerMinute <= 0 disables local rate limiting.
func NewClient(cfg *config.AIConfig) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
		burst = cfg.RequestsPerMinute
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// GenerateSQL asks the model for a single SELECT statement answering the
// prompt against the given table catalog.
func (c *Client) GenerateSQL(ctx context.Context, prompt string, schemas []*models.TableSchema) (string, error) {
	if !c.limiter.Allow() {
		metrics.RecordGeneration(0, "rate_limited")
		return "", ErrRateLimited
	}

	start := time.Now()
	sqlText, tokens, err := c.complete(ctx, prompt, schemas)
	if err != nil {
		metrics.RecordGeneration(time.Since(start), "error")
		return "", err
	}

	cleaned, err := sanitizeSQL(sqlText)
	if err != nil {
		metrics.RecordGeneration(time.Since(start), "rejected")
		logging.Warn().Err(err).Str("raw", truncate(sqlText, 200)).Msg("Rejected generated SQL")
		return "", err
	}

	metrics.RecordGeneration(time.Since(start), "success")
	metrics.GenerationTokensUsed.Add(float64(tokens))
	return cleaned, nil
}

// complete performs the chat-completions call and returns the raw content
func (c *Client) complete(ctx context.Context, prompt string, schemas []*models.TableSchema) (string, int, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, schemaContext(schemas))},
			{Role: "user", Content: prompt},
		},
		MaxTokens: c.maxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("completion request failed with status %d: %s",
			resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", 0, fmt.Errorf("completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, fmt.Errorf("completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, parsed.Usage.CompletionTokens, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
