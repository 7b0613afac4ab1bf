// Package embedding calls the backend's edge function that turns text into
// an embedding vector. The CLI never embeds locally; note embeddings are
// produced server-side on insert and this client only embeds queries.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	maxRetries   = 3
	initialDelay = 500 * time.Millisecond
)

// Client invokes the embed function on one backend project.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient builds a client for the given project root; the function path is
// appended per request.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/functions/v1/embed",
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// EmbedQuery returns the embedding for a search query, retrying transient
// failures with exponential backoff.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Input: query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("embed request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read embed response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("embed function returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("embed function returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var out embedResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode embed response: %w", err)
		}
		if out.Error != "" {
			return nil, fmt.Errorf("embed function error: %s", out.Error)
		}
		if len(out.Embedding) == 0 {
			return nil, fmt.Errorf("embed function returned an empty vector")
		}
		return out.Embedding, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}
