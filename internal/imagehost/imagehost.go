// Package imagehost uploads book cover images to an external image
// hosting API and returns the public URL to store on the book.
package imagehost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	// Upload takes a base64-encoded image. Oversized or undecodable
	// payloads are rejected by the host and surface as errors.
	Upload(ctx context.Context, base64Data string) (string, error)
}

// Client talks to an imgbb-compatible upload API: a form POST with the
// API key as a query parameter and the base64 payload in the body.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ Uploader = (*Client)(nil)

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

func (c *Client) Upload(ctx context.Context, base64Data string) (string, error) {
	if base64Data == "" {
		return "", fmt.Errorf("imagehost: empty image payload")
	}

	// Clients often send data URIs; the API wants the bare payload.
	if i := strings.Index(base64Data, ","); i >= 0 && strings.HasPrefix(base64Data, "data:") {
		base64Data = base64Data[i+1:]
	}

	form := url.Values{"image": {base64Data}}
	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("imagehost: building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imagehost: calling upload API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imagehost: upload API returned status %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("imagehost: decoding upload response: %w", err)
	}
	if !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("imagehost: upload API reported failure")
	}
	return out.Data.URL, nil
}
