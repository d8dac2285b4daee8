// ABOUTME: HTTP client that delivers admitted events to the chat processor
// ABOUTME: One bounded POST per event; non-2xx responses are errors

package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wassist/handoff-gateway/internal/config"
	"github.com/wassist/handoff-gateway/internal/gate"
)

// Client posts admitted events to the chat-processor endpoint.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a forward client for cfg.URL with the configured timeout.
func NewClient(cfg config.ForwardConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultForwardTimeout
	}

	return &Client{
		url: cfg.URL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forward delivers one admitted event. The caller decides what a failure
// means; the client only reports it.
func (c *Client) Forward(ctx context.Context, req *gate.ForwardRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling forward request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating forward request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("posting to chat processor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chat processor returned %d: %s", resp.StatusCode, snippet)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ gate.Forwarder = (*Client)(nil)
