// ABOUTME: Lead-registration webhook client for the external automation flow
// ABOUTME: Posts captured leads with a fixed source tag and capture timestamp

package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wassist/handoff-gateway/internal/config"
)

// Lead is one captured prospect from a conversation.
type Lead struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Details string `json:"details,omitempty"`

	// Set by the client on registration.
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Client posts leads to the automation webhook.
type Client struct {
	url    string
	logger *slog.Logger
	client *http.Client
	now    func() time.Time
}

// NewClient creates a lead webhook client. Without a URL every call is a
// logged no-op.
func NewClient(cfg config.AutomationConfig, logger *slog.Logger) *Client {
	return &Client{
		url:    cfg.LeadWebhookURL,
		logger: logger.With("component", "automation"),
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
}

// RegisterLead delivers one lead to the automation flow.
func (c *Client) RegisterLead(ctx context.Context, lead Lead) error {
	if c.url == "" {
		c.logger.Warn("lead webhook not configured, skipping registration", "name", lead.Name)
		return nil
	}

	lead.Source = "WhatsApp Bot"
	lead.Timestamp = c.now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshaling lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting lead: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lead webhook returned %d: %s", resp.StatusCode, snippet)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("lead registered", "name", lead.Name)
	return nil
}
