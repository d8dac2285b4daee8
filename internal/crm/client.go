// ABOUTME: iCount CRM client used by the agent's tool calls
// ABOUTME: Unconfigured credentials degrade to a logged no-op, never an error

package crm

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

const defaultBaseURL = "https://api.icount.co.il/api/v3.php"

// ClientInfo is the contact detail captured from a conversation.
type ClientInfo struct {
	Name  string `json:"client_name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Client talks to the iCount API.
type Client struct {
	baseURL   string
	apiKey    string
	companyID string
	logger    *slog.Logger
	client    *http.Client
}

// NewClient creates a CRM client. Without credentials every call is a no-op
// so the assistant keeps working when billing is not set up.
func NewClient(cfg config.CRMConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		apiKey:    cfg.APIKey,
		companyID: cfg.CompanyID,
		logger:    logger.With("component", "crm"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) configured() bool {
	return c.apiKey != "" && c.companyID != ""
}

// CreateClient registers a new client record.
func (c *Client) CreateClient(ctx context.Context, info ClientInfo) error {
	if !c.configured() {
		c.logger.Warn("crm credentials missing, skipping client creation", "name", info.Name)
		return nil
	}
	if err := c.post(ctx, "/client/create", info); err != nil {
		return fmt.Errorf("creating crm client: %w", err)
	}
	c.logger.Info("crm client created", "name", info.Name)
	return nil
}

// CreateLead records a sales lead.
func (c *Client) CreateLead(ctx context.Context, info ClientInfo) error {
	if !c.configured() {
		c.logger.Warn("crm credentials missing, skipping lead creation", "name", info.Name)
		return nil
	}
	if err := c.post(ctx, "/lead/create", info); err != nil {
		return fmt.Errorf("creating crm lead: %w", err)
	}
	c.logger.Info("crm lead created", "name", info.Name)
	return nil
}

func (c *Client) post(ctx context.Context, path string, info ClientInfo) error {
	payload := map[string]any{
		"cid":         c.companyID,
		"client_name": info.Name,
	}
	if info.Phone != "" {
		payload["phone"] = info.Phone
	}
	if info.Email != "" {
		payload["email"] = info.Email
	}
	if info.Notes != "" {
		payload["notes"] = info.Notes
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling icount: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("icount returned %d: %s", resp.StatusCode, snippet)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
