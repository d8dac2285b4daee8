// ABOUTME: Thin client for the Green API WhatsApp gateway
// ABOUTME: Covers sends, typing indicators, media download and instance health

package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/wassist/handoff-gateway/internal/config"
)

// Client talks to one Green API instance. All methods are shaped the same
// way: every endpoint is {api_url}/waInstance{id}/{method}/{token}.
type Client struct {
	apiURL     string
	idInstance string
	apiToken   string
	client     *http.Client
}

// NewClient creates a client for the configured instance.
func NewClient(cfg config.GreenAPIConfig) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		idInstance: cfg.IDInstance,
		apiToken:   cfg.APIToken,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SendResult is the provider's acknowledgement of a send.
type SendResult struct {
	IDMessage string `json:"idMessage"`
}

// SendMessage sends a text message to a chat and returns the provider's
// message id.
func (c *Client) SendMessage(ctx context.Context, chatID, message string) (*SendResult, error) {
	payload := map[string]any{
		"chatId":  chatID,
		"message": message,
	}

	var result SendResult
	if err := c.postJSON(ctx, "sendMessage", payload, &result); err != nil {
		return nil, fmt.Errorf("sending message to %s: %w", chatID, err)
	}
	return &result, nil
}

// SendFileByUpload uploads raw bytes (voice replies) as a file message.
func (c *Client) SendFileByUpload(ctx context.Context, chatID, fileName string, data []byte) (*SendResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chatId", chatID); err != nil {
		return nil, fmt.Errorf("writing chatId field: %w", err)
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendFileByUpload"), &buf)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result SendResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("uploading file to %s: %w", chatID, err)
	}
	return &result, nil
}

// SendTyping shows a typing indicator in the chat. Best effort: the reply
// goes out either way, so callers typically discard the error.
func (c *Client) SendTyping(ctx context.Context, chatID string) error {
	payload := map[string]any{
		"chatId":       chatID,
		"presenceType": "composing",
	}
	if err := c.postJSON(ctx, "sendPresence", payload, nil); err != nil {
		return fmt.Errorf("sending typing indicator to %s: %w", chatID, err)
	}
	return nil
}

// InstanceState is the authorization state of the WhatsApp instance.
type InstanceState struct {
	StateInstance string `json:"stateInstance"`
}

// GetStateInstance reports whether the instance is authorized.
func (c *Client) GetStateInstance(ctx context.Context) (*InstanceState, error) {
	var state InstanceState
	if err := c.getJSON(ctx, "getStateInstance", &state); err != nil {
		return nil, fmt.Errorf("getting instance state: %w", err)
	}
	return &state, nil
}

// Settings is the subset of instance settings the gateway cares about.
type Settings struct {
	WID                       string `json:"wid"`
	OutgoingWebhook           string `json:"outgoingWebhook"`
	IncomingWebhook           string `json:"incomingWebhook"`
	OutgoingAPIMessageWebhook string `json:"outgoingAPIMessageWebhook"`
}

// GetSettings fetches the instance settings, including the owning WID.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := c.getJSON(ctx, "getSettings", &settings); err != nil {
		return nil, fmt.Errorf("getting instance settings: %w", err)
	}
	return &settings, nil
}

// DownloadFile fetches message media (voice notes) by its download URL.
// The URL comes from the webhook payload and is already signed.
func (c *Client) DownloadFile(ctx context.Context, downloadURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading media body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", c.apiURL, c.idInstance, method, c.apiToken)
}

func (c *Client) postJSON(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, method string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(method), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling green api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("green api returned %d: %s", resp.StatusCode, snippet)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
