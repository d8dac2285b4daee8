// ABOUTME: ElevenLabs client for voice-message transcription and spoken replies
// ABOUTME: Speech-to-text uses the scribe model; text-to-speech returns MP3 bytes

package speech

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

const defaultBaseURL = "https://api.elevenlabs.io"

// Client wraps the two ElevenLabs endpoints the gateway uses.
type Client struct {
	baseURL      string
	apiKey       string
	voiceID      string
	languageCode string
	client       *http.Client
}

// NewClient creates a speech client. Enabled() is false without an API key;
// callers fall back to text-only behavior.
func NewClient(cfg config.SpeechConfig) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		apiKey:       cfg.APIKey,
		voiceID:      cfg.VoiceID,
		languageCode: cfg.LanguageCode,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether the client is configured to make calls.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Transcribe converts voice-note audio into text, hinting the configured
// language to the model.
func (c *Client) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("model_id", "scribe_v1"); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if c.languageCode != "" {
		if err := writer.WriteField("language_code", c.languageCode); err != nil {
			return "", fmt.Errorf("writing language field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("creating audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("writing audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return "", fmt.Errorf("creating transcription request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling speech-to-text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("speech-to-text returned %d: %s", resp.StatusCode, snippet)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}
	return result.Text, nil
}

// Synthesize renders text as MP3 audio with the configured voice.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling synthesis payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling text-to-speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("text-to-speech returned %d: %s", resp.StatusCode, snippet)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio body: %w", err)
	}
	return audio, nil
}
