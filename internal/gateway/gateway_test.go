// ABOUTME: End-to-end tests for the assembled gateway's HTTP surface
// ABOUTME: Drives the webhook with real payloads and checks the always-200 contract

package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wassist/handoff-gateway/internal/config"
)

func testConfig(t *testing.T, forwardURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "gateway.db")},
		Admission: config.AdmissionConfig{
			OwnerWID:          "972500000001@c.us",
			AuthorizedNumbers: []string{"972526672663"},
			UnpausePhrases:    []string{"resume bot"},
			GroupSuffix:       "@g.us",
			AudioPlaceholder:  "[voice message]",
			PauseDuration:     6 * time.Hour,
			VIPPauseDuration:  24 * time.Hour,
		},
		Forward: config.ForwardConfig{URL: forwardURL, Timeout: 2 * time.Second},
	}
}

func setupGateway(t *testing.T, forwardURL string) *Gateway {
	t.Helper()
	gw, err := New(testConfig(t, forwardURL), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
	})
	return gw
}

func serve(gw *Gateway, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	gw.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func postWebhook(t *testing.T, gw *Gateway, body string) webhookResponse {
	t.Helper()
	rec := serve(gw, http.MethodPost, "/webhook", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWebhookForwardsAdmittedMessage(t *testing.T) {
	forwarded := make(chan map[string]any, 1)
	processor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		forwarded <- payload
	}))
	defer processor.Close()

	gw := setupGateway(t, processor.URL)

	body := `{
		"typeWebhook": "incomingMessageReceived",
		"idMessage": "m1",
		"senderData": {"chatId": "972526672663@c.us", "sender": "972526672663@c.us"},
		"messageData": {"typeMessage": "textMessage", "textMessageData": {"textMessage": "hello"}}
	}`

	resp := postWebhook(t, gw, body)
	assert.Equal(t, "forwarded", resp.Status)

	select {
	case payload := <-forwarded:
		assert.Equal(t, "hello", payload["message"])
		assert.Equal(t, "972526672663@c.us", payload["chatId"])
		assert.Equal(t, false, payload["isPaused"])
	case <-time.After(2 * time.Second):
		t.Fatal("no forward received")
	}
}

func TestWebhookAlwaysAnswers200(t *testing.T) {
	gw := setupGateway(t, "http://127.0.0.1:1/unreachable")

	tests := []struct {
		name       string
		body       string
		wantStatus string
	}{
		{"malformed json", `{not json`, "ignored"},
		{"group message", `{"typeWebhook": "incomingMessageReceived", "senderData": {"chatId": "1203@g.us"}}`, "ignored_group"},
		{"unknown sender", `{"typeWebhook": "incomingMessageReceived", "senderData": {"chatId": "972599@c.us"}}`, "ignored_whitelist"},
		{"hand-off", `{"typeWebhook": "outgoingMessageReceived", "senderData": {"chatId": "972526672663@c.us"}, "messageData": {"textMessageData": {"textMessage": "taking over"}}}`, "paused"},
		{"forward failure still forwarded", `{"typeWebhook": "incomingMessageReceived", "idMessage": "m9", "senderData": {"chatId": "972526672663@c.us"}, "messageData": {"textMessageData": {"textMessage": "hi"}}}`, "forwarded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postWebhook(t, gw, tt.body)
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestWebhookDuplicateDropped(t *testing.T) {
	processor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer processor.Close()
	gw := setupGateway(t, processor.URL)

	body := `{"typeWebhook": "incomingMessageReceived", "idMessage": "dup", "senderData": {"chatId": "972526672663@c.us"}, "messageData": {"textMessageData": {"textMessage": "hi"}}}`

	assert.Equal(t, "forwarded", postWebhook(t, gw, body).Status)
	assert.Equal(t, "duplicate", postWebhook(t, gw, body).Status)
}

func TestWebhookPausePersists(t *testing.T) {
	gw := setupGateway(t, "http://127.0.0.1:1/unreachable")

	body := `{"typeWebhook": "outgoingMessageReceived", "senderData": {"chatId": "972526672663@c.us"}, "messageData": {"textMessageData": {"textMessage": "I got this"}}}`
	assert.Equal(t, "paused", postWebhook(t, gw, body).Status)

	session, err := gw.store.GetSession(context.Background(), "972526672663@c.us")
	require.NoError(t, err)
	assert.True(t, session.IsPaused)
}

func TestChatEndpointRejectsBadRequests(t *testing.T) {
	gw := setupGateway(t, "http://127.0.0.1:1/unreachable")

	assert.Equal(t, http.StatusBadRequest, serve(gw, http.MethodPost, "/api/chat", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(gw, http.MethodPost, "/api/chat", `{"message": "hi"}`).Code)
}

func TestHealthEndpoints(t *testing.T) {
	gw := setupGateway(t, "http://127.0.0.1:1/unreachable")

	assert.Equal(t, http.StatusOK, serve(gw, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(gw, http.MethodGet, "/health/ready", "").Code)
}

func TestReadyFailsWhenStoreClosed(t *testing.T) {
	gw := setupGateway(t, "http://127.0.0.1:1/unreachable")
	require.NoError(t, gw.store.Close())

	assert.Equal(t, http.StatusServiceUnavailable, serve(gw, http.MethodGet, "/health/ready", "").Code)
}

func TestRunAndGracefulShutdown(t *testing.T) {
	gw, err := New(testConfig(t, "http://127.0.0.1:1/unreachable"), slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}
