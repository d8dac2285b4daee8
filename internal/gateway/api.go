// ABOUTME: HTTP handlers for the webhook, chat processor and health endpoints
// ABOUTME: The webhook always answers 200 so the provider never retry-storms

package gateway

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/wassist/handoff-gateway/internal/chat"
)

// maxWebhookBody bounds what we read from the provider.
const maxWebhookBody = 1 << 20

// webhookResponse is the JSON body for POST /webhook.
type webhookResponse struct {
	Status string `json:"status"`
}

// handleWebhook handles POST /webhook. Whatever happens inside, the provider
// gets a 200: a non-2xx would make it redeliver an event we already decided
// about.
func (g *Gateway) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		g.logger.Error("reading webhook body failed", "error", err)
		writeJSON(w, http.StatusOK, webhookResponse{Status: "error"})
		return
	}

	tag, err := g.gate.Handle(r.Context(), body)
	if err != nil {
		g.logger.Error("webhook handling failed", "status", tag, "error", err)
		writeJSON(w, http.StatusOK, webhookResponse{Status: "error"})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Status: tag})
}

// handleChat handles POST /api/chat, the chat-processor endpoint the gate's
// forward client targets.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ChatID == "" {
		http.Error(w, "chatId is required", http.StatusBadRequest)
		return
	}

	resp, err := g.chat.Process(r.Context(), &req)
	if err != nil {
		g.logger.Error("chat processing failed", "chat_id", req.ChatID, "error", err)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /health.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady handles GET /health/ready: ok only when the store answers.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := g.store.ListSessions(r.Context()); err != nil {
		g.logger.Error("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
