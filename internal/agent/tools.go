// ABOUTME: Built-in tools the assistant can call during a conversation
// ABOUTME: Lead registration, CRM client creation and the current time

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wassist/handoff-gateway/internal/automation"
	"github.com/wassist/handoff-gateway/internal/crm"
)

// LeadRegistrar delivers captured leads to the automation flow.
type LeadRegistrar interface {
	RegisterLead(ctx context.Context, lead automation.Lead) error
}

// CRMCreator records clients in the CRM.
type CRMCreator interface {
	CreateClient(ctx context.Context, info crm.ClientInfo) error
}

// RegisterBuiltinTools wires the standard tool set onto a responder.
func RegisterBuiltinTools(r *Responder, leads LeadRegistrar, crmClient CRMCreator) {
	r.Register(registerLeadTool(leads))
	r.Register(createCRMClientTool(crmClient))
	r.Register(currentTimeTool(r))
}

func registerLeadTool(leads LeadRegistrar) Tool {
	return Tool{
		Name:        "register_lead",
		Description: "Register a new sales lead when a customer shows interest and shares contact details.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":    map[string]any{"type": "string", "description": "The customer's full name"},
				"phone":   map[string]any{"type": "string", "description": "The customer's phone number"},
				"details": map[string]any{"type": "string", "description": "What the customer is interested in"},
			},
			"required": []string{"name", "phone"},
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var lead automation.Lead
			if err := json.Unmarshal(args, &lead); err != nil {
				return "", fmt.Errorf("parsing lead arguments: %w", err)
			}
			if err := leads.RegisterLead(ctx, lead); err != nil {
				return "", err
			}
			return "lead registered", nil
		},
	}
}

func createCRMClientTool(crmClient CRMCreator) Tool {
	return Tool{
		Name:        "create_crm_client",
		Description: "Create a client record in the CRM once the customer confirms a booking or purchase.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"client_name": map[string]any{"type": "string", "description": "The client's full name"},
				"phone":       map[string]any{"type": "string"},
				"email":       map[string]any{"type": "string"},
				"notes":       map[string]any{"type": "string"},
			},
			"required": []string{"client_name"},
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var info crm.ClientInfo
			if err := json.Unmarshal(args, &info); err != nil {
				return "", fmt.Errorf("parsing client arguments: %w", err)
			}
			if err := crmClient.CreateClient(ctx, info); err != nil {
				return "", err
			}
			return "client created", nil
		},
	}
}

func currentTimeTool(r *Responder) Tool {
	return Tool{
		Name:        "get_current_time",
		Description: "Get the current date and time in the business's timezone.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Run: func(_ context.Context, _ json.RawMessage) (string, error) {
			return r.now().In(r.location).Format(time.RFC1123), nil
		},
	}
}
