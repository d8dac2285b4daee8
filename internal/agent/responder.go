// ABOUTME: Hosted-LLM responder with a function-calling dispatch loop
// ABOUTME: The prompt and reasoning are opaque config; this is request plumbing only

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/wassist/handoff-gateway/internal/config"
)

// maxToolRounds caps the dispatch loop so a confused model cannot spin.
const maxToolRounds = 5

var errNoChoices = errors.New("model returned no choices")

// Tool is one function the model may call during a reply.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any

	// Run executes the call and returns the result text fed back to the model.
	Run func(ctx context.Context, args json.RawMessage) (string, error)
}

// Responder turns one user message into one assistant reply, dispatching any
// tool calls the model makes along the way.
type Responder struct {
	client   openai.Client
	model    string
	prompt   string
	location *time.Location
	tools    map[string]Tool
	logger   *slog.Logger

	now func() time.Time
}

// NewResponder creates a responder from config. Extra request options are for
// tests (base URL overrides).
func NewResponder(cfg config.AgentConfig, logger *slog.Logger, opts ...option.RequestOption) *Responder {
	location := time.UTC
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			location = loc
		} else {
			logger.Warn("invalid agent timezone, using UTC", "timezone", cfg.Timezone)
		}
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	return &Responder{
		client:   openai.NewClient(clientOpts...),
		model:    cfg.Model,
		prompt:   cfg.SystemPrompt,
		location: location,
		tools:    make(map[string]Tool),
		logger:   logger.With("component", "agent"),
		now:      time.Now,
	}
}

// Register adds a tool to the responder's dispatch table.
func (r *Responder) Register(tool Tool) {
	r.tools[tool.Name] = tool
}

// Reply generates the assistant's answer to one message. The sender id and
// current time are prepended as context so the model can personalize replies
// and answer time questions without a tool round-trip.
func (r *Responder) Reply(ctx context.Context, senderID, message string) (string, error) {
	now := r.now().In(r.location)
	contextLine := fmt.Sprintf("[Current Date/Time: %s][Sender ID: %s]",
		now.Format("Monday, 2 January 2006 15:04"), senderID)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(r.prompt),
			openai.UserMessage(contextLine + "\n" + message),
		},
		Tools: r.toolParams(),
	}

	for round := 0; round <= maxToolRounds; round++ {
		completion, err := r.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("calling model: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", errNoChoices
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			result := r.dispatch(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
		}
	}

	return "", fmt.Errorf("tool dispatch did not converge after %d rounds", maxToolRounds)
}

// dispatch runs one tool call. Failures are reported back to the model as
// text so it can apologize instead of the whole reply erroring out.
func (r *Responder) dispatch(ctx context.Context, name string, args json.RawMessage) string {
	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("model called unknown tool", "tool", name)
		return fmt.Sprintf("error: unknown tool %q", name)
	}

	result, err := tool.Run(ctx, args)
	if err != nil {
		r.logger.Error("tool call failed", "tool", name, "error", err)
		return "error: " + err.Error()
	}

	r.logger.Debug("tool call completed", "tool", name)
	return result
}

func (r *Responder) toolParams() []openai.ChatCompletionToolUnionParam {
	if len(r.tools) == 0 {
		return nil
	}
	params := make([]openai.ChatCompletionToolUnionParam, 0, len(r.tools))
	for _, tool := range r.tools {
		params = append(params, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  openai.FunctionParameters(tool.Parameters),
		}))
	}
	return params
}
