// Package responder is the generic conversational reply generator used for
// turns the scheduling skill does not own.
package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	datetimex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/datetime"
	llmx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/llm"
	promptx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/tool"
)

type responderImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.TurnResponder = (*responderImpl)(nil)

// New builds the responder through the configured OpenRouter model.
func New(ctx context.Context, cfg llmx.Config) (contractx.TurnResponder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	modelCfg := cfg.OpenRouterForResponder()
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create responder model: %v", contractx.ErrModelInvoke, err)
	}
	return newResponder(ctx, chatModel, promptx.LoadPromptSet().Responder)
}

func newResponder(ctx context.Context, chatModel einomodel.ToolCallingChatModel, systemPrompt string) (*responderImpl, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: responder system prompt", contractx.ErrPromptMissing)
	}
	toolModel, err := chatModel.WithTools(toolx.Infos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind responder tools: %v", contractx.ErrModelInvoke, err)
	}
	runner, err := compileResponderGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile responder graph: %v", contractx.ErrModelInvoke, err)
	}
	return &responderImpl{runner: runner}, nil
}

func (r *responderImpl) Respond(ctx context.Context, text string, sc contractx.SessionContext) (contractx.Response, error) {
	if strings.TrimSpace(text) == "" {
		return contractx.Response{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	input, err := json.Marshal(buildPayload(text, sc))
	if err != nil {
		return contractx.Response{}, fmt.Errorf("%w: marshal responder payload: %v", contractx.ErrValidation, err)
	}

	msg, err := r.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.Response{}, fmt.Errorf("%w: responder invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.Response{}, fmt.Errorf("%w: empty responder message", contractx.ErrSchemaViolation)
	}

	calls, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return contractx.Response{}, err
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" && len(calls) == 0 {
		return contractx.Response{}, fmt.Errorf("%w: responder returned neither text nor tool calls", contractx.ErrSchemaViolation)
	}
	return contractx.Response{Text: content, ToolCalls: calls}, nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}
		req, err := toolx.Decode(name, call.Function.Arguments)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func buildPayload(text string, sc contractx.SessionContext) map[string]any {
	services := make([]map[string]any, 0, len(sc.Catalog.Services))
	for _, s := range sc.Catalog.Services {
		item := map[string]any{"name": s.Name}
		if s.Price != nil {
			item["price"] = *s.Price
		}
		services = append(services, item)
	}
	professionals := make([]string, 0, len(sc.Catalog.Professionals))
	for _, p := range sc.Catalog.Professionals {
		if p.Active {
			professionals = append(professionals, p.Name)
		}
	}

	payload := map[string]any{
		"user_message":    text,
		"already_greeted": sc.AlreadyGreeted,
		"active_step":     sc.ActiveStep,
		"interruption":    sc.Interruption,
		"services":        services,
		"professionals":   professionals,
	}
	if !sc.Now.IsZero() {
		payload["now"] = sc.Now.In(datetimex.Location()).Format("2006-01-02 15:04 (Mon)")
	}
	return payload
}
