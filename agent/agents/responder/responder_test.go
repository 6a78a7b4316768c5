package responder

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	tools     []*schema.ToolInfo
	lastInput []*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

func toolCall(name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:       "call_1",
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}
}

func sessionContext() contractx.SessionContext {
	price := 50.0
	return contractx.SessionContext{
		ConversationID: "c1",
		ActiveStep:     statex.StepNone,
		Catalog: contractx.Catalog{
			Services:      []contractx.Service{{ID: "s1", Name: "Corte de cabelo", Price: &price}},
			Professionals: []contractx.Professional{{ID: "p1", Name: "Ana", Active: true}, {ID: "p2", Name: "Bia"}},
		},
		Now: time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC),
	}
}

func TestRespondText(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{Role: schema.Assistant, Content: " Olá! Como posso ajudar? "}}}
	r, err := newResponder(context.Background(), fake, "responder prompt")
	if err != nil {
		t.Fatalf("newResponder() error = %v", err)
	}
	if len(fake.tools) != 3 {
		t.Fatalf("expected 3 bound tools, got %d", len(fake.tools))
	}

	resp, err := r.Respond(context.Background(), "oi", sessionContext())
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Text != "Olá! Como posso ajudar?" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if len(resp.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls, got %#v", resp.ToolCalls)
	}

	if len(fake.lastInput) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(fake.lastInput))
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(fake.lastInput[1].Content), &payload); err != nil {
		t.Fatalf("user message is not JSON: %v", err)
	}
	if payload["user_message"] != "oi" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if payload["now"] != "2026-10-14 15:00 (Wed)" {
		t.Fatalf("unexpected now: %v", payload["now"])
	}
	if pros, _ := payload["professionals"].([]any); len(pros) != 1 {
		t.Fatalf("expected only active professionals, got %#v", payload["professionals"])
	}
}

func TestRespondToolCallMapping(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			toolCall(contractx.ToolStartScheduling, `{"service_name":"corte"}`),
			toolCall(contractx.ToolListProfessionals, ``),
		},
	}}}
	r, err := newResponder(context.Background(), fake, "responder prompt")
	if err != nil {
		t.Fatalf("newResponder() error = %v", err)
	}

	resp, err := r.Respond(context.Background(), "quero marcar um corte", sessionContext())
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if len(resp.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(resp.ToolCalls))
	}
	start, ok := resp.ToolCalls[0].(contractx.StartSchedulingRequest)
	if !ok || start.ServiceName != "corte" {
		t.Fatalf("unexpected first call: %#v", resp.ToolCalls[0])
	}
	if _, ok := resp.ToolCalls[1].(contractx.ListProfessionalsRequest); !ok {
		t.Fatalf("unexpected second call: %#v", resp.ToolCalls[1])
	}
}

func TestRespondUnknownTool(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{
		Role:      schema.Assistant,
		ToolCalls: []schema.ToolCall{toolCall("inventory.query", `{"query":"x"}`)},
	}}}
	r, err := newResponder(context.Background(), fake, "responder prompt")
	if err != nil {
		t.Fatalf("newResponder() error = %v", err)
	}

	_, err = r.Respond(context.Background(), "oi", sessionContext())
	if !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRespondErrors(t *testing.T) {
	t.Parallel()

	if _, err := newResponder(context.Background(), &fakeToolCallingModel{}, "  "); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}

	empty := &fakeToolCallingModel{responses: []*schema.Message{{Role: schema.Assistant}}}
	r, err := newResponder(context.Background(), empty, "responder prompt")
	if err != nil {
		t.Fatalf("newResponder() error = %v", err)
	}
	if _, err := r.Respond(context.Background(), "oi", sessionContext()); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
	if _, err := r.Respond(context.Background(), " ", sessionContext()); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	failing := &fakeToolCallingModel{err: errors.New("upstream 502")}
	r, err = newResponder(context.Background(), failing, "responder prompt")
	if err != nil {
		t.Fatalf("newResponder() error = %v", err)
	}
	if _, err := r.Respond(context.Background(), "oi", sessionContext()); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}
