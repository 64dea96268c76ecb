package flow

import (
	"context"
	"testing"
	"time"

	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/session"
	"github.com/chan4lk/autogen-workflows/tool"
)

// mockFlowAgent is a configurable FlowAgent used across the flow tests.
type mockFlowAgent struct {
	name      string
	llm       model.Model
	tools     map[string]tool.Tool
	subAgents []FlowAgent
	transfer  bool
	streaming bool
	outputKey string
}

func (m *mockFlowAgent) GetName() string     { return m.name }
func (m *mockFlowAgent) GetLLM() model.Model { return m.llm }
func (m *mockFlowAgent) ResolveInstructions(*core.RunContext) (string, error) {
	return "You are a test assistant.", nil
}
func (m *mockFlowAgent) GetTools() map[string]tool.Tool {
	if m.tools == nil {
		return map[string]tool.Tool{}
	}
	return m.tools
}
func (m *mockFlowAgent) GetSubAgents() []FlowAgent      { return m.subAgents }
func (m *mockFlowAgent) IsFunctionCallingEnabled() bool { return len(m.tools) > 0 }
func (m *mockFlowAgent) IsStreamingEnabled() bool       { return m.streaming }
func (m *mockFlowAgent) IsTransferEnabled() bool        { return m.transfer }
func (m *mockFlowAgent) GetOutputKey() string           { return m.outputKey }
func (m *mockFlowAgent) MaxHistoryMessages() int        { return 50 }
func (m *mockFlowAgent) ExecuteTool(toolCtx *core.ToolContext, toolName string, args string) (any, error) {
	return executeTool(m.GetTools(), toolCtx, toolName, args)
}
func (m *mockFlowAgent) TransferToAgent(*core.RunContext, string) error { return nil }

// newFlowRunContext builds a RunContext with an in-memory session containing
// the given user message.
func newFlowRunContext(t *testing.T, userMessage string) *core.RunContext {
	t.Helper()

	ctx := context.Background()
	eventChan := make(chan core.Event, 100)
	sessStore := session.NewInMemoryStore()
	sess, err := sessStore.Create("test-session")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if userMessage != "" {
		if err := sessStore.AppendEvent("test-session", core.NewUserMessageEvent("test-run", userMessage)); err != nil {
			t.Fatalf("append user event: %v", err)
		}
	}
	userContent := core.NewUserText(userMessage)

	return core.NewRunContext(ctx, "test-session", "test-run", core.AgentInfo{Name: "TestAgent", Type: "test"}, userContent, 0, eventChan, nil, sess, sessStore, nil, nil, logging.NoOpLogger{})
}

// drainFlow collects all events and the first error from a flow execution.
func drainFlow(t *testing.T, evCh <-chan core.Event, errCh <-chan error) ([]core.Event, error) {
	t.Helper()

	var events []core.Event
	var firstErr error
	timeout := time.After(5 * time.Second)

	for evCh != nil || errCh != nil {
		select {
		case ev, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			events = append(events, ev)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
		case <-timeout:
			t.Fatalf("timeout draining flow")
		}
	}
	return events, firstErr
}

func TestSingleAgentFlow_TextResponse(t *testing.T) {
	mockModel := model.NewMockModel("test-model", "mock")
	mockModel.AddResponse("test message", "Hello! This is a test response.")
	agent := &mockFlowAgent{name: "test-agent", llm: mockModel}

	runCtx := newFlowRunContext(t, "test message")
	f := NewSingleAgentFlow(agent)

	evCh, errCh, err := f.Execute(runCtx)
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}

	events, flowErr := drainFlow(t, evCh, errCh)
	if flowErr != nil {
		t.Fatalf("unexpected flow error: %v", flowErr)
	}
	if len(events) == 0 {
		t.Fatal("expected at least one event from flow execution")
	}

	final := events[len(events)-1]
	if final.Content == nil || final.Content.TextOf() != "Hello! This is a test response." {
		t.Fatalf("unexpected final content: %+v", final.Content)
	}
	if final.TurnComplete == nil || !*final.TurnComplete {
		t.Fatal("expected final event to be marked turn complete")
	}
}

func TestBaseFlow_ToolLoop(t *testing.T) {
	called := false
	echo := tool.NewFunctionTool("echo", "echoes its input", map[string]any{
		"type":       "object",
		"properties": map[string]any{"value": map[string]any{"type": "string"}},
	}, func(tc *core.ToolContext, args map[string]any) (any, error) {
		called = true
		return args["value"], nil
	})

	mockModel := model.NewMockModel("test-model", "mock")
	mockModel.QueueToolCall("echo", `{"value":"ping"}`)
	mockModel.QueueText("The tool said ping.")

	agent := &mockFlowAgent{
		name:  "tool-agent",
		llm:   mockModel,
		tools: map[string]tool.Tool{"echo": echo},
	}

	runCtx := newFlowRunContext(t, "call the echo tool")
	f := NewSingleAgentFlow(agent)

	evCh, errCh, err := f.Execute(runCtx)
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}

	events, flowErr := drainFlow(t, evCh, errCh)
	if flowErr != nil {
		t.Fatalf("unexpected flow error: %v", flowErr)
	}
	if !called {
		t.Fatal("expected tool to be invoked")
	}

	var sawCall, sawResponse, sawFinal bool
	for _, ev := range events {
		if len(ev.GetFunctionCalls()) > 0 {
			sawCall = true
		}
		if len(ev.GetFunctionResponses()) > 0 {
			sawResponse = true
		}
		if ev.IsFinalResponse() && ev.Content != nil && ev.Content.TextOf() == "The tool said ping." {
			sawFinal = true
		}
	}
	if !sawCall || !sawResponse || !sawFinal {
		t.Fatalf("missing events: call=%v response=%v final=%v", sawCall, sawResponse, sawFinal)
	}
}

func TestBaseFlow_ModelErrorSurfaces(t *testing.T) {
	// Empty contents makes the mock model report an error.
	mockModel := model.NewMockModel("test-model", "mock")
	agent := &mockFlowAgent{name: "err-agent", llm: mockModel}

	runCtx := newFlowRunContext(t, "")
	f := NewBaseFlow(agent) // no processors, so req.Contents stays empty

	evCh, errCh, err := f.Execute(runCtx)
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}

	_, flowErr := drainFlow(t, evCh, errCh)
	if flowErr == nil {
		t.Fatal("expected model error to surface on the error channel")
	}
}

func TestBaseFlow_ModelCallBudget(t *testing.T) {
	mockModel := model.NewMockModel("test-model", "mock")
	mockModel.QueueToolCall("echo", `{"value":"1"}`)
	mockModel.QueueToolCall("echo", `{"value":"2"}`)
	mockModel.QueueText("done")

	echo := tool.NewFunctionTool("echo", "echoes", map[string]any{
		"type":       "object",
		"properties": map[string]any{"value": map[string]any{"type": "string"}},
	}, func(tc *core.ToolContext, args map[string]any) (any, error) { return args["value"], nil })

	agent := &mockFlowAgent{name: "budget-agent", llm: mockModel, tools: map[string]tool.Tool{"echo": echo}}

	ctx := context.Background()
	eventChan := make(chan core.Event, 100)
	sessStore := session.NewInMemoryStore()
	sess, _ := sessStore.Create("budget-session")
	_ = sessStore.AppendEvent("budget-session", core.NewUserMessageEvent("run", "go"))
	// Allow only two model calls; the third turn must fail.
	runCtx := core.NewRunContext(ctx, "budget-session", "run", core.AgentInfo{Name: "budget-agent", Type: "test"}, core.NewUserText("go"), 2, eventChan, nil, sess, sessStore, nil, nil, logging.NoOpLogger{})

	f := NewSingleAgentFlow(agent)
	evCh, errCh, err := f.Execute(runCtx)
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}

	_, flowErr := drainFlow(t, evCh, errCh)
	if flowErr == nil {
		t.Fatal("expected budget exhaustion error")
	}
}

func TestSelector_SelectFlow(t *testing.T) {
	isolated := &mockFlowAgent{name: "solo"}
	if _, ok := NewSelector().SelectFlow(isolated).(*SingleAgentFlow); !ok {
		t.Fatal("expected SingleAgentFlow for isolated agent")
	}

	parent := &mockFlowAgent{name: "parent", transfer: true, subAgents: []FlowAgent{&mockFlowAgent{name: "child"}}}
	if _, ok := NewSelector().SelectFlow(parent).(*MultiAgentFlow); !ok {
		t.Fatal("expected MultiAgentFlow for agent with sub-agents")
	}
}
