package flow

import (
	"testing"

	"github.com/chan4lk/autogen-workflows/model"
)

func TestTransferToolInjector_Injection(t *testing.T) {
	agent := &mockFlowAgent{
		name:      "root",
		transfer:  true,
		subAgents: []FlowAgent{&mockFlowAgent{name: "child"}},
	}
	inj := NewTransferToolInjector()
	rc := newExecRunContext(t)

	req := &model.Request{}
	if err := inj.ProcessRequest(rc, req, agent); err != nil {
		t.Fatalf("inject error: %v", err)
	}

	found := false
	for _, td := range req.Tools {
		if td.Function.Name == "transfer_to_agent" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected transfer_to_agent tool definition injected")
	}

	// second call should not duplicate
	_ = inj.ProcessRequest(rc, req, agent)
	count := 0
	for _, td := range req.Tools {
		if td.Function.Name == "transfer_to_agent" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected single definition, got %d", count)
	}
}

func TestTransferToolInjector_SkipsWhenDisabled(t *testing.T) {
	agent := &mockFlowAgent{name: "solo"}
	rc := newExecRunContext(t)

	req := &model.Request{}
	if err := NewTransferToolInjector().ProcessRequest(rc, req, agent); err != nil {
		t.Fatalf("inject error: %v", err)
	}
	if len(req.Tools) != 0 {
		t.Fatalf("expected no injection for isolated agent, got %d tools", len(req.Tools))
	}
}
