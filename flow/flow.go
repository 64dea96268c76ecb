// Package flow provides the execution pipeline that sits between agents and
// language models.
//
// A flow drives the request -> model -> tool loop for one agent turn. Request
// processors shape the outgoing model request (instructions, conversation
// history, dynamically injected tool definitions) and response processors
// inspect model output before it is emitted as events. This keeps the agent
// layer free of model plumbing and makes the pipeline composable.
package flow

import (
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/tool"
)

// Flow defines the interface for agent execution flows.
//
// Execute runs the complete pipeline for one invocation of an agent and
// returns a channel of events plus a channel of unrecoverable errors. Both
// channels are closed when the flow terminates.
type Flow interface {
	Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error, error)
}

// FlowAgent defines the interface that agents must implement to work with flows.
//
// It exposes the agent capabilities a flow needs without leaking the full
// agent implementation.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// ResolveInstructions produces the system instructions for this turn.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// GetTools returns the registered tools for function calling.
	GetTools() map[string]tool.Tool

	// GetSubAgents returns the list of child agents.
	GetSubAgents() []FlowAgent

	// IsFunctionCallingEnabled returns whether function calling is enabled.
	IsFunctionCallingEnabled() bool

	// IsStreamingEnabled returns whether streaming responses are enabled.
	IsStreamingEnabled() bool

	// IsTransferEnabled returns whether agent transfer is enabled.
	IsTransferEnabled() bool

	// GetOutputKey returns the session state key for saving final responses,
	// or "" when the agent does not persist its output.
	GetOutputKey() string

	// MaxHistoryMessages returns the maximum number of conversation history messages to keep.
	MaxHistoryMessages() int

	// ExecuteTool executes a named tool with the given JSON arguments.
	ExecuteTool(toolCtx *core.ToolContext, toolName string, args string) (any, error)

	// TransferToAgent transfers execution to a named sub-agent.
	TransferToAgent(runCtx *core.RunContext, agentName string) error
}

// RequestProcessor processes the request before sending it to the LLM.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the chat request before LLM execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor processes the response after receiving it from the LLM.
type ResponseProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessResponse handles the LLM response and may stage session state changes.
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
