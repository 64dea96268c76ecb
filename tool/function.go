package tool

import (
	"fmt"
	"time"

	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/internal/util"
)

// FunctionTool exposes a plain Go function as a tool. Arguments are validated
// against a minimal JSON-Schema-like parameter map before the function runs,
// and failures surface as *ToolError with a consistent code: VALIDATION_ERROR
// for schema mismatches, EXECUTION_ERROR for function errors, with *ToolError
// returns from the function forwarded unchanged.
//
// A FunctionTool holds no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and
// implementation. Only the schema subset util.ValidateParameters checks
// (type, properties, required, enum) needs to be supplied.
//
// Example:
//
//	planTool := NewFunctionTool(
//	  "submit_document_plan",
//	  "Submit a plan for the document",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "document_plan": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"document_plan"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    tc.SetState("document_plan", args["document_plan"])
//	    return "Plan submitted", nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct via
// reflection, equivalent to passing util.CreateSchema(structType) to
// NewFunctionTool. Convenient for simple argument containers:
//
//	type FeedbackArgs struct {
//	  Section  string `json:"section" description:"Document section"`
//	  Severity string `json:"severity" enum:"minor,major,critical"`
//	}
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema, then invokes the wrapped
// function. Errors come back as *ToolError per the type's error semantics.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)
			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
