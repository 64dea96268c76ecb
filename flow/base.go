package flow

import (
	"fmt"

	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/model"
)

// BaseFlow drives the request -> LLM -> (optional tool loop) cycle for one
// agent with pluggable pre/post processors. Tool calls returned by the model
// are executed through a FunctionExecutor and their responses are merged into
// a single event per model turn so downstream consumers see one atomic result.
type BaseFlow struct {
	agent              FlowAgent
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
	executor           FunctionExecutor
}

// NewBaseFlow creates a new basic single-agent flow.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:              agent,
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
		executor:           NewParallelFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true}),
	}
}

// AddRequestProcessor appends a request processor; order of registration
// defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed after each model chunk.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// SetFunctionExecutor replaces the default tool executor.
func (f *BaseFlow) SetFunctionExecutor(executor FunctionExecutor) {
	if executor != nil {
		f.executor = executor
	}
}

// Execute launches the flow asynchronously and returns a channel of Events
// plus a channel of unrecoverable errors. Both channels are closed when a
// final response is emitted or the flow aborts. Callers should range over the
// event channel and drain the error channel.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error, error) {
	eventChan := make(chan core.Event, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		for {
			last, err := f.runOnce(runCtx, eventChan)
			if err != nil {
				errChan <- err
				return
			}
			if last == nil {
				return
			}
			// A function response means the model needs another turn to
			// observe the tool results.
			if len(last.GetFunctionResponses()) > 0 {
				// Tool actions may have requested a transfer or escalation;
				// the runner handles those, this flow's work is done.
				if last.Actions.TransferToAgent != nil || (last.Actions.Escalate != nil && *last.Actions.Escalate) {
					return
				}
				continue
			}
			if last.IsPartial() {
				runCtx.LogWarn("flow.unexpected.partial", "agent", f.agent.GetName(), "event_id", last.ID)
				return
			}
			if last.IsFinalResponse() {
				return
			}
		}
	}()

	return eventChan, errChan, nil
}

// runOnce performs one model turn (including any tool executions) and returns
// the last emitted Event (final or intermediate). A nil event with nil error
// signals termination.
func (f *BaseFlow) runOnce(runCtx *core.RunContext, eventChan chan<- core.Event) (*core.Event, error) {
	// Refresh the session snapshot so request processors see the latest
	// conversation, including tool responses persisted by the runner.
	if err := runCtx.RefreshSession(); err != nil {
		runCtx.LogWarn("flow.session.refresh.failed", "agent", f.agent.GetName(), "error", err.Error())
	}

	req := new(model.Request)

	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			return nil, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}

	if f.agent.IsFunctionCallingEnabled() {
		tools := f.agent.GetTools()
		if len(tools) > 0 {
			toolDefinitions := make([]model.ToolDefinition, 0, len(tools))
			for _, t := range tools {
				toolDefinitions = append(toolDefinitions, model.ToolDefinition{
					Type: "function",
					Function: model.FunctionDefinition{
						Name:        t.Name(),
						Description: t.Description(),
						Parameters:  t.Parameters(),
					},
				})
			}
			req.Tools = append(toolDefinitions, req.Tools...)
		}
	}

	req.Stream = f.agent.IsStreamingEnabled()

	// Budget check before every model turn guards against runaway tool loops.
	if runCtx.Limiter != nil {
		if err := runCtx.Limiter.Increment(); err != nil {
			return nil, err
		}
	}

	llm := f.agent.GetLLM()
	respCh, modelErrCh := llm.Generate(runCtx.Context, *req)

	// emit sends an event and, for non-partial events, waits until the runner
	// confirms persistence via the resume channel.
	emit := func(ev core.Event) error {
		select {
		case <-runCtx.Context.Done():
			return runCtx.Context.Err()
		case eventChan <- ev:
		}
		if !ev.IsPartial() && runCtx.Resume != nil {
			select {
			case <-runCtx.Context.Done():
				return runCtx.Context.Err()
			case <-runCtx.Resume:
			}
		}
		return nil
	}

	var lastEvent *core.Event

	// Drain both channels fully so a model error is never lost to a close
	// race on the response channel.
	for respCh != nil || modelErrCh != nil {
		select {
		case <-runCtx.Context.Done():
			return lastEvent, runCtx.Context.Err()

		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			for _, processor := range f.responseProcessors {
				if err := processor.ProcessResponse(runCtx, &resp, f.agent); err != nil {
					return nil, fmt.Errorf("response processor %s failed: %w", processor.Name(), err)
				}
			}

			ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
			ev.Content = &resp.Content
			ev.Partial = &resp.Partial
			if runCtx.Branch != "" {
				branch := runCtx.Branch
				ev.Branch = &branch
			}

			// Mark turn complete if this is a final assistant response with
			// no pending tool calls.
			if !resp.Partial && len(ev.GetFunctionCalls()) == 0 {
				complete := true
				ev.TurnComplete = &complete
			}

			// Staged state (e.g. output key) rides on the final event.
			if !resp.Partial {
				runCtx.AttachPendingActions(&ev)
			}

			lastEvent = &ev
			if err := emit(ev); err != nil {
				return lastEvent, err
			}

			if fnCalls := ev.GetFunctionCalls(); len(fnCalls) > 0 {
				merged, err := f.executeFunctions(runCtx, fnCalls, emit)
				if err != nil {
					return lastEvent, err
				}
				if merged != nil {
					lastEvent = merged
				}
			}

		case err, ok := <-modelErrCh:
			if !ok {
				modelErrCh = nil
				continue
			}
			if err != nil {
				return lastEvent, fmt.Errorf("model generation failed: %w", err)
			}
		}
	}

	return lastEvent, nil
}

// executeFunctions runs the batch through the executor, merges the individual
// responses into one event and emits it.
func (f *BaseFlow) executeFunctions(runCtx *core.RunContext, fnCalls []core.FunctionCall, emit func(core.Event) error) (*core.Event, error) {
	collected := make([]core.Event, 0, len(fnCalls))
	collect := func(ev core.Event) error {
		collected = append(collected, ev)
		return nil
	}

	f.executor.Execute(runCtx, f.agent, f.agent.GetTools(), fnCalls, collect)

	if len(collected) == 0 {
		return nil, nil
	}

	merged := mergeFunctionResponseEvents(runCtx, f.agent.GetName(), collected)
	if err := emit(merged); err != nil {
		return &merged, err
	}
	return &merged, nil
}

// mergeFunctionResponseEvents folds a batch of function response events into a
// single tool event. Response parts keep their original call order; actions
// are combined with later events winning on scalar conflicts.
func mergeFunctionResponseEvents(runCtx *core.RunContext, author string, events []core.Event) core.Event {
	if len(events) == 1 {
		return events[0]
	}

	merged := core.NewEvent(runCtx.RunID, author)
	content := core.Content{Role: "tool"}

	for _, ev := range events {
		if ev.Content != nil {
			content.Parts = append(content.Parts, ev.Content.Parts...)
		}
		if len(ev.Actions.StateDelta) > 0 {
			if merged.Actions.StateDelta == nil {
				merged.Actions.StateDelta = make(map[string]any, len(ev.Actions.StateDelta))
			}
			for k, v := range ev.Actions.StateDelta {
				merged.Actions.StateDelta[k] = v
			}
		}
		if len(ev.Actions.ArtifactDelta) > 0 {
			if merged.Actions.ArtifactDelta == nil {
				merged.Actions.ArtifactDelta = make(map[string]int, len(ev.Actions.ArtifactDelta))
			}
			for k, v := range ev.Actions.ArtifactDelta {
				merged.Actions.ArtifactDelta[k] = v
			}
		}
		if ev.Actions.TransferToAgent != nil {
			merged.Actions.TransferToAgent = ev.Actions.TransferToAgent
		}
		if ev.Actions.Escalate != nil {
			merged.Actions.Escalate = ev.Actions.Escalate
		}
		if ev.Actions.SkipSummarization != nil {
			merged.Actions.SkipSummarization = ev.Actions.SkipSummarization
		}
	}

	merged.Content = &content
	return merged
}
