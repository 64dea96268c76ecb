package runner

import (
	"context"
	"sync"

	"github.com/chan4lk/autogen-workflows/core"
)

// CallbackType identifies a lifecycle point where callbacks run.
//
// Callbacks hook into the runner's pipeline without modifying orchestration
// logic. They execute synchronously; a callback returning an error terminates
// the associated operation, which makes them usable for validation and policy
// enforcement as well as observability.
type CallbackType string

const (
	// CallbackBeforeRun fires before the root agent starts. An error aborts
	// the run before any model call is made.
	CallbackBeforeRun CallbackType = "before_run"

	// CallbackAfterRun fires after the root agent finishes, regardless of
	// outcome. Errors are logged, not propagated.
	CallbackAfterRun CallbackType = "after_run"

	// CallbackOnEvent fires for every non-partial event after persistence
	// and before delivery to the caller. An error fails the run.
	CallbackOnEvent CallbackType = "on_event"

	// CallbackOnStateChange fires when an event carries a state delta.
	CallbackOnStateChange CallbackType = "on_state_change"

	// CallbackOnError fires when agent execution fails.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the information available at a callback's
// lifecycle point. Event and Err are nil for points they don't apply to.
type CallbackContext struct {
	RunContext *core.RunContext
	Event      *core.Event
	Err        error
	Type       CallbackType
	Metadata   map[string]any
}

// Callback is a lifecycle hook. Implementations should be fast (they run
// synchronously on the event pipeline) and must not panic.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback adapts a plain function to the Callback interface.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback wraps fn as a callback for the given lifecycle point.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type returns the lifecycle point this callback handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager routes callbacks to their lifecycle points. Registration
// and execution are both safe for concurrent use; callbacks run in
// registration order and the first error stops the chain.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager returns an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// Register adds a callback for its declared type.
func (cm *CallbackManager) Register(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	t := callback.Type()
	cm.callbacks[t] = append(cm.callbacks[t], callback)
}

// execute runs all callbacks registered for the given type.
func (cm *CallbackManager) execute(ctx context.Context, t CallbackType, callbackCtx *CallbackContext) error {
	cm.mu.RLock()
	chain := cm.callbacks[t]
	cm.mu.RUnlock()

	callbackCtx.Type = t
	for _, cb := range chain {
		if err := cb.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}
	return nil
}
