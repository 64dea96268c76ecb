package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/chan4lk/autogen-workflows/core"
)

// ErrEscalated is returned when a child agent signals escalation.
var ErrEscalated = errors.New("child agent escalated")

// LoopAgent coordinates the repeated execution of a child agent with
// configurable termination controls: max iterations, an output predicate,
// interval timing and escalation monitoring. The same RunContext is passed to
// all iterations so the child accumulates state across executions.
//
// LoopAgent is ideal for:
//   - Iterative refinement workflows
//   - Retry logic with custom conditions
//   - Polling scenarios and convergence checking
type LoopAgent struct {
	BaseAgent
	child       core.Agent
	maxIters    int
	interval    time.Duration
	stopOnError bool
	predicate   func(string) bool
}

// NewLoopAgent constructs a looping coordinator around a child agent.
// Defaults: 100 iterations, no interval, stop on first error.
func NewLoopAgent(name string, child core.Agent, opts ...LoopOption) *LoopAgent {
	la := &LoopAgent{
		BaseAgent:   NewBaseAgent(name),
		child:       child,
		maxIters:    100,
		interval:    0,
		stopOnError: true,
	}

	for _, o := range opts {
		o(la)
	}

	return la
}

// LoopOption defines a configuration function for customizing LoopAgent behavior.
type LoopOption func(*LoopAgent)

// WithMaxIters sets the maximum number of iterations for the loop.
func WithMaxIters(n int) LoopOption {
	return func(l *LoopAgent) { l.maxIters = n }
}

// WithInterval sets the time delay between loop iterations. Useful for rate
// limiting or polling; 0 means no delay.
func WithInterval(d time.Duration) LoopOption {
	return func(l *LoopAgent) { l.interval = d }
}

// WithStopOnError controls whether child errors terminate the loop (default true).
func WithStopOnError(stop bool) LoopOption {
	return func(l *LoopAgent) { l.stopOnError = stop }
}

// WithPredicate sets a termination condition evaluated against the child's
// final text output after each iteration. Returning true terminates the loop.
//
// Example:
//
//	WithPredicate(func(output string) bool {
//	    return strings.Contains(output, "COMPLETE")
//	})
func WithPredicate(pred func(string) bool) LoopOption {
	return func(l *LoopAgent) { l.predicate = pred }
}

// Run implements core.Agent performing iterative execution with escalation
// detection. Escalation terminates the loop early without error. The child's
// last non-partial text output feeds the predicate, if one is configured.
func (l *LoopAgent) Run(runCtx *core.RunContext) error {
	for i := 0; i < l.maxIters; i++ {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		default:
		}

		runCtx.LogDebug("loop.iteration.start", "agent", l.Name(), "iteration", i+1)

		lastOutput, childErr := l.runChildMonitored(runCtx)

		if errors.Is(childErr, ErrEscalated) {
			runCtx.LogInfo("loop.escalated", "agent", l.Name(), "iteration", i+1)
			return nil // escalation is early termination, not an error
		}

		if childErr != nil {
			if l.stopOnError {
				return fmt.Errorf("loop iteration %d failed for agent %s: %w", i+1, l.child.Name(), childErr)
			}
			runCtx.LogWarn("loop.iteration.failed", "agent", l.Name(), "iteration", i+1, "error", childErr.Error())
		}

		if l.predicate != nil && l.predicate(lastOutput) {
			runCtx.LogInfo("loop.predicate.satisfied", "agent", l.Name(), "iteration", i+1)
			return nil
		}

		if l.interval > 0 && i < l.maxIters-1 {
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-time.After(l.interval):
			}
		}
	}

	runCtx.LogDebug("loop.complete", "agent", l.Name(), "iterations", l.maxIters)
	return nil
}

// runChildMonitored executes the child while intercepting emitted events to
// detect escalation flags and capture the final text output before forwarding
// to the parent context.
func (l *LoopAgent) runChildMonitored(runCtx *core.RunContext) (string, error) {
	interceptChan := make(chan core.Event, 10)
	resumeChan := make(chan struct{}, 10)
	childCtx := runCtx.NewChildContext(interceptChan, resumeChan, runCtx.Branch)

	done := make(chan error, 1)
	go func() {
		done <- l.child.Run(childCtx)
	}()

	lastOutput := ""
	escalated := false

	// forward relays one intercepted event to the parent, tracking the last
	// assistant output and escalation flags. childRunning controls whether
	// the resume confirmation is relayed back to the child.
	forward := func(event core.Event, childRunning bool) error {
		if !event.IsPartial() && event.Content != nil && event.Content.Role == "assistant" {
			if text := event.Content.TextOf(); text != "" {
				lastOutput = text
			}
		}

		if event.Actions.Escalate != nil && *event.Actions.Escalate {
			runCtx.LogDebug("loop.escalation.detected", "agent", l.Name())
			escalated = true
		}

		if err := runCtx.EmitEvent(event); err != nil {
			return err
		}

		// The child blocks on its resume channel after non-partial events;
		// relay the parent's persistence confirmation through.
		if !event.IsPartial() && childRunning {
			if err := runCtx.WaitForResume(); err != nil {
				return err
			}
			select {
			case resumeChan <- struct{}{}:
			case <-runCtx.Done():
				return runCtx.Err()
			}
		}

		return nil
	}

	for {
		select {
		case event := <-interceptChan:
			if err := forward(event, true); err != nil {
				return lastOutput, err
			}
			if escalated {
				// Keep relaying until the child winds down.
				for {
					select {
					case event := <-interceptChan:
						if err := forward(event, true); err != nil {
							return lastOutput, err
						}
					case <-done:
						return lastOutput, ErrEscalated
					case <-runCtx.Done():
						return lastOutput, runCtx.Err()
					}
				}
			}

		case err := <-done:
			// Drain events the child emitted just before exiting.
			for {
				select {
				case event := <-interceptChan:
					if ferr := forward(event, false); ferr != nil {
						return lastOutput, ferr
					}
				default:
					if escalated {
						return lastOutput, ErrEscalated
					}
					return lastOutput, err
				}
			}

		case <-runCtx.Done():
			return lastOutput, runCtx.Err()
		}
	}
}

// CreateEscalationEvent constructs an escalation signal event. Agents can use
// this when they cannot complete their task and need to hand control to a
// higher level.
func CreateEscalationEvent(invocationID, author string, content *core.Content) core.Event {
	escalate := true
	ev := core.NewEvent(invocationID, author)
	ev.Actions.Escalate = &escalate
	ev.Content = content
	return ev
}
