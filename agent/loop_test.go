package agent

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chan4lk/autogen-workflows/core"
)

func TestNewLoopAgent_Defaults(t *testing.T) {
	child := NewMockAgent("child")
	agent := NewLoopAgent("Loop Agent", child)

	assert.Equal(t, "Loop Agent", agent.Name())
	assert.Equal(t, 100, agent.maxIters)
	assert.Equal(t, time.Duration(0), agent.interval)
	assert.True(t, agent.stopOnError)
	assert.Nil(t, agent.predicate)
}

func TestLoopAgent_Run_MaxIterations(t *testing.T) {
	var runs int32
	child := newScriptedAgent("child", func(*core.RunContext) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	agent := NewLoopAgent("Loop Agent", child, WithMaxIters(3))
	runCtx, _ := newTestRunContext(t, "Loop Agent")

	assert.NoError(t, agent.Run(runCtx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
}

func TestLoopAgent_Run_StopOnError(t *testing.T) {
	var runs int32
	child := newScriptedAgent("child", func(*core.RunContext) error {
		atomic.AddInt32(&runs, 1)
		return assert.AnError
	})

	agent := NewLoopAgent("Loop Agent", child, WithMaxIters(5))
	runCtx, _ := newTestRunContext(t, "Loop Agent")

	err := agent.Run(runCtx)

	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "iteration 1")
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestLoopAgent_Run_ContinueOnError(t *testing.T) {
	var runs int32
	child := newScriptedAgent("child", func(*core.RunContext) error {
		atomic.AddInt32(&runs, 1)
		return assert.AnError
	})

	agent := NewLoopAgent("Loop Agent", child, WithMaxIters(3), WithStopOnError(false))
	runCtx, _ := newTestRunContext(t, "Loop Agent")

	assert.NoError(t, agent.Run(runCtx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
}

func TestLoopAgent_Run_EscalationStopsLoop(t *testing.T) {
	var runs int32
	child := newScriptedAgent("child", func(rc *core.RunContext) error {
		atomic.AddInt32(&runs, 1)
		content := core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "cannot proceed"}}}
		return rc.EmitEvent(CreateEscalationEvent(rc.RunID, "child", &content))
	})

	agent := NewLoopAgent("Loop Agent", child, WithMaxIters(10))
	runCtx, emit := newTestRunContext(t, "Loop Agent")

	assert.NoError(t, agent.Run(runCtx), "escalation terminates the loop without error")
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	events := drainEvents(emit)
	if assert.Len(t, events, 1) {
		assert.NotNil(t, events[0].Actions.Escalate)
		assert.True(t, *events[0].Actions.Escalate)
	}
}

func TestLoopAgent_Run_PredicateTermination(t *testing.T) {
	var runs int32
	child := newScriptedAgent("child", func(rc *core.RunContext) error {
		n := atomic.AddInt32(&runs, 1)
		text := "working"
		if n >= 2 {
			text = "status: COMPLETE"
		}
		return rc.EmitEvent(core.NewMessageEvent("child", text))
	})

	agent := NewLoopAgent("Loop Agent", child,
		WithMaxIters(10),
		WithPredicate(func(output string) bool {
			return strings.Contains(output, "COMPLETE")
		}),
	)
	runCtx, emit := newTestRunContext(t, "Loop Agent")

	assert.NoError(t, agent.Run(runCtx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))

	// Child events are forwarded to the parent context.
	events := drainEvents(emit)
	assert.Len(t, events, 2)
}

func TestLoopAgent_Run_ForwardsChildEvents(t *testing.T) {
	child := newScriptedAgent("child", func(rc *core.RunContext) error {
		return rc.EmitEvent(core.NewMessageEvent("child", "hello"))
	})

	agent := NewLoopAgent("Loop Agent", child, WithMaxIters(1))
	runCtx, emit := newTestRunContext(t, "Loop Agent")

	assert.NoError(t, agent.Run(runCtx))

	events := drainEvents(emit)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "hello", events[0].Content.TextOf())
	}
}

func TestCreateEscalationEvent(t *testing.T) {
	content := core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "help"}}}
	ev := CreateEscalationEvent("inv-1", "worker", &content)

	assert.Equal(t, "inv-1", ev.InvocationID)
	assert.Equal(t, "worker", ev.Author)
	assert.NotNil(t, ev.Actions.Escalate)
	assert.True(t, *ev.Actions.Escalate)
	assert.Equal(t, "help", ev.Content.TextOf())
}
