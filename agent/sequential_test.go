package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chan4lk/autogen-workflows/core"
)

func TestNewSequentialAgent(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")

	agent := NewSequentialAgent("Sequential Agent", child1, child2)

	assert.NotNil(t, agent)
	assert.Equal(t, "Sequential Agent", agent.Name())
	assert.Len(t, agent.children, 2)
	assert.Equal(t, child1, agent.children[0])
	assert.Equal(t, child2, agent.children[1])
}

func TestSequentialAgent_Run_Success(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")
	child3 := NewMockAgent("Child 3")

	agent := NewSequentialAgent("Sequential Agent", child1, child2, child3)
	runCtx, _ := newTestRunContext(t, "Sequential Agent")

	child1.On("Run", runCtx).Return(nil)
	child2.On("Run", runCtx).Return(nil)
	child3.On("Run", runCtx).Return(nil)

	err := agent.Run(runCtx)

	assert.NoError(t, err)
	child1.AssertExpectations(t)
	child2.AssertExpectations(t)
	child3.AssertExpectations(t)
}

func TestSequentialAgent_Run_FirstChildError(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")

	agent := NewSequentialAgent("Sequential Agent", child1, child2)
	runCtx, _ := newTestRunContext(t, "Sequential Agent")

	expectedErr := assert.AnError
	child1.On("Run", runCtx).Return(expectedErr)

	err := agent.Run(runCtx)

	assert.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Contains(t, err.Error(), "Child 1")
	child1.AssertExpectations(t)
	child2.AssertNotCalled(t, "Run")
}

func TestSequentialAgent_Run_NoChildren(t *testing.T) {
	agent := NewSequentialAgent("Sequential Agent")
	runCtx, _ := newTestRunContext(t, "Sequential Agent")

	assert.NoError(t, agent.Run(runCtx))
}

func TestSequentialAgent_Run_ContextCancelled(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")

	agent := NewSequentialAgent("Sequential Agent", child1, child2)
	runCtx, _ := newTestRunContext(t, "Sequential Agent")

	ctx, cancel := context.WithCancel(context.Background())
	runCtx.Context = ctx

	// First child cancels the run; the second must never start.
	child1.On("Run", runCtx).Run(func(mock.Arguments) { cancel() }).Return(nil)

	err := agent.Run(runCtx)

	assert.ErrorIs(t, err, context.Canceled)
	child1.AssertExpectations(t)
	child2.AssertNotCalled(t, "Run")
}

func TestSequentialAgent_StateFlowsBetweenChildren(t *testing.T) {
	producer := newScriptedAgent("producer", func(rc *core.RunContext) error {
		rc.SetState("draft", "v1")
		return rc.CommitStateDelta()
	})

	var observed any
	consumer := newScriptedAgent("consumer", func(rc *core.RunContext) error {
		if err := rc.RefreshSession(); err != nil {
			return err
		}
		observed, _ = rc.GetState("draft")
		return nil
	})

	agent := NewSequentialAgent("pipeline", producer, consumer)
	runCtx, _ := newTestRunContext(t, "pipeline")

	assert.NoError(t, agent.Run(runCtx))
	assert.Equal(t, "v1", observed)
}
