package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chan4lk/autogen-workflows/core"
)

func TestNewParallelAgent(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")

	agent := NewParallelAgent("Parallel Agent", 0, child1, child2)

	assert.NotNil(t, agent)
	assert.Equal(t, "Parallel Agent", agent.Name())
	assert.Len(t, agent.children, 2)
}

func TestParallelAgent_Run_BranchIsolation(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")

	agent := NewParallelAgent("Parallel Agent", 0, child1, child2)
	runCtx, _ := newTestRunContext(t, "Parallel Agent")

	child1.On("Run", mock.MatchedBy(func(rc *core.RunContext) bool {
		return rc.Branch == "Parallel Agent.Child 1"
	})).Return(nil)
	child2.On("Run", mock.MatchedBy(func(rc *core.RunContext) bool {
		return rc.Branch == "Parallel Agent.Child 2"
	})).Return(nil)

	err := agent.Run(runCtx)

	assert.NoError(t, err)
	child1.AssertExpectations(t)
	child2.AssertExpectations(t)
}

func TestParallelAgent_Run_NestedBranchPath(t *testing.T) {
	child := NewMockAgent("Leaf")

	agent := NewParallelAgent("Inner", 0, child)
	runCtx, _ := newTestRunContext(t, "Inner")
	runCtx = runCtx.WithBranch("Outer")

	child.On("Run", mock.MatchedBy(func(rc *core.RunContext) bool {
		return rc.Branch == "Outer.Inner.Leaf"
	})).Return(nil)

	assert.NoError(t, agent.Run(runCtx))
	child.AssertExpectations(t)
}

func TestParallelAgent_Run_SiblingsCompleteDespiteFailure(t *testing.T) {
	var mu sync.Mutex
	completed := map[string]bool{}

	failing := newScriptedAgent("failing", func(*core.RunContext) error {
		return assert.AnError
	})
	slow := newScriptedAgent("slow", func(rc *core.RunContext) error {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		completed["slow"] = true
		mu.Unlock()
		return nil
	})

	agent := NewParallelAgent("Parallel Agent", 0, failing, slow)
	runCtx, _ := newTestRunContext(t, "Parallel Agent")

	err := agent.Run(runCtx)

	assert.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failing")

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, completed["slow"], "siblings should run to completion even when one fails")
}

func TestParallelAgent_Run_Timeout(t *testing.T) {
	blocking := newScriptedAgent("blocking", func(rc *core.RunContext) error {
		<-rc.Context.Done()
		return rc.Context.Err()
	})

	agent := NewParallelAgent("Parallel Agent", 20*time.Millisecond, blocking)
	runCtx, _ := newTestRunContext(t, "Parallel Agent")

	err := agent.Run(runCtx)

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParallelAgent_Run_NoChildren(t *testing.T) {
	agent := NewParallelAgent("Parallel Agent", 0)
	runCtx, _ := newTestRunContext(t, "Parallel Agent")

	assert.NoError(t, agent.Run(runCtx))
}
