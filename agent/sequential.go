package agent

import (
	"fmt"

	"github.com/chan4lk/autogen-workflows/core"
)

// SequentialAgent coordinates the execution of multiple child agents in
// sequence. Each child receives the same RunContext, so accumulated session
// state (including output keys) becomes available to subsequent agents.
//
// SequentialAgent is ideal for:
//   - Multi-step document pipelines
//   - Workflows requiring specific execution order
//   - Scenarios where agent outputs build upon each other
type SequentialAgent struct {
	BaseAgent
	children []core.Agent
}

// NewSequentialAgent creates a new sequential execution coordinator. Children
// run in the order they are specified.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	return &SequentialAgent{
		BaseAgent: NewBaseAgent(name),
		children:  children,
	}
}

// Run implements core.Agent. It executes each child agent in order; errors
// stop further processing immediately.
func (s *SequentialAgent) Run(runCtx *core.RunContext) error {
	for _, child := range s.children {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		default:
		}

		if err := child.Run(runCtx); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	return nil
}
