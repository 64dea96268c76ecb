package agent

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chan4lk/autogen-workflows/core"
)

// ParallelAgent coordinates the concurrent execution of multiple child
// agents. Each child receives a cloned RunContext with an isolated branch
// path, preventing staged-state conflicts while keeping access to the shared
// session.
//
// ParallelAgent is ideal for:
//   - Independent task processing
//   - I/O bound operations that can run concurrently
//   - Data gathering from multiple sources
type ParallelAgent struct {
	BaseAgent
	children []core.Agent
	timeout  time.Duration
}

// NewParallelAgent creates a new parallel execution coordinator. A zero
// timeout means no limit beyond the parent context.
func NewParallelAgent(name string, timeout time.Duration, children ...core.Agent) *ParallelAgent {
	return &ParallelAgent{
		BaseAgent: NewBaseAgent(name),
		children:  children,
		timeout:   timeout,
	}
}

// branchCtxForChild clones the parent context and assigns a hierarchical
// branch path ("Parent.Child") so pending deltas and artifacts stay isolated.
func (p *ParallelAgent) branchCtxForChild(runCtx *core.RunContext, child core.Agent) *core.RunContext {
	branchSuffix := fmt.Sprintf("%s.%s", p.Name(), child.Name())
	return runCtx.WithBranch(buildBranchPath(runCtx.Branch, branchSuffix))
}

// Run implements core.Agent launching all children concurrently. All children
// run to completion even if siblings fail; the first error encountered is
// returned after the group finishes.
func (p *ParallelAgent) Run(runCtx *core.RunContext) error {
	ctx := runCtx.Context
	cancel := func() {}
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
	}
	defer cancel()

	var g errgroup.Group

	for _, child := range p.children {
		branchCtx := p.branchCtxForChild(runCtx, child)
		branchCtx.Context = ctx

		c := child
		g.Go(func() error {
			if err := c.Run(branchCtx); err != nil {
				return fmt.Errorf("parallel execution failed for agent %s: %w", c.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}
