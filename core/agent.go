package core

// Agent defines the interface that every agent in a workflow must implement.
//
// Agents are the primary processing units. They receive inputs through a
// RunContext, process them asynchronously, and emit events to communicate
// results and state changes back to the Runner.
//
// The interface supports both simple single-agent scenarios and hierarchical
// multi-agent workflows through the sub-agent management methods.
//
// Implementations must:
//   - Respect context cancellation for graceful shutdown
//   - Emit events through the provided RunContext
//   - Handle the async resume mechanism properly
//   - Manage their lifecycle through Start/Stop methods
type Agent interface {
	Name() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
	Description() string
}

// AgentInfo carries identifying details about an agent used in contexts and
// events. Name is the external identifier; Type categorizes the
// implementation (e.g. "orchestrator", "worker").
type AgentInfo struct{ Name, Type string }
