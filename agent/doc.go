// Package agent contains the agent implementations the workflows are composed
// from. The package covers three concerns:
//
//  1. Base lifecycle + hierarchy plumbing (BaseAgent)
//  2. Coordination patterns (SequentialAgent, ParallelAgent, LoopAgent,
//     GroupAgent with handoff rules, UserProxyAgent)
//  3. Model-centric conversational / tool-calling agent (ModelAgent)
//
// Design principles:
//   - Minimal hidden global state; explicit wiring via the RunContext
//   - Composability; agents nest arbitrarily using SetSubAgents / FindAgent
//   - Observability; structured logging hooks at start/stop and flow selection
//   - Extensibility; embed BaseAgent and implement Run plus any custom API
//
// Execution model:
//   - An agent's Run receives a *core.RunContext (shared or cloned)
//   - Composite agents (parallel / sequential / loop / group) coordinate child Runs
//   - ModelAgent integrates with the model, tool and flow packages to stream events
//
// Persistence, model specifics and tool registry abstractions live in their
// respective packages to avoid cyclic deps.
package agent
