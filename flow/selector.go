package flow

// Selector picks a flow implementation from an agent's capabilities.
type Selector struct{}

// NewSelector creates a flow selector.
func NewSelector() *Selector { return &Selector{} }

// SelectFlow returns SingleAgentFlow for agents that neither transfer nor
// carry sub-agents, and MultiAgentFlow for everything else.
func (s *Selector) SelectFlow(agent FlowAgent) Flow {
	if !agent.IsTransferEnabled() && len(agent.GetSubAgents()) == 0 {
		return NewSingleAgentFlow(agent)
	}
	return NewMultiAgentFlow(agent)
}
