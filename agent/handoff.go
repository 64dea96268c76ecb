package agent

// TargetKind enumerates where control goes after a handoff rule fires.
type TargetKind int

const (
	// TargetAgent hands control to a named participant.
	TargetAgent TargetKind = iota
	// TargetRevertToUser returns control to the human participant.
	TargetRevertToUser
	// TargetTerminate ends the group chat.
	TargetTerminate
)

// Target identifies the destination of a handoff.
type Target struct {
	Kind      TargetKind
	AgentName string
}

// AgentTarget creates a handoff target naming a participant agent.
func AgentTarget(name string) Target { return Target{Kind: TargetAgent, AgentName: name} }

// RevertToUserTarget creates a handoff target returning control to the user.
func RevertToUserTarget() Target { return Target{Kind: TargetRevertToUser} }

// TerminateTarget creates a handoff target ending the group chat.
func TerminateTarget() Target { return Target{Kind: TargetTerminate} }

// OnCondition pairs a context expression with a target. When the expression
// evaluates true against session state, control moves to the target.
type OnCondition struct {
	Target    Target
	Condition ContextExpression
}

// Handoffs is the rule set attached to a group participant. Conditions are
// evaluated in registration order after the participant finishes its turn;
// the first match wins. When nothing matches, the after-work target applies
// (defaults to reverting to the user).
type Handoffs struct {
	conditions []OnCondition
	afterWork  Target
	hasAfter   bool
}

// NewHandoffs constructs an empty rule set.
func NewHandoffs() *Handoffs { return &Handoffs{} }

// AddContextConditions appends condition rules preserving order.
func (h *Handoffs) AddContextConditions(conds ...OnCondition) *Handoffs {
	h.conditions = append(h.conditions, conds...)
	return h
}

// SetAfterWork sets the fallthrough target used when no condition matches.
func (h *Handoffs) SetAfterWork(t Target) *Handoffs {
	h.afterWork = t
	h.hasAfter = true
	return h
}

// Resolve evaluates the rules against the given state lookup and returns the
// next target.
func (h *Handoffs) Resolve(get StateLookup) Target {
	for _, c := range h.conditions {
		if c.Condition.Evaluate(get) {
			return c.Target
		}
	}
	if h.hasAfter {
		return h.afterWork
	}
	return RevertToUserTarget()
}
