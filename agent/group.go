package agent

import (
	"errors"
	"fmt"

	"github.com/chan4lk/autogen-workflows/core"
)

// DefaultMaxRounds bounds a group chat when no explicit limit is configured.
const DefaultMaxRounds = 50

// GroupAgent coordinates a staged group chat. Participants take turns; after
// each turn the speaker's handoff rules are evaluated against session state
// to select the next speaker. Control can move to another participant, revert
// to the human user or terminate the chat. The conversation is bounded by a
// round limit; hitting it produces a terminal message event rather than an
// error.
type GroupAgent struct {
	BaseAgent
	members   []core.Agent
	handoffs  map[string]*Handoffs
	byName    map[string]core.Agent
	start     string
	maxRounds int
	userProxy core.Agent
}

// GroupOption configures a GroupAgent.
type GroupOption func(*GroupAgent)

// WithMaxRounds overrides the round limit.
func WithMaxRounds(n int) GroupOption {
	return func(g *GroupAgent) {
		if n > 0 {
			g.maxRounds = n
		}
	}
}

// WithUserProxy wires the human participant used by revert-to-user targets.
// Without one, reverting to the user ends the group run and returns control
// to the caller.
func WithUserProxy(p core.Agent) GroupOption {
	return func(g *GroupAgent) { g.userProxy = p }
}

// NewGroupAgent constructs an empty group coordinator. Register participants
// with AddMember; the first registered member is the entry point.
func NewGroupAgent(name string, opts ...GroupOption) *GroupAgent {
	g := &GroupAgent{
		BaseAgent: NewBaseAgent(name),
		handoffs:  map[string]*Handoffs{},
		byName:    map[string]core.Agent{},
		maxRounds: DefaultMaxRounds,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// AddMember registers a participant with its handoff rules. A nil rule set
// gets the default (no conditions, revert to user after work). The first
// member added becomes the starting agent.
func (g *GroupAgent) AddMember(a core.Agent, h *Handoffs) *GroupAgent {
	if h == nil {
		h = NewHandoffs()
	}
	g.members = append(g.members, a)
	g.byName[a.Name()] = a
	g.handoffs[a.Name()] = h
	if g.start == "" {
		g.start = a.Name()
	}
	_ = g.SetSubAgents(g.members...)
	return g
}

// SetStartingAgent overrides the entry participant.
func (g *GroupAgent) SetStartingAgent(name string) error {
	if _, ok := g.byName[name]; !ok {
		return fmt.Errorf("starting agent %q is not a group member", name)
	}
	g.start = name
	return nil
}

// Run implements core.Agent. It drives the turn/handoff loop until a
// terminate target fires, control reverts to an absent user, or the round
// limit is reached.
func (g *GroupAgent) Run(runCtx *core.RunContext) error {
	if len(g.members) == 0 {
		return errors.New("group has no members")
	}

	current := g.byName[g.start]

	for round := 1; round <= g.maxRounds; round++ {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		default:
		}

		runCtx.LogDebug("group.turn.start", "group", g.Name(), "round", round, "speaker", current.Name())

		if err := current.Run(runCtx); err != nil {
			return fmt.Errorf("group turn failed for agent %s: %w", current.Name(), err)
		}

		// Pick the next speaker from state the runner has persisted.
		if err := runCtx.RefreshSession(); err != nil {
			runCtx.LogWarn("group.session.refresh.failed", "group", g.Name(), "error", err.Error())
		}

		target := g.handoffs[current.Name()].Resolve(runCtx.GetState)

		switch target.Kind {
		case TargetTerminate:
			runCtx.LogInfo("group.terminated", "group", g.Name(), "round", round, "speaker", current.Name())
			return nil

		case TargetAgent:
			next, ok := g.byName[target.AgentName]
			if !ok {
				return fmt.Errorf("handoff from %s names unknown agent %q", current.Name(), target.AgentName)
			}
			runCtx.LogDebug("group.handoff", "group", g.Name(), "from", current.Name(), "to", next.Name())
			current = next

		case TargetRevertToUser:
			if g.userProxy == nil {
				runCtx.LogDebug("group.revert_to_user", "group", g.Name(), "round", round)
				return nil
			}
			err := g.userProxy.Run(runCtx)
			if errors.Is(err, ErrInputClosed) {
				runCtx.LogInfo("group.user_input.closed", "group", g.Name(), "round", round)
				return nil
			}
			if err != nil {
				return fmt.Errorf("user proxy failed: %w", err)
			}
			if err := runCtx.RefreshSession(); err != nil {
				runCtx.LogWarn("group.session.refresh.failed", "group", g.Name(), "error", err.Error())
			}
			// The user's message re-enters through the starting agent whose
			// conditions route the conversation onward.
			current = g.byName[g.start]

		default:
			return fmt.Errorf("unsupported handoff target kind %d", target.Kind)
		}
	}

	runCtx.LogWarn("group.round_limit", "group", g.Name(), "max_rounds", g.maxRounds)

	ev := core.NewMessageEvent(g.Name(), fmt.Sprintf("Group chat reached the maximum of %d rounds.", g.maxRounds))
	ev.InvocationID = runCtx.RunID
	complete := true
	ev.TurnComplete = &complete
	if err := runCtx.EmitEvent(ev); err != nil {
		return err
	}
	return runCtx.WaitForResume()
}
