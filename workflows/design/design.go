// Package design implements the design-document workflow: an architect
// agent drafts a software design document section by section, a critic
// agent reviews each draft, and a human participant steers the process
// between rounds. The conversation runs architect, then critic, then human,
// and repeats until the human stops providing input or the round limit is
// reached.
package design

import (
	"context"

	"github.com/chan4lk/autogen-workflows"
	"github.com/chan4lk/autogen-workflows/agent"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/session"
)

// DefaultPrompt opens the conversation when the caller supplies no
// requirements of their own.
const DefaultPrompt = "Please generate a design document for a software system."

const architectInstruction = `You are an expert software architect. Generate a design document for a software system.

1. Ask for system requirements.
2. Generate the outline of the document. Ask for approval or make changes based on the feedback.
3. Generate the main content of the document. Ask for approval or make changes based on the feedback.
4. Generate the conclusion of the document. Ask for approval or make changes based on the feedback.
5. Generate the final document. Ask for approval or make changes based on the feedback.

When all sections are processed, summarize the results and say "You can type exit to finish".`

const criticInstruction = `You are a critic. You will review the design document and provide feedback.`

// Options configures the design-document run.
type Options struct {
	// SessionID identifies the session; a fresh one is generated when empty.
	SessionID string

	// MaxRounds bounds the conversation. Defaults to 50.
	MaxRounds int

	// InputFunc sources human responses. Defaults to stdin.
	InputFunc agent.InputFunc

	// SessionStore holds conversation state. Defaults to in-memory.
	SessionStore core.SessionStore

	// Runner tuning. EnableStreaming delivers partial model output events;
	// EventBufferSize and MaxModelCalls bound event buffering and model
	// calls per run.
	EnableStreaming bool
	EventBufferSize int
	MaxModelCalls   int

	Logger logging.Logger
}

// Result summarizes a completed design-document run.
type Result struct {
	SessionID string
	RunID     string

	// Document is the architect's last message, normally the most recent
	// state of the design document.
	Document string

	Events []core.Event
}

// NewGroup assembles the architect/critic pair with its human overseer.
// Every architect turn is followed by a critic review before control
// returns to the human.
func NewGroup(llm model.Model, optFns ...func(o *Options)) *agent.GroupAgent {
	opts := applyOptions(optFns)

	architect := agent.NewModelAgent("architect", llm, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstructionFromText(architectInstruction)
		o.EnableFunctionCalling = false
		o.AllowTransfer = false
	})
	critic := agent.NewModelAgent("critic", llm, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstructionFromText(criticInstruction)
		o.EnableFunctionCalling = false
		o.AllowTransfer = false
	})

	var proxyOpts []agent.UserProxyOption
	if opts.InputFunc != nil {
		proxyOpts = append(proxyOpts, agent.WithInputFunc(opts.InputFunc))
	}
	human := agent.NewUserProxyAgent("human", proxyOpts...)

	group := agent.NewGroupAgent("design_document",
		agent.WithMaxRounds(opts.MaxRounds),
		agent.WithUserProxy(human),
	)
	group.AddMember(architect, agent.NewHandoffs().SetAfterWork(agent.AgentTarget(critic.Name())))
	group.AddMember(critic, agent.NewHandoffs())

	return group
}

// RunDesignDocument drives the architect/critic conversation for the given
// requirements and returns the architect's latest document text.
func RunDesignDocument(ctx context.Context, llm model.Model, requirements string, optFns ...func(o *Options)) (*Result, error) {
	opts := applyOptions(optFns)

	if requirements == "" {
		requirements = DefaultPrompt
	}

	group := NewGroup(llm, func(o *Options) { *o = opts })

	wf := autogenworkflows.New(group, func(o *autogenworkflows.Options) {
		o.SessionStore = opts.SessionStore
		o.EnableStreaming = opts.EnableStreaming
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.Logger = opts.Logger
	})

	runID, events, err := wf.RunSync(ctx, opts.SessionID, core.NewUserText(requirements))
	if err != nil {
		return nil, err
	}

	result := &Result{SessionID: opts.SessionID, RunID: runID, Events: events}
	for _, ev := range events {
		if ev.IsPartial() || ev.Author != "architect" || ev.Content == nil {
			continue
		}
		if text := ev.Content.TextOf(); text != "" {
			result.Document = text
		}
	}

	return result, nil
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		SessionID:       "design-" + core.NewID(),
		MaxRounds:       agent.DefaultMaxRounds,
		SessionStore:    session.NewInMemoryStore(),
		EnableStreaming: true,
		EventBufferSize: 100,
		MaxModelCalls:   100,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}
