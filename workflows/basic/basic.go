// Package basic implements the simplest workflow in the collection: a
// single model-backed financial assistant answering one question in one
// turn. It exists both as a usable workflow and as the smallest example of
// wiring an agent into the runner.
package basic

import (
	"context"
	"fmt"

	"github.com/chan4lk/autogen-workflows"
	"github.com/chan4lk/autogen-workflows/agent"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/session"
)

// DefaultQuestion is asked when the caller does not supply one.
const DefaultQuestion = "Can you explain what makes a transaction suspicious?"

const financeInstruction = "You are a financial assistant who helps analyze financial data and transactions."

// Options configures the basic workflow run.
type Options struct {
	// SessionID identifies the session; a fresh one is generated when empty.
	SessionID string

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

// Result holds the assistant's answer and the raw event stream.
type Result struct {
	SessionID string
	RunID     string
	Answer    string
	Events    []core.Event
}

// NewAgent builds the financial assistant. It carries no tools; the model
// answers directly from its instruction.
func NewAgent(llm model.Model) *agent.ModelAgent {
	return agent.NewModelAgent("finance_agent", llm, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstructionFromText(financeInstruction)
		o.EnableFunctionCalling = false
		o.AllowTransfer = false
	})
}

// Run asks the financial assistant a single question and returns its answer.
func Run(ctx context.Context, llm model.Model, question string, optFns ...func(o *Options)) (*Result, error) {
	opts := Options{
		SessionID:       "basic-" + core.NewID(),
		SessionStore:    session.NewInMemoryStore(),
		EnableStreaming: true,
		EventBufferSize: 100,
		MaxModelCalls:   100,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if question == "" {
		question = DefaultQuestion
	}

	wf := autogenworkflows.New(NewAgent(llm), func(o *autogenworkflows.Options) {
		o.SessionStore = opts.SessionStore
		o.EnableStreaming = opts.EnableStreaming
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.Logger = opts.Logger
	})

	runID, events, err := wf.RunSync(ctx, opts.SessionID, core.NewUserText(question))
	if err != nil {
		return nil, fmt.Errorf("basic workflow run: %w", err)
	}

	result := &Result{SessionID: opts.SessionID, RunID: runID, Events: events}
	for _, ev := range events {
		if ev.IsPartial() || ev.Content == nil {
			continue
		}
		if text := ev.Content.TextOf(); text != "" {
			result.Answer = text
		}
	}

	return result, nil
}
