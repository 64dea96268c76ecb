// Package hitl implements the human-in-the-loop compliance workflow. A
// model-backed compliance assistant screens transaction descriptions and a
// human participant approves the suspicious ones. Control alternates between
// the assistant and the human until the human stops providing input.
package hitl

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/chan4lk/autogen-workflows"
	"github.com/chan4lk/autogen-workflows/agent"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/session"
)

const complianceInstruction = `You are a financial compliance assistant. You will be given a set of transaction descriptions.
For each transaction:
- If it seems suspicious (e.g., amount > $10,000, vendor is unusual, memo is vague), ask the human agent for approval.
- Otherwise, approve it automatically.
Provide the full set of transactions to approve at one time.
If the human gives a general approval, it applies to all transactions requiring approval.
When all transactions are processed, summarize the results and say "You can type exit to finish".`

var (
	vendors = []string{"Staples", "Acme Corp", "CyberSins Ltd", "Initech", "Globex", "Unicorn LLC"}
	memos   = []string{"Quarterly supplies", "Confidential", "NDA services", "Routine payment", "Urgent request", "Reimbursement"}
	amounts = []int{500, 1500, 9999, 12000, 23000, 4000}
)

// GenerateTransactions produces n synthetic transaction descriptions for
// demo runs. Amounts above $10,000 are present so some runs require human
// approval.
func GenerateTransactions(n int) []string {
	txs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, fmt.Sprintf("Transaction: $%d to %s. Memo: %s.",
			amounts[rand.Intn(len(amounts))],
			vendors[rand.Intn(len(vendors))],
			memos[rand.Intn(len(memos))]))
	}
	return txs
}

// Options configures the human approval run.
type Options struct {
	// SessionID identifies the session; a fresh one is generated when empty.
	SessionID string

	// MaxRounds bounds the approval conversation. Defaults to 50.
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

// Result summarizes a completed approval run.
type Result struct {
	SessionID string
	RunID     string

	// Summary is the assistant's last message, normally the processing
	// summary it produces once all transactions are handled.
	Summary string

	Events []core.Event
}

// NewGroup assembles the compliance assistant with its human overseer.
func NewGroup(llm model.Model, optFns ...func(o *Options)) *agent.GroupAgent {
	opts := applyOptions(optFns)

	bot := agent.NewModelAgent("finance_bot", llm, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstructionFromText(complianceInstruction)
		o.EnableFunctionCalling = false
		o.AllowTransfer = false
	})

	var proxyOpts []agent.UserProxyOption
	if opts.InputFunc != nil {
		proxyOpts = append(proxyOpts, agent.WithInputFunc(opts.InputFunc))
	}
	human := agent.NewUserProxyAgent("human", proxyOpts...)

	group := agent.NewGroupAgent("compliance_review",
		agent.WithMaxRounds(opts.MaxRounds),
		agent.WithUserProxy(human),
	)
	group.AddMember(bot, agent.NewHandoffs())

	return group
}

// RunHumanApproval processes the given transactions, asking the human for
// approval of the suspicious ones. With no transactions supplied, three are
// generated.
func RunHumanApproval(ctx context.Context, llm model.Model, transactions []string, optFns ...func(o *Options)) (*Result, error) {
	opts := applyOptions(optFns)

	if len(transactions) == 0 {
		transactions = GenerateTransactions(3)
	}

	message := "Please process the following transactions one at a time:\n\n"
	for i, tx := range transactions {
		message += fmt.Sprintf("%d. %s\n", i+1, tx)
	}

	group := NewGroup(llm, func(o *Options) { *o = opts })

	wf := autogenworkflows.New(group, func(o *autogenworkflows.Options) {
		o.SessionStore = opts.SessionStore
		o.EnableStreaming = opts.EnableStreaming
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.Logger = opts.Logger
	})

	runID, events, err := wf.RunSync(ctx, opts.SessionID, core.NewUserText(message))
	if err != nil {
		return nil, err
	}

	result := &Result{SessionID: opts.SessionID, RunID: runID, Events: events}
	for _, ev := range events {
		if ev.IsPartial() || ev.Author != "finance_bot" || ev.Content == nil {
			continue
		}
		if text := ev.Content.TextOf(); text != "" {
			result.Summary = text
		}
	}

	return result, nil
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		SessionID:       "hitl-" + core.NewID(),
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
