// Package research implements the feedback-loop pattern for iterative
// document refinement. Six model-backed agents take turns in a group chat:
// an entry agent opens the loop, then planning, drafting, review, revision
// and finalization agents move a document through its stages. Stage
// transitions are driven entirely by shared session state that the stage
// tools mutate; handoff conditions on that state select the next speaker.
// The review/revision cycle repeats until the reviewer stops asking for
// another iteration or the iteration budget is exhausted.
package research

import (
	"context"
	"fmt"

	"github.com/chan4lk/autogen-workflows"
	"github.com/chan4lk/autogen-workflows/agent"
	"github.com/chan4lk/autogen-workflows/artifact"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/evaluation"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/session"
	"github.com/chan4lk/autogen-workflows/tool"
)

// DefaultMaxIterations bounds the review/revision cycle.
const DefaultMaxIterations = 3

// Options configures the feedback-loop run.
type Options struct {
	// SessionID identifies the session; a fresh one is generated when empty.
	SessionID string

	// MaxIterations bounds review/revision cycles. Defaults to 3.
	MaxIterations int

	// MaxRounds bounds the group chat as a whole. Defaults to 50.
	MaxRounds int

	// SessionStore holds conversation state. Defaults to in-memory.
	SessionStore core.SessionStore

	// ArtifactStore receives the finalized document. Defaults to in-memory.
	ArtifactStore core.ArtifactStore

	// Runner tuning. EnableStreaming delivers partial model output events;
	// EventBufferSize and MaxModelCalls bound event buffering and model
	// calls per run.
	EnableStreaming bool
	EventBufferSize int
	MaxModelCalls   int

	Logger logging.Logger
}

// Document is the title/content/type triple the drafting, revision and
// finalization stages produce.
type Document struct {
	Title   string
	Content string
	Type    string
}

// Result summarizes a completed feedback-loop run.
type Result struct {
	SessionID string
	RunID     string

	// FinalDocument is nil when the loop did not reach finalization.
	FinalDocument *Document

	// Stats summarizes the finalized document; nil when there is none.
	Stats *evaluation.DocumentStats

	// Iterations is the number of review/revision cycles performed.
	Iterations int

	// State is the session state after the run, keyed by the stage tools'
	// state keys.
	State map[string]any

	Events []core.Event
}

const entryInstruction = `You are the entry point for the document creation feedback loop.
Your task is to receive document creation requests and start the feedback loop.

When you receive a request, extract:
1. The document prompt with details about what needs to be created
2. The type of document being created (essay, article, email, report, or other)

Use the start_document_creation tool to begin the process.`

const planningInstruction = `You are the document planning agent responsible for creating the initial structure.

Your task is to analyze the document prompt and create a detailed plan including:
- An outline with sections
- Main arguments or points
- Target audience analysis
- Appropriate tone for the document

Review the document prompt carefully and create a thoughtful plan that provides a strong foundation.

When your plan is ready, use the submit_document_plan tool to move the document to the drafting stage.`

const draftingInstruction = `You are the document drafting agent responsible for creating the initial draft.

Your task is to transform the document plan into a complete first draft:
- Follow the outline and structure from the planning stage
- Incorporate all main arguments and points
- Maintain the appropriate tone for the target audience
- Create a compelling title
- Write complete, well-structured content

Focus on creating a comprehensive draft that addresses all aspects of the document plan.
Don't worry about perfection - this is a first draft that will go through review and revision.

You must call the submit_document_draft tool with your draft and that will move on to the review stage.`

const reviewInstruction = `You are the document review agent responsible for critical evaluation.

Your task is to carefully review the current draft and provide constructive feedback:
- Evaluate the content against the original document plan
- Identify strengths and weaknesses
- Note any issues with clarity, structure, logic, or flow
- Assess whether the tone matches the target audience
- Check for completeness and thoroughness

For each feedback item, specify which section it applies to, rate its severity
as 'minor', 'moderate', 'major', or 'critical', and give a clear recommendation.

If this is a subsequent review iteration, also evaluate how well previous feedback was addressed.

Use the submit_feedback tool when your review is complete, indicating whether another iteration is needed.`

const revisionInstruction = `You are the document revision agent responsible for implementing feedback.

Your task is to revise the document based on the feedback provided:
- Address each feedback item in priority order
- Make specific improvements to the content, structure, and clarity
- Ensure the revised document still aligns with the original plan
- Track and document the changes you make

Focus on substantive improvements that address the feedback while preserving the document's strengths.

Use the submit_revised_document tool when your revisions are complete. The document may go through
multiple revision cycles depending on the feedback.`

const finalizationInstruction = `You are the document finalization agent responsible for completing the process.

Your task is to put the finishing touches on the document:
- Review the document's revision history
- Make any final minor adjustments for clarity and polish
- Ensure the document fully satisfies the original prompt
- Prepare the document for delivery with proper formatting

Use the finalize_document tool when the document is complete and ready for delivery.`

// NewGroup assembles the six-agent feedback loop around the given model.
// The entry agent is the starting speaker; every agent reverts control to
// the user after its work unless a stage condition routes elsewhere.
func NewGroup(llm model.Model, optFns ...func(o *Options)) *agent.GroupAgent {
	opts := applyOptions(optFns)

	stageAgent := func(name, instruction string, t *tool.FunctionTool) *agent.ModelAgent {
		a := agent.NewModelAgent(name, llm, func(o *agent.ModelAgentOptions) {
			o.Instruction = agent.NewInstructionFromText(instruction)
			o.AllowTransfer = false
		})
		a.RegisterTool(t)
		return a
	}

	entry := stageAgent("entry_agent", entryInstruction, newStartDocumentCreationTool())
	planning := stageAgent("planning_agent", planningInstruction, newSubmitDocumentPlanTool())
	drafting := stageAgent("drafting_agent", draftingInstruction, newSubmitDocumentDraftTool())
	review := stageAgent("review_agent", reviewInstruction, newSubmitFeedbackTool())
	revision := stageAgent("revision_agent", revisionInstruction, newSubmitRevisedDocumentTool())
	finalization := stageAgent("finalization_agent", finalizationInstruction, newFinalizeDocumentTool())

	group := agent.NewGroupAgent("feedback_loop", agent.WithMaxRounds(opts.MaxRounds))

	group.AddMember(entry, agent.NewHandoffs().AddContextConditions(agent.OnCondition{
		Target:    agent.AgentTarget(planning.Name()),
		Condition: agent.MustContextExpression("${loop_started} == true && ${current_stage} == 'planning'"),
	}))
	group.AddMember(planning, agent.NewHandoffs().AddContextConditions(agent.OnCondition{
		Target:    agent.AgentTarget(drafting.Name()),
		Condition: agent.MustContextExpression("${current_stage} == 'drafting'"),
	}))
	group.AddMember(drafting, agent.NewHandoffs().AddContextConditions(agent.OnCondition{
		Target:    agent.AgentTarget(review.Name()),
		Condition: agent.MustContextExpression("${current_stage} == 'review'"),
	}))
	group.AddMember(review, agent.NewHandoffs().AddContextConditions(agent.OnCondition{
		Target:    agent.AgentTarget(revision.Name()),
		Condition: agent.MustContextExpression("${current_stage} == 'revision'"),
	}))
	group.AddMember(revision, agent.NewHandoffs().AddContextConditions(
		agent.OnCondition{
			Target:    agent.AgentTarget(finalization.Name()),
			Condition: agent.MustContextExpression("${current_stage} == 'final'"),
		},
		agent.OnCondition{
			Target:    agent.AgentTarget(review.Name()),
			Condition: agent.MustContextExpression("${current_stage} == 'review'"),
		},
	))
	group.AddMember(finalization, agent.NewHandoffs())

	return group
}

// RunFeedbackLoopPattern runs the document creation feedback loop for the
// given prompt and returns the finalized document along with the session
// state it was built from.
func RunFeedbackLoopPattern(ctx context.Context, llm model.Model, prompt string, optFns ...func(o *Options)) (*Result, error) {
	opts := applyOptions(optFns)

	if _, err := opts.SessionStore.Create(opts.SessionID); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := opts.SessionStore.ApplyDelta(opts.SessionID, initialState(opts.MaxIterations)); err != nil {
		return nil, fmt.Errorf("seed session state: %w", err)
	}

	group := NewGroup(llm, func(o *Options) { *o = opts })

	wf := autogenworkflows.New(group, func(o *autogenworkflows.Options) {
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.EnableStreaming = opts.EnableStreaming
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.Logger = opts.Logger
	})

	message := fmt.Sprintf("Please create a document based on this prompt: %s", prompt)

	runID, events, err := wf.RunSync(ctx, opts.SessionID, core.NewUserText(message))
	if err != nil {
		return nil, err
	}

	sess, err := opts.SessionStore.Get(opts.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session after run: %w", err)
	}

	result := &Result{
		SessionID:  opts.SessionID,
		RunID:      runID,
		Iterations: intState(sess.State, StateCurrentIteration),
		State:      sess.State,
		Events:     events,
	}
	result.FinalDocument = documentState(sess.State, StateFinalDocument)
	if result.FinalDocument != nil {
		stats := evaluation.ComputeStats(result.FinalDocument.Content)
		result.Stats = &stats
	}

	return result, nil
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		SessionID:       "research-" + core.NewID(),
		MaxIterations:   DefaultMaxIterations,
		MaxRounds:       agent.DefaultMaxRounds,
		SessionStore:    session.NewInMemoryStore(),
		ArtifactStore:   artifact.NewInMemoryStore(),
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

// initialState mirrors the shared context the loop starts from.
func initialState(maxIterations int) map[string]any {
	return map[string]any{
		StateLoopStarted:      false,
		StateCurrentIteration: 0,
		StateMaxIterations:    maxIterations,
		StateIterationNeeded:  true,
		StateCurrentStage:     StagePlanning,
		StateDocumentPrompt:   "",
		StateHasError:         false,
		StateErrorMessage:     "",
		StateErrorStage:       "",
	}
}

func documentState(state map[string]any, key string) *Document {
	m, ok := state[key].(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	title, _ := m["title"].(string)
	content, _ := m["content"].(string)
	docType, _ := m["document_type"].(string)
	return &Document{Title: title, Content: content, Type: docType}
}

func intState(state map[string]any, key string) int {
	switch n := state[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
