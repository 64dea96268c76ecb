package research

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chan4lk/autogen-workflows/artifact"
	"github.com/chan4lk/autogen-workflows/model"
)

// queueTurn scripts one agent turn: the tool call followed by the wrap-up
// text the agent produces after seeing the tool result.
func queueTurn(m *model.MockModel, toolName, args, wrapUp string) {
	m.QueueToolCall(toolName, args)
	m.QueueText(wrapUp)
}

func queueEntryThroughReview(m *model.MockModel, iterationNeeded string) {
	queueTurn(m, "start_document_creation",
		`{"document_prompt": "Argue for renewable energy investment.", "document_type": "essay"}`,
		"Starting the document creation process.")
	queueTurn(m, "submit_document_plan",
		`{"outline": ["Introduction", "Economics", "Conclusion"], "main_arguments": ["Jobs", "Cost decline"], "target_audience": "policy makers", "tone": "formal", "document_type": "essay"}`,
		"Plan is ready.")
	queueTurn(m, "submit_document_draft",
		`{"title": "The Case for Renewables", "content": "Renewable energy deserves greater investment.", "document_type": "essay"}`,
		"Draft complete.")
	queueTurn(m, "submit_feedback",
		`{"items": [{"section": "Economics", "feedback": "Needs figures.", "severity": "major", "recommendation": "Cite cost data."}], "overall_assessment": "Promising draft.", "priority_issues": ["Missing evidence"], "iteration_needed": `+iterationNeeded+`}`,
		"Review submitted.")
}

func TestRunFeedbackLoopPattern_SinglePass(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	queueEntryThroughReview(llm, "false")
	queueTurn(llm, "submit_revised_document",
		`{"title": "The Case for Renewables", "content": "Renewable energy deserves greater investment, and the numbers prove it.", "changes_made": ["Added cost data"], "document_type": "essay"}`,
		"Revision complete.")
	queueTurn(llm, "finalize_document",
		`{"title": "The Case for Renewables", "content": "Renewable energy deserves greater investment, and the numbers prove it.", "document_type": "essay"}`,
		"Document delivered.")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := RunFeedbackLoopPattern(ctx, llm, "Write a persuasive essay on renewable energy.")
	require.NoError(t, err)

	require.NotNil(t, result.FinalDocument)
	assert.Equal(t, "The Case for Renewables", result.FinalDocument.Title)
	assert.Equal(t, "essay", result.FinalDocument.Type)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, StageFinal, result.State[StateCurrentStage])
	assert.Equal(t, false, result.State[StateIterationNeeded])
	assert.NotEmpty(t, result.Events)

	require.NotNil(t, result.Stats)
	assert.Equal(t, len(strings.Fields(result.FinalDocument.Content)), result.Stats.WordCount)
	assert.Positive(t, result.Stats.WordCount)
}

func TestRunFeedbackLoopPattern_IterationCap(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	// Reviews always ask for another iteration; the cap must end the loop.
	queueEntryThroughReview(llm, "true")
	queueTurn(llm, "submit_revised_document",
		`{"title": "The Case for Renewables", "content": "First revision.", "changes_made": ["Tightened argument"], "document_type": "essay"}`,
		"Revision complete.")
	queueTurn(llm, "submit_feedback",
		`{"items": [{"section": "Conclusion", "feedback": "Still weak.", "severity": "moderate", "recommendation": "Sharpen call to action."}], "overall_assessment": "Improving.", "priority_issues": ["Conclusion"], "iteration_needed": true}`,
		"Second review submitted.")
	queueTurn(llm, "submit_revised_document",
		`{"title": "The Case for Renewables", "content": "Second revision.", "changes_made": ["Stronger conclusion"], "document_type": "essay"}`,
		"Second revision complete.")
	queueTurn(llm, "finalize_document",
		`{"title": "The Case for Renewables", "content": "Second revision.", "document_type": "essay"}`,
		"Document delivered.")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := RunFeedbackLoopPattern(ctx, llm, "Write a persuasive essay on renewable energy.",
		func(o *Options) { o.MaxIterations = 2 })
	require.NoError(t, err)

	require.NotNil(t, result.FinalDocument)
	assert.Equal(t, "Second revision.", result.FinalDocument.Content)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, StageFinal, result.State[StateCurrentStage])

	// The second review cycle re-evaluated the revised draft.
	draft, ok := result.State[StateDocumentDraft].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "First revision.", draft["content"])
}

func TestRunFeedbackLoopPattern_PersistsFinalArtifact(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	queueEntryThroughReview(llm, "false")
	queueTurn(llm, "submit_revised_document",
		`{"title": "The Case for Renewables", "content": "Polished essay text.", "changes_made": [], "document_type": "essay"}`,
		"Revision complete.")
	queueTurn(llm, "finalize_document",
		`{"title": "The Case for Renewables", "content": "Polished essay text.", "document_type": "essay"}`,
		"Document delivered.")

	store := artifact.NewInMemoryStore()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := RunFeedbackLoopPattern(ctx, llm, "Write a persuasive essay.",
		func(o *Options) {
			o.SessionID = "research-artifact-test"
			o.ArtifactStore = store
		})
	require.NoError(t, err)
	require.NotNil(t, result.FinalDocument)

	data, err := store.Get("research-artifact-test", FinalArtifactID)
	require.NoError(t, err)
	assert.Equal(t, "Polished essay text.", string(data))
}

func TestRunFeedbackLoopPattern_SpeakerOrder(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	queueEntryThroughReview(llm, "false")
	queueTurn(llm, "submit_revised_document",
		`{"title": "T", "content": "C", "changes_made": [], "document_type": "essay"}`,
		"Revision complete.")
	queueTurn(llm, "finalize_document",
		`{"title": "T", "content": "C", "document_type": "essay"}`,
		"Document delivered.")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := RunFeedbackLoopPattern(ctx, llm, "Write an essay.")
	require.NoError(t, err)

	var order []string
	for _, ev := range result.Events {
		if ev.IsPartial() || ev.Author == "user" {
			continue
		}
		if len(order) == 0 || order[len(order)-1] != ev.Author {
			order = append(order, ev.Author)
		}
	}
	assert.Equal(t, []string{
		"entry_agent",
		"planning_agent",
		"drafting_agent",
		"review_agent",
		"revision_agent",
		"finalization_agent",
	}, order)
}

func TestNewGroup_StartsAtEntryAgent(t *testing.T) {
	group := NewGroup(model.NewMockModel("mock", "mock"))

	names := make([]string, 0, len(group.SubAgents()))
	for _, a := range group.SubAgents() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{
		"entry_agent",
		"planning_agent",
		"drafting_agent",
		"review_agent",
		"revision_agent",
		"finalization_agent",
	}, names)
}

func TestInitialState(t *testing.T) {
	state := initialState(4)

	assert.Equal(t, false, state[StateLoopStarted])
	assert.Equal(t, 0, state[StateCurrentIteration])
	assert.Equal(t, 4, state[StateMaxIterations])
	assert.Equal(t, true, state[StateIterationNeeded])
	assert.Equal(t, StagePlanning, state[StateCurrentStage])
}
