package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chan4lk/autogen-workflows/artifact"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/session"
)

func newToolContext(t *testing.T) *core.ToolContext {
	t.Helper()

	store := session.NewInMemoryStore()
	sess, err := store.Create("tool-test")
	require.NoError(t, err)

	runCtx := core.NewRunContext(
		context.Background(),
		"tool-test",
		"run-1",
		core.AgentInfo{Name: "stage_agent", Type: "model"},
		core.NewUserText("create a document"),
		0,
		make(chan core.Event, 8),
		nil,
		sess,
		store,
		artifact.NewInMemoryStore(),
		nil,
		logging.NoOpLogger{},
	)
	return core.NewToolContext(runCtx, "call-1")
}

func TestStartDocumentCreationTool(t *testing.T) {
	tc := newToolContext(t)

	result, err := newStartDocumentCreationTool().Call(tc, map[string]any{
		"document_prompt": "Argue for renewables.",
		"document_type":   "essay",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "essay")

	started, _ := tc.GetState(StateLoopStarted)
	assert.Equal(t, true, started)
	stage, _ := tc.GetState(StateCurrentStage)
	assert.Equal(t, StagePlanning, stage)
	iteration, _ := tc.GetState(StateCurrentIteration)
	assert.Equal(t, 1, iteration)
}

func TestSubmitFeedbackTool_RejectsUnknownSeverity(t *testing.T) {
	tc := newToolContext(t)

	_, err := newSubmitFeedbackTool().Call(tc, map[string]any{
		"items": []any{
			map[string]any{"section": "Intro", "feedback": "Weak.", "severity": "catastrophic"},
		},
		"overall_assessment": "Needs work.",
		"priority_issues":    []any{"Intro"},
		"iteration_needed":   true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
}

func TestSubmitRevisedDocumentTool_IterationBump(t *testing.T) {
	tc := newToolContext(t)
	tc.SetState(StateIterationNeeded, true)
	tc.SetState(StateCurrentIteration, 1)
	tc.SetState(StateMaxIterations, 3)

	result, err := newSubmitRevisedDocumentTool().Call(tc, map[string]any{
		"title":         "T",
		"content":       "Revised text.",
		"changes_made":  []any{"Tightened intro"},
		"document_type": "essay",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "iteration 2")

	iteration, _ := tc.GetState(StateCurrentIteration)
	assert.Equal(t, 2, iteration)
	stage, _ := tc.GetState(StateCurrentStage)
	assert.Equal(t, StageReview, stage)

	draft, _ := tc.GetState(StateDocumentDraft)
	assert.Equal(t, "Revised text.", draft.(map[string]any)["content"])
}

func TestSubmitRevisedDocumentTool_CapReached(t *testing.T) {
	tc := newToolContext(t)
	tc.SetState(StateIterationNeeded, true)
	tc.SetState(StateCurrentIteration, 3)
	tc.SetState(StateMaxIterations, 3)

	result, err := newSubmitRevisedDocumentTool().Call(tc, map[string]any{
		"title":         "T",
		"content":       "Final revision.",
		"document_type": "essay",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "finalization")

	stage, _ := tc.GetState(StateCurrentStage)
	assert.Equal(t, StageFinal, stage)
}

func TestFinalizeDocumentTool_PersistsArtifact(t *testing.T) {
	store := session.NewInMemoryStore()
	sess, err := store.Create("finalize-test")
	require.NoError(t, err)

	artifacts := artifact.NewInMemoryStore()
	runCtx := core.NewRunContext(
		context.Background(),
		"finalize-test",
		"run-1",
		core.AgentInfo{Name: "finalization_agent", Type: "model"},
		core.NewUserText("finalize"),
		0,
		make(chan core.Event, 8),
		nil,
		sess,
		store,
		artifacts,
		nil,
		logging.NoOpLogger{},
	)
	tc := core.NewToolContext(runCtx, "call-1")

	_, err = newFinalizeDocumentTool().Call(tc, map[string]any{
		"title":         "Final Title",
		"content":       "Final content.",
		"document_type": "report",
	})
	require.NoError(t, err)

	needed, _ := tc.GetState(StateIterationNeeded)
	assert.Equal(t, false, needed)

	data, err := artifacts.Get("finalize-test", FinalArtifactID)
	require.NoError(t, err)
	assert.Equal(t, "Final content.", string(data))
}

func TestStageTools_RequireArguments(t *testing.T) {
	tc := newToolContext(t)

	_, err := newSubmitDocumentDraftTool().Call(tc, map[string]any{
		"title": "Missing content",
	})
	require.Error(t, err)
}
