package research

import (
	"fmt"

	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/tool"
)

// Session state keys shared by the stage tools and the handoff conditions.
const (
	StateLoopStarted      = "loop_started"
	StateCurrentIteration = "current_iteration"
	StateMaxIterations    = "max_iterations"
	StateIterationNeeded  = "iteration_needed"
	StateCurrentStage     = "current_stage"

	StateDocumentPrompt     = "document_prompt"
	StateDocumentPlan       = "document_plan"
	StateDocumentDraft      = "document_draft"
	StateFeedbackCollection = "feedback_collection"
	StateRevisedDocument    = "revised_document"
	StateFinalDocument      = "final_document"

	StateHasError     = "has_error"
	StateErrorMessage = "error_message"
	StateErrorStage   = "error_stage"
)

// Stages of the document feedback loop.
const (
	StagePlanning = "planning"
	StageDrafting = "drafting"
	StageReview   = "review"
	StageRevision = "revision"
	StageFinal    = "final"
)

// FinalArtifactID is the artifact id under which the finalized document is
// persisted in the session's artifact store.
const FinalArtifactID = "final_document.md"

const documentTypeDesc = "Type of document: essay, article, email, report, other"

func newStartDocumentCreationTool() *tool.FunctionTool {
	return tool.NewFunctionTool(
		"start_document_creation",
		"Start the document creation feedback loop with a prompt and document type",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"document_prompt": map[string]any{
					"type":        "string",
					"description": "Details about what needs to be created",
				},
				"document_type": map[string]any{
					"type":        "string",
					"description": documentTypeDesc,
				},
			},
			"required": []string{"document_prompt", "document_type"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			tc.SetState(StateLoopStarted, true)
			tc.SetState(StateCurrentStage, StagePlanning)
			tc.SetState(StateDocumentPrompt, args["document_prompt"])
			tc.SetState(StateCurrentIteration, 1)

			return fmt.Sprintf("Document creation started for a %v based on the provided prompt.", args["document_type"]), nil
		},
	)
}

func newSubmitDocumentPlanTool() *tool.FunctionTool {
	return tool.NewFunctionTool(
		"submit_document_plan",
		"Submit the initial document plan",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"outline": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Outline points for the document",
				},
				"main_arguments": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Key arguments or points to cover",
				},
				"target_audience": map[string]any{
					"type":        "string",
					"description": "Target audience for the document",
				},
				"tone": map[string]any{
					"type":        "string",
					"description": "Desired tone (formal, casual, etc.)",
				},
				"document_type": map[string]any{
					"type":        "string",
					"description": documentTypeDesc,
				},
			},
			"required": []string{"outline", "main_arguments", "target_audience", "tone", "document_type"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			tc.SetState(StateDocumentPlan, map[string]any{
				"outline":         args["outline"],
				"main_arguments":  args["main_arguments"],
				"target_audience": args["target_audience"],
				"tone":            args["tone"],
				"document_type":   args["document_type"],
			})
			tc.SetState(StateCurrentStage, StageDrafting)

			return "Document plan created. Moving to drafting stage.", nil
		},
	)
}

func newSubmitDocumentDraftTool() *tool.FunctionTool {
	return tool.NewFunctionTool(
		"submit_document_draft",
		"Submit the document draft for review",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Document title",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full text content of the draft",
				},
				"document_type": map[string]any{
					"type":        "string",
					"description": documentTypeDesc,
				},
			},
			"required": []string{"title", "content", "document_type"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			tc.SetState(StateDocumentDraft, map[string]any{
				"title":         args["title"],
				"content":       args["content"],
				"document_type": args["document_type"],
			})
			tc.SetState(StateCurrentStage, StageReview)

			return "Document draft submitted. Moving to review stage.", nil
		},
	)
}

func newSubmitFeedbackTool() *tool.FunctionTool {
	return tool.NewFunctionTool(
		"submit_feedback",
		"Submit feedback on the document, indicating whether another iteration is needed",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"section": map[string]any{
								"type":        "string",
								"description": "Section of the document the feedback applies to",
							},
							"feedback": map[string]any{
								"type":        "string",
								"description": "Detailed feedback",
							},
							"severity": map[string]any{
								"type":        "string",
								"enum":        []string{"minor", "moderate", "major", "critical"},
								"description": "Severity level of the feedback",
							},
							"recommendation": map[string]any{
								"type":        "string",
								"description": "Recommended action to address the feedback",
							},
						},
						"required": []string{"section", "feedback", "severity"},
					},
					"description": "Collection of feedback items",
				},
				"overall_assessment": map[string]any{
					"type":        "string",
					"description": "Overall assessment of the document",
				},
				"priority_issues": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "List of priority issues to address",
				},
				"iteration_needed": map[string]any{
					"type":        "boolean",
					"description": "Whether another iteration is needed",
				},
			},
			"required": []string{"items", "overall_assessment", "priority_issues", "iteration_needed"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			items, _ := args["items"].([]any)
			for _, it := range items {
				m, ok := it.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("feedback item must be an object, got %T", it)
				}
				sev, _ := m["severity"].(string)
				if !validSeverity(sev) {
					return nil, fmt.Errorf("invalid feedback severity %q", sev)
				}
			}

			tc.SetState(StateFeedbackCollection, map[string]any{
				"items":              args["items"],
				"overall_assessment": args["overall_assessment"],
				"priority_issues":    args["priority_issues"],
				"iteration_needed":   args["iteration_needed"],
			})
			tc.SetState(StateIterationNeeded, args["iteration_needed"])
			tc.SetState(StateCurrentStage, StageRevision)

			return "Feedback submitted. Moving to revision stage.", nil
		},
	)
}

func newSubmitRevisedDocumentTool() *tool.FunctionTool {
	return tool.NewFunctionTool(
		"submit_revised_document",
		"Submit the revised document, which may lead to another feedback loop or finalization",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Document title",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full text content after revision",
				},
				"changes_made": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "List of changes made based on feedback",
				},
				"document_type": map[string]any{
					"type":        "string",
					"description": documentTypeDesc,
				},
			},
			"required": []string{"title", "content", "document_type"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			tc.SetState(StateRevisedDocument, map[string]any{
				"title":         args["title"],
				"content":       args["content"],
				"changes_made":  args["changes_made"],
				"document_type": args["document_type"],
			})

			iteration := stateInt(tc, StateCurrentIteration, 1)
			maxIterations := stateInt(tc, StateMaxIterations, DefaultMaxIterations)

			if stateBool(tc, StateIterationNeeded) && iteration < maxIterations {
				iteration++
				tc.SetState(StateCurrentIteration, iteration)
				tc.SetState(StateCurrentStage, StageReview)

				// The next review cycle evaluates the revised text.
				tc.SetState(StateDocumentDraft, map[string]any{
					"title":         args["title"],
					"content":       args["content"],
					"document_type": args["document_type"],
				})

				return fmt.Sprintf("Document revised. Starting iteration %d with another review.", iteration), nil
			}

			tc.SetState(StateCurrentStage, StageFinal)

			return "Revisions complete. Moving to document finalization.", nil
		},
	)
}

func newFinalizeDocumentTool() *tool.FunctionTool {
	return tool.NewFunctionTool(
		"finalize_document",
		"Submit the final document and complete the feedback loop",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Final document title",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full text content of the final document",
				},
				"document_type": map[string]any{
					"type":        "string",
					"description": documentTypeDesc,
				},
			},
			"required": []string{"title", "content", "document_type"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			tc.SetState(StateFinalDocument, map[string]any{
				"title":         args["title"],
				"content":       args["content"],
				"document_type": args["document_type"],
			})
			tc.SetState(StateIterationNeeded, false)

			content, _ := args["content"].(string)
			if err := tc.SaveArtifact(FinalArtifactID, []byte(content)); err != nil {
				tc.LogWarn("research.finalize.artifact_save_failed", "error", err.Error())
			}

			return "Document finalized. Feedback loop complete.", nil
		},
	)
}

func validSeverity(s string) bool {
	switch s {
	case "minor", "moderate", "major", "critical":
		return true
	default:
		return false
	}
}

// stateInt reads an integer state value, tolerating the float64 shape JSON
// round-trips produce.
func stateInt(tc *core.ToolContext, key string, fallback int) int {
	v, ok := tc.GetState(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func stateBool(tc *core.ToolContext, key string) bool {
	v, ok := tc.GetState(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
