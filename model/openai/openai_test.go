package openai

import (
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/model"
)

func TestResponseFromChoice(t *testing.T) {
	choice := openai.ChatCompletionChoice{
		Message: openai.ChatCompletionMessage{
			Content: "Splitting the work now.",
			ToolCalls: []openai.ChatCompletionMessageToolCall{
				{
					ID: "call_1",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      "submit_document_plan",
						Arguments: `{"tone":"formal"}`,
					},
				},
			},
		},
		FinishReason: "tool_calls",
	}

	resp := responseFromChoice(choice)

	require.Len(t, resp.Content.Parts, 2)
	assert.Equal(t, "Splitting the work now.", resp.Content.TextOf())
	fc, ok := resp.Content.Parts[1].(core.FunctionCallPart)
	require.True(t, ok)
	assert.Equal(t, "call_1", fc.FunctionCall.ID)
	assert.Equal(t, "submit_document_plan", fc.FunctionCall.Name)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.False(t, resp.Partial)
}

func TestFinalResponse_OrdersToolCallsByIndex(t *testing.T) {
	var text strings.Builder
	text.WriteString("Working on it.")

	calls := map[int64]*aggCall{
		1: {id: "call_b", name: "second", args: "{}"},
		0: {id: "call_a", name: "first", args: "{}"},
	}

	resp := finalResponse(&text, calls, "tool_calls")

	require.Len(t, resp.Content.Parts, 3)
	first, ok := resp.Content.Parts[1].(core.FunctionCallPart)
	require.True(t, ok)
	assert.Equal(t, "call_a", first.FunctionCall.ID)
	second, ok := resp.Content.Parts[2].(core.FunctionCallPart)
	require.True(t, ok)
	assert.Equal(t, "call_b", second.FunctionCall.ID)
}

func TestBuildMessages_AttachesToolResponsesAfterCalls(t *testing.T) {
	contents := []core.Content{
		{Role: "system", Parts: []core.Part{core.TextPart{Text: "instructions"}}},
		{Role: "user", Parts: []core.Part{core.TextPart{Text: "create a plan"}}},
		{Role: "assistant", Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "call_1", Name: "submit_document_plan", Arguments: "{}"}},
		}},
		{Role: "tool", Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "call_1", Name: "submit_document_plan", Response: "Plan created."}},
		}},
	}

	toolResponses, order := toolResponseIndex(contents)
	require.Equal(t, []string{"call_1"}, order)

	messages := buildMessages(contents, toolResponses, order)

	// system, user, assistant tool call, then its tool response.
	require.Len(t, messages, 4)
	require.NotNil(t, messages[2].OfAssistant)
	require.NotNil(t, messages[3].OfTool)
	assert.Equal(t, "call_1", messages[3].OfTool.ToolCallID)
}

func TestBuildParams(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) {
		o.Model = "gpt-test"
		o.Temperature = 0.1
		o.MaxCompletionTokens = 256
	})

	params := m.buildParams(model.Request{
		Contents: []core.Content{
			{Role: "user", Parts: []core.Part{core.TextPart{Text: "hello"}}},
		},
		Tools: []model.ToolDefinition{
			{Type: "function", Function: model.FunctionDefinition{Name: "finalize_document"}},
		},
	})

	assert.Equal(t, "gpt-test", params.Model)
	require.Len(t, params.Messages, 1)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "finalize_document", params.Tools[0].Function.Name)
}

func TestInfo(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-test" })

	info := m.Info()
	assert.Equal(t, "gpt-test", info.Name)
	assert.Equal(t, "openai", info.Provider)
	assert.True(t, info.SupportsTools)
}
