package anthropic

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/model"
)

func TestResponseFromMessage_Text(t *testing.T) {
	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "The draft looks solid."},
		},
		StopReason: "end_turn",
	}

	resp := responseFromMessage(msg)

	require.Len(t, resp.Content.Parts, 1)
	assert.Equal(t, "The draft looks solid.", resp.Content.TextOf())
	assert.Equal(t, "assistant", resp.Content.Role)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.False(t, resp.Partial)
}

func TestResponseFromMessage_ToolUse(t *testing.T) {
	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{
				Type:  "tool_use",
				ID:    "call_1",
				Name:  "submit_document_draft",
				Input: json.RawMessage(`{"title":"T"}`),
			},
		},
		StopReason: "tool_use",
	}

	resp := responseFromMessage(msg)

	require.Len(t, resp.Content.Parts, 1)
	fc, ok := resp.Content.Parts[0].(core.FunctionCallPart)
	require.True(t, ok)
	assert.Equal(t, "call_1", fc.FunctionCall.ID)
	assert.Equal(t, "submit_document_draft", fc.FunctionCall.Name)
	assert.JSONEq(t, `{"title":"T"}`, fc.FunctionCall.Arguments)
	assert.Equal(t, "tool_use", resp.FinishReason)
}

func TestResponseFromMessage_EmptyStopReasonDefaults(t *testing.T) {
	resp := responseFromMessage(&anthropic.Message{})
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestBuildParams(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) {
		o.Model = "claude-test"
		o.Temperature = 0.2
		o.MaxTokens = 512
	})

	params := m.buildParams(model.Request{
		Contents: []core.Content{
			{Role: "system", Parts: []core.Part{core.TextPart{Text: "You are a reviewer."}}},
			{Role: "user", Parts: []core.Part{core.TextPart{Text: "Review this draft."}}},
		},
		Tools: []model.ToolDefinition{
			{
				Type: "function",
				Function: model.FunctionDefinition{
					Name: "submit_feedback",
					Parameters: map[string]any{
						"properties": map[string]any{"severity": map[string]any{"type": "string"}},
						"required":   []string{"severity"},
					},
				},
			},
		},
	})

	assert.Equal(t, anthropic.Model("claude-test"), params.Model)
	assert.Equal(t, int64(512), params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Equal(t, "You are a reviewer.", params.System[0].Text)
	require.Len(t, params.Messages, 1)
	require.Len(t, params.Tools, 1)
}

func TestBuildMessages_SkipsSystemAndEmbedsToolResults(t *testing.T) {
	m := NewModelFromClient(nil)

	messages := m.buildMessages([]core.Content{
		{Role: "system", Parts: []core.Part{core.TextPart{Text: "instructions"}}},
		{Role: "user", Parts: []core.Part{core.TextPart{Text: "create a plan"}}},
		{Role: "assistant", Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "call_1", Name: "submit_document_plan", Arguments: `{"tone":"formal"}`}},
		}},
		{Role: "tool", Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "call_1", Name: "submit_document_plan", Response: "Plan created."}},
		}},
	})

	// System rides in params.System and the tool result is folded into the
	// assistant turn, leaving one user and one assistant message.
	require.Len(t, messages, 2)
	assert.Equal(t, "user", string(messages[0].Role))
	assert.Equal(t, "assistant", string(messages[1].Role))
	assert.Len(t, messages[1].Content, 2)
}

// A streaming request must reach the transport rather than being rejected by
// the adapter; pointing the client at a closed local port proves the stream
// was attempted.
func TestGenerate_StreamingReachesTransport(t *testing.T) {
	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL("http://127.0.0.1:9"),
		option.WithMaxRetries(0),
	)
	m := NewModelFromClient(&client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, errCh := m.Generate(ctx, model.Request{
		Stream: true,
		Contents: []core.Content{
			{Role: "user", Parts: []core.Part{core.TextPart{Text: "hello"}}},
		},
	})

	for range out {
	}
	err := <-errCh
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "not yet implemented")
}

func TestInfo(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "claude-test" })

	info := m.Info()
	assert.Equal(t, "claude-test", info.Name)
	assert.Equal(t, "anthropic", info.Provider)
	assert.True(t, info.SupportsTools)
}
