package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-orchestrator-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRoundTripsToolMessages(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"model": "meta-llama/Llama-3.1-8B-Instruct",
			"choices": [{"message": {"role": "assistant", "content": "done", "tool_calls": [
				{"id": "call_9", "type": "function", "function": {"name": "web_search_query", "arguments": "{\"q\":\"go\"}"}}
			]}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30}
		}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf_test", srv.URL, "meta-llama/Llama-3.1-8B-Instruct")
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "search go"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{Id: "call_1", Name: "web_search_query", Arguments: json.RawMessage(`{"q":"go"}`)}}},
		{Role: llm.RoleTool, ToolCallId: "call_1", Content: `{"hits":3}`},
	}
	completion, err := p.Chat(context.Background(), history, llm.WithTools([]llm.Tool{{Name: "web_search_query"}}))
	require.NoError(t, err)

	require.Len(t, got.Messages, 3)
	assert.Equal(t, "call_1", got.Messages[1].ToolCalls[0].Id)
	assert.Equal(t, `{"q":"go"}`, got.Messages[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "call_1", got.Messages[2].ToolCallId)
	assert.Equal(t, 500, got.MaxTokens)

	assert.Equal(t, "done", completion.Content)
	assert.Equal(t, 120, completion.TokensIn)
	assert.Equal(t, 30, completion.TokensOut)
	require.Len(t, completion.ToolCalls, 1)
	assert.Equal(t, "call_9", completion.ToolCalls[0].Id)
}

func TestChatMapsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHuggingFaceProvider("", srv.URL, "m").Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}
