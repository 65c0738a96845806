package anthropic

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

func TestChatParsesTextToolUseAndUsage(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [
				{"type": "text", "text": "Looking that up."},
				{"type": "tool_use", "id": "toolu_1", "name": "web_search_query", "input": {"q": "weather"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 50, "output_tokens": 12}
		}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider("sk-test", srv.URL, "claude-sonnet-4-5")
	require.NoError(t, err)

	completion, err := p.Chat(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "weather?"}},
		llm.WithSystem("be brief"),
		llm.WithTools([]llm.Tool{{
			Name:       "web_search_query",
			Parameters: map[string]interface{}{"type": "object", "properties": map[string]interface{}{"q": map[string]interface{}{"type": "string"}}, "required": []string{"q"}},
		}}),
	)
	require.NoError(t, err)

	assert.Equal(t, "Looking that up.", completion.Content)
	assert.Equal(t, 50, completion.TokensIn)
	assert.Equal(t, 12, completion.TokensOut)
	require.Len(t, completion.ToolCalls, 1)
	assert.Equal(t, "toolu_1", completion.ToolCalls[0].Id)
	assert.JSONEq(t, `{"q":"weather"}`, string(completion.ToolCalls[0].Arguments))

	tools, ok := body["tools"].([]interface{})
	require.True(t, ok)
	assert.Len(t, tools, 1)
}

func TestChatMapsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider("sk-test", srv.URL, "")
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "30s", statusErr.RetryAfter.String())
}

func TestToMessageParamsGroupsToolResults(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "do two things"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{Id: "a", Name: "x"}, {Id: "b", Name: "y"}}},
		{Role: llm.RoleTool, ToolCallId: "a", Content: "one"},
		{Role: llm.RoleTool, ToolCallId: "b", Content: "two", IsError: true},
	}
	params := toMessageParams(history)
	require.Len(t, params, 3)
	assert.Len(t, params[2].Content, 2)
}

func TestNewAnthropicProviderRequiresKey(t *testing.T) {
	_, err := NewAnthropicProvider("", "", "")
	assert.Error(t, err)
}
