package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-orchestrator-be/pkg/llm"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider calls the Messages API. The SDK's own retries are disabled;
// retrying is the dispatcher's job.
type AnthropicProvider struct {
	client sdk.Client
	model  string
}

var _ llm.LLMProvider = &AnthropicProvider{}

func NewAnthropicProvider(apiKey, baseURL, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is not set")
	}
	if model == "" {
		model = string(sdk.ModelClaudeSonnet4_5_20250929)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{
		client: sdk.NewClient(opts...),
		model:  model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Completion, error) {
	opts := llm.Apply(llm.Options{Model: p.model, MaxTokens: 2048}, options...)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
		Messages:  toMessageParams(history),
	}
	if opts.System != "" {
		params.System = []sdk.TextBlockParam{{Text: opts.System}}
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}
	for _, tool := range opts.Tools {
		params.Tools = append(params.Tools, toToolParam(tool))
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	completion := &llm.Completion{
		Model:     string(resp.Model),
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
	}
	var text []string
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case sdk.TextBlock:
			text = append(text, variant.Text)
		case sdk.ToolUseBlock:
			completion.ToolCalls = append(completion.ToolCalls, llm.ToolCall{
				Id:        variant.ID,
				Name:      variant.Name,
				Arguments: json.RawMessage(variant.Input),
			})
		}
	}
	completion.Content = strings.Join(text, "\n")
	return completion, nil
}

// toMessageParams folds provider-agnostic history into Anthropic turns: tool
// results travel as tool_result blocks inside a user message.
func toMessageParams(history []llm.Message) []sdk.MessageParam {
	var out []sdk.MessageParam
	var pendingResults []sdk.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, sdk.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range history {
		switch msg.Role {
		case llm.RoleTool:
			pendingResults = append(pendingResults, sdk.NewToolResultBlock(msg.ToolCallId, msg.Content, msg.IsError))
		case llm.RoleAssistant:
			flush()
			var blocks []sdk.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				var input interface{} = map[string]interface{}{}
				if len(call.Arguments) > 0 {
					input = call.Arguments
				}
				blocks = append(blocks, sdk.NewToolUseBlock(call.Id, input, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, sdk.NewAssistantMessage(blocks...))
			}
		case llm.RoleSystem:
			// system prompts go through WithSystem
		default:
			flush()
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}
	flush()
	return out
}

func toToolParam(tool llm.Tool) sdk.ToolUnionParam {
	schema := sdk.ToolInputSchemaParam{}
	if props, ok := tool.Parameters["properties"]; ok {
		schema.Properties = props
	}
	switch required := tool.Parameters["required"].(type) {
	case []string:
		schema.Required = required
	case []interface{}:
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	param := &sdk.ToolParam{
		Name:        tool.Name,
		InputSchema: schema,
	}
	if tool.Description != "" {
		param.Description = sdk.String(tool.Description)
	}
	return sdk.ToolUnionParam{OfTool: param}
}

// mapError turns SDK API errors into llm.StatusError so the executor can
// classify them the same way for every provider.
func mapError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic request failed: %w", err)
	}
	statusErr := &llm.StatusError{
		Provider:   "anthropic",
		StatusCode: apiErr.StatusCode,
		Body:       apiErr.Error(),
	}
	if apiErr.Response != nil {
		statusErr.RetryAfter = llm.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now())
	}
	return statusErr
}
