package constant

import "ai-orchestrator-be/internal/entity"

// CategoryPrompts is the system prompt each category's backend runs with.
var CategoryPrompts = map[entity.Category]string{
	entity.CategoryVisual: `You are a visual design assistant. Describe layouts, palettes and imagery concretely.
When an image is referenced, analyze what is in it before suggesting changes.`,

	entity.CategoryDeepReasoning: `You are a careful analyst. Work through the problem step by step,
state assumptions, and end with a clear recommendation. Prefer structure over prose.`,

	entity.CategoryCreative: `You are a creative writing partner. Offer fresh, varied ideas and match the tone the user asks for.`,

	entity.CategoryQuick: `You are a fast assistant for everyday tasks. Answer in one or two sentences.
When a tool can complete the task, call it instead of describing the steps.`,

	entity.CategoryDefault: `You are a helpful assistant. Answer clearly and briefly.`,
}

// CategoryLimits holds max tokens and temperature per category.
var CategoryLimits = map[entity.Category]struct {
	MaxTokens   int
	Temperature float64
}{
	entity.CategoryVisual:        {MaxTokens: 1024, Temperature: 0.7},
	entity.CategoryDeepReasoning: {MaxTokens: 4096, Temperature: 0.2},
	entity.CategoryCreative:      {MaxTokens: 2048, Temperature: 0.9},
	entity.CategoryQuick:         {MaxTokens: 512, Temperature: 0.3},
	entity.CategoryDefault:       {MaxTokens: 1024, Temperature: 0.5},
}
