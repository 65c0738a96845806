package executor

import (
	"fmt"
	"regexp"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/llm"
)

var toolNameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// toolName makes a capability name acceptable to every backend's tool naming rules.
func toolName(capabilityName string) string {
	name := toolNameUnsafe.ReplaceAllString(capabilityName, "_")
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

// buildHistory replays the last n turns of the session snapshot, then the request itself.
func buildHistory(plan *entity.ExecutionPlan, n int) []llm.Message {
	var history []llm.Message
	if plan.Session != nil && n > 0 {
		turns := plan.Session.Turns
		if len(turns) > n {
			turns = turns[len(turns)-n:]
		}
		for _, turn := range turns {
			history = append(history, llm.Message{Role: llm.RoleUser, Content: turn.RequestText})
			if turn.ResultSummary != "" {
				history = append(history, llm.Message{Role: llm.RoleAssistant, Content: turn.ResultSummary})
			}
		}
	}
	return append(history, llm.Message{Role: llm.RoleUser, Content: plan.Request.Text})
}

func systemPrompt(plan *entity.ExecutionPlan) string {
	var b strings.Builder
	b.WriteString(plan.Profile.SystemPrompt)

	if len(plan.Analysis.Entities) > 0 {
		b.WriteString("\n\nExtracted from the request:")
		for _, e := range plan.Analysis.Entities {
			fmt.Fprintf(&b, "\n- %s: %s", e.Type, e.Value)
		}
	}
	if len(plan.Skills) > 0 {
		names := make([]string, len(plan.Skills))
		for i, s := range plan.Skills {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, "\n\nYou may use tools from these skills: %s.", strings.Join(names, ", "))
	}
	return strings.TrimSpace(b.String())
}

// toolset exposes manifests as llm tools and remembers which capability each tool name maps to.
func toolset(manifests []capability.Manifest) ([]llm.Tool, map[string]capability.Manifest) {
	tools := make([]llm.Tool, 0, len(manifests))
	byTool := make(map[string]capability.Manifest, len(manifests))
	for _, m := range manifests {
		name := toolName(m.Name)
		byTool[name] = m
		tools = append(tools, llm.Tool{Name: name, Description: m.Description, Parameters: m.Parameters})
	}
	return tools, byTool
}
