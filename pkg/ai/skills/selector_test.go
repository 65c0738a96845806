package skills

import (
	"testing"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/ai/analyzer"

	"github.com/stretchr/testify/assert"
)

func TestSelect(t *testing.T) {
	a := analyzer.NewAnalyzer(analyzer.DefaultConfig(), logger.NewNopLogger())
	s := NewSelector(nil, logger.NewNopLogger())

	tests := []struct {
		name     string
		text     string
		category entity.Category
		want     []entity.Skill
	}{
		{"plain task", "create a task due Friday for the launch", entity.CategoryQuick, []entity.Skill{}},
		{"greeting", "hello", entity.CategoryQuick, []entity.Skill{}},
		{"tracker and messaging", "open a Jira ticket and tell @dev on Slack", entity.CategoryQuick,
			[]entity.Skill{entity.SkillIssueTracker, entity.SkillMessaging}},
		{"meeting", "schedule a meeting with the team tomorrow", entity.CategoryQuick, []entity.Skill{entity.SkillCalendar}},
		{"web search", "look up flight prices to Lisbon", entity.CategoryDefault, []entity.Skill{entity.SkillWebSearch}},
		{"image in visual", "design a banner like hero.png", entity.CategoryVisual, []entity.Skill{entity.SkillImageAnalysis}},
		{"image outside visual", "attach hero.png to the task", entity.CategoryQuick, []entity.Skill{}},
		{"document attachment", "summarize report.pdf", entity.CategoryQuick, []entity.Skill{entity.SkillDocuments}},
		{"email", "send the recap to ana@example.com", entity.CategoryQuick, []entity.Skill{entity.SkillEmail}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(a.Analyze(tt.text, analyzer.TenantContext{}), tt.category)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectDeduplicatesAndIsIdempotent(t *testing.T) {
	s := NewSelector(nil, logger.NewNopLogger())
	a := entity.AnalysisResult{
		Intent: entity.IntentScheduleMeeting,
		Entities: []entity.Entity{
			{Type: entity.EntityIntegration, Value: "google calendar"},
			{Type: entity.EntityIntegration, Value: "outlook"},
			{Type: entity.EntityMention, Value: "@a"},
			{Type: entity.EntityMention, Value: "@b"},
		},
	}

	first := s.Select(a, entity.CategoryQuick, entity.SkillCalendar, entity.SkillCalendar)
	second := s.Select(a, entity.CategoryQuick, entity.SkillCalendar, entity.SkillCalendar)

	assert.Equal(t, []entity.Skill{entity.SkillCalendar, entity.SkillMessaging}, first)
	assert.Equal(t, first, second)

	seen := map[entity.Skill]bool{}
	for _, skill := range first {
		assert.False(t, seen[skill], "duplicate %s", skill)
		seen[skill] = true
	}
}

func TestSelectExplicitAndDisabled(t *testing.T) {
	s := NewSelector([]entity.Skill{entity.SkillEmail}, logger.NewNopLogger())
	a := entity.AnalysisResult{
		Intent:   entity.IntentWriteContent,
		Entities: []entity.Entity{{Type: entity.EntityEmail, Value: "x@y.io"}},
	}

	got := s.Select(a, entity.CategoryCreative, entity.SkillWebSearch, "not-a-skill")
	assert.Equal(t, []entity.Skill{entity.SkillWebSearch}, got)
}
