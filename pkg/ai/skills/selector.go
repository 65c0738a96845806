package skills

import (
	"sort"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/ai/analyzer"
)

// Predicate decides whether one skill is attached.
type Predicate func(a entity.AnalysisResult, category entity.Category) bool

type Rule struct {
	Skill     entity.Skill
	Predicate Predicate
}

var (
	documentIntegrations = map[string]bool{"notion": true, "google docs": true, "google drive": true, "confluence": true}
	messagingIntegration = map[string]bool{"slack": true, "discord": true, "telegram": true, "teams": true}
	trackerIntegrations  = map[string]bool{"jira": true, "linear": true, "github": true, "gitlab": true, "trello": true, "asana": true}
	calendarIntegrations = map[string]bool{"google calendar": true, "outlook": true}
)

func anyIntegration(a entity.AnalysisResult, set map[string]bool) bool {
	for _, v := range a.EntityValues(entity.EntityIntegration) {
		if set[v] {
			return true
		}
	}
	return false
}

func hasAttachment(a entity.AnalysisResult, image bool) bool {
	for _, v := range a.EntityValues(entity.EntityAttachment) {
		if analyzer.IsImageAttachment(v) == image {
			return true
		}
	}
	return false
}

// DefaultRules holds one independent predicate per skill.
var DefaultRules = []Rule{
	{entity.SkillDocuments, func(a entity.AnalysisResult, _ entity.Category) bool {
		return anyIntegration(a, documentIntegrations) ||
			hasAttachment(a, false) ||
			(a.Intent == entity.IntentSummarize && a.HasEntity(entity.EntityURL))
	}},
	{entity.SkillMessaging, func(a entity.AnalysisResult, _ entity.Category) bool {
		return anyIntegration(a, messagingIntegration) || a.HasEntity(entity.EntityMention)
	}},
	{entity.SkillIssueTracker, func(a entity.AnalysisResult, _ entity.Category) bool {
		return anyIntegration(a, trackerIntegrations)
	}},
	{entity.SkillCalendar, func(a entity.AnalysisResult, _ entity.Category) bool {
		return a.Intent == entity.IntentScheduleMeeting || anyIntegration(a, calendarIntegrations)
	}},
	{entity.SkillWebSearch, func(a entity.AnalysisResult, _ entity.Category) bool {
		return a.HasEntity(entity.EntityWebQuery) || a.Intent == entity.IntentResearch
	}},
	{entity.SkillImageAnalysis, func(a entity.AnalysisResult, category entity.Category) bool {
		return hasAttachment(a, true) && (category == entity.CategoryVisual || a.Intent == entity.IntentAnalyzeImage)
	}},
	{entity.SkillEmail, func(a entity.AnalysisResult, _ entity.Category) bool {
		return a.HasEntity(entity.EntityEmail) || anyIntegration(a, map[string]bool{"gmail": true})
	}},
}

type Selector struct {
	rules    []Rule
	disabled map[entity.Skill]bool
	logger   logger.ILogger
}

func NewSelector(disabled []entity.Skill, log logger.ILogger) *Selector {
	off := make(map[entity.Skill]bool, len(disabled))
	for _, s := range disabled {
		off[s] = true
	}
	return &Selector{rules: DefaultRules, disabled: off, logger: log}
}

// Select unions every firing predicate with the explicit skills and returns a
// sorted set. An empty, non-nil slice means no skills.
func (s *Selector) Select(a entity.AnalysisResult, category entity.Category, explicit ...entity.Skill) []entity.Skill {
	set := make(map[entity.Skill]struct{})
	for _, rule := range s.rules {
		if rule.Predicate(a, category) {
			set[rule.Skill] = struct{}{}
		}
	}
	for _, skill := range explicit {
		if skill.Valid() {
			set[skill] = struct{}{}
		}
	}

	out := make([]entity.Skill, 0, len(set))
	for skill := range set {
		if s.disabled[skill] {
			continue
		}
		out = append(out, skill)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	s.logger.Debug("SKILLS", "Skills selected", map[string]interface{}{
		"intent":   a.Intent,
		"category": category,
		"skills":   out,
	})
	return out
}
