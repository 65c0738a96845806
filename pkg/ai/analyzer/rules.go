package analyzer

import (
	"regexp"

	"ai-orchestrator-be/internal/entity"
)

// IntentRule fires when Pattern matches anywhere in the text.
type IntentRule struct {
	Intent  entity.Intent
	Pattern *regexp.Regexp
}

// DefaultRules is evaluated top to bottom; when several rules fire the one
// registered first wins, wherever its match sits in the text.
var DefaultRules = []IntentRule{
	{entity.IntentGreeting, regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|good (morning|afternoon|evening))( there)?\s*[!.]*\s*$`)},
	{entity.IntentCompleteTask, regexp.MustCompile(`(?i)\b(mark|complete|finish|close|check off)\b.*\b(task|todo|to-do|ticket)\b|\b(task|todo|to-do)\b.*\b(is )?(done|completed|finished)\b`)},
	{entity.IntentUpdateTask, regexp.MustCompile(`(?i)\b(update|change|move|reschedule|rename|edit|reassign)\b.*\b(task|todo|to-do|ticket)\b`)},
	{entity.IntentCreateTask, regexp.MustCompile(`(?i)\b(create|add|new|make|log)\b.*\b(task|todo|to-do|reminder)\b|^\s*remind me to\b`)},
	{entity.IntentListTasks, regexp.MustCompile(`(?i)\b(list|show|what are|which are)\b.*\b(tasks|todos|to-dos)\b`)},
	{entity.IntentCreateGoal, regexp.MustCompile(`(?i)\b(set|create|add|new|define)\b.*\b(goal|okr|objective)s?\b`)},
	{entity.IntentCreateProject, regexp.MustCompile(`(?i)\b(start|create|new|kick ?off|set up|spin up)\b.*\bproject\b`)},
	{entity.IntentScheduleMeeting, regexp.MustCompile(`(?i)\b(schedule|book|set up|arrange|plan)\b.*\b(meeting|call|sync|standup|1:1|one-on-one)\b`)},
	{entity.IntentSummarize, regexp.MustCompile(`(?i)\b(summari[sz]e|summary|tl;?dr|recap)\b`)},
	{entity.IntentAnalyzeImage, regexp.MustCompile(`(?i)\b(analy[sz]e|describe|explain|what'?s in)\b.*\b(image|photo|picture|screenshot)\b`)},
	{entity.IntentDesignVisual, regexp.MustCompile(`(?i)\b(design|draw|sketch|mock ?up|logo|illustration|wireframe|banner|infographic)\b`)},
	{entity.IntentDebug, regexp.MustCompile(`(?i)\b(debug|stack ?trace|exception|segfault|bug|crash(es|ed|ing)?|throws?|panic(s|ked)?)\b`)},
	{entity.IntentPlanStrategy, regexp.MustCompile(`(?i)\b(strategy|strategic|roadmap|plan out|trade-?offs?|architecture|go-to-market)\b`)},
	{entity.IntentBrainstorm, regexp.MustCompile(`(?i)\b(brainstorm(ing)?|ideas? for|come up with)\b`)},
	{entity.IntentWriteContent, regexp.MustCompile(`(?i)\b(write|draft|compose)\b.*\b(post|blog|article|copy|story|poem|essay|announcement|newsletter|tagline)\b`)},
}

// RuleConfidence is reported whenever a rule fires.
const RuleConfidence = 0.9
