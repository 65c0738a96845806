package entity

type Intent string

const (
	IntentUnknown         Intent = "unknown"
	IntentGreeting        Intent = "greeting"
	IntentCreateTask      Intent = "create_task"
	IntentCompleteTask    Intent = "complete_task"
	IntentUpdateTask      Intent = "update_task"
	IntentListTasks       Intent = "list_tasks"
	IntentCreateGoal      Intent = "create_goal"
	IntentCreateProject   Intent = "create_project"
	IntentScheduleMeeting Intent = "schedule_meeting"
	IntentSummarize       Intent = "summarize"
	IntentDesignVisual    Intent = "design_visual"
	IntentAnalyzeImage    Intent = "analyze_image"
	IntentDebug           Intent = "debug"
	IntentPlanStrategy    Intent = "plan_strategy"
	IntentBrainstorm      Intent = "brainstorm"
	IntentWriteContent    Intent = "write_content"
	IntentQuestion        Intent = "question"
	IntentResearch        Intent = "research"
)

var Intents = []Intent{
	IntentGreeting, IntentCreateTask, IntentCompleteTask, IntentUpdateTask, IntentListTasks,
	IntentCreateGoal, IntentCreateProject, IntentScheduleMeeting, IntentSummarize,
	IntentDesignVisual, IntentAnalyzeImage, IntentDebug, IntentPlanStrategy,
	IntentBrainstorm, IntentWriteContent, IntentQuestion, IntentResearch,
}

type EntityType string

const (
	EntityDueDate     EntityType = "dueDate"
	EntityURL         EntityType = "url"
	EntityEmail       EntityType = "email"
	EntityMention     EntityType = "mention"
	EntityIntegration EntityType = "integration"
	EntityPriority    EntityType = "priority"
	EntityAttachment  EntityType = "attachment"
	EntityWebQuery    EntityType = "webQuery"
)

// Span is a half-open byte range [Start, End) into the analyzed text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Entity struct {
	Type  EntityType `json:"type"`
	Value string     `json:"value"`
	Span  Span       `json:"span"`
}

type AnalysisSource string

const (
	SourceRule       AnalysisSource = "rule"
	SourceClassifier AnalysisSource = "classifier"
	SourceNone       AnalysisSource = "none"
)

type AnalysisResult struct {
	Intent     Intent
	Entities   []Entity
	Confidence float64
	Source     AnalysisSource
}

// HasEntity reports whether at least one entity of type t was extracted.
func (a AnalysisResult) HasEntity(t EntityType) bool {
	for _, e := range a.Entities {
		if e.Type == t {
			return true
		}
	}
	return false
}

func (a AnalysisResult) EntityValues(t EntityType) []string {
	var values []string
	for _, e := range a.Entities {
		if e.Type == t {
			values = append(values, e.Value)
		}
	}
	return values
}

// Unknown is the zero-information result returned when nothing could be extracted.
func UnknownAnalysis() AnalysisResult {
	return AnalysisResult{Intent: IntentUnknown, Entities: []Entity{}, Confidence: 0, Source: SourceNone}
}
