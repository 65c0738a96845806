package entity

type Category string

const (
	CategoryVisual        Category = "visual"
	CategoryDeepReasoning Category = "deep-reasoning"
	CategoryCreative      Category = "creative"
	CategoryQuick         Category = "quick"
	CategoryDefault       Category = "default"
)

var Categories = []Category{
	CategoryVisual, CategoryDeepReasoning, CategoryCreative, CategoryQuick, CategoryDefault,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Skill string

const (
	SkillDocuments     Skill = "documents"
	SkillMessaging     Skill = "messaging"
	SkillIssueTracker  Skill = "issue_tracker"
	SkillCalendar      Skill = "calendar"
	SkillWebSearch     Skill = "web_search"
	SkillImageAnalysis Skill = "image_analysis"
	SkillEmail         Skill = "email"
)

var Skills = []Skill{
	SkillDocuments, SkillMessaging, SkillIssueTracker, SkillCalendar,
	SkillWebSearch, SkillImageAnalysis, SkillEmail,
}

func (s Skill) Valid() bool {
	for _, known := range Skills {
		if s == known {
			return true
		}
	}
	return false
}

// CategoryProfile describes how requests of one category are executed.
type CategoryProfile struct {
	Category     Category
	Target       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}
