package router

import (
	"net/url"
	"sort"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/ai/classify"

	gocache "github.com/patrickmn/go-cache"
)

const (
	StrategyOverride   = "override"
	StrategyCache      = "cache"
	StrategyRules      = "rules"
	StrategyClassifier = "classifier"
	StrategyDefault    = "default"
)

// Input is everything a strategy may look at. It is built once per request.
type Input struct {
	TenantId   string
	Text       string
	Analysis   entity.AnalysisResult
	Continuity entity.Continuity
	// Override is an explicit per-request pin (a /category: directive or API field).
	Override entity.Category
}

// Outcome is a strategy's answer when it decides.
type Outcome struct {
	Category entity.Category
	Scores   map[entity.Category]float64
	Boosted  bool
}

// Strategy reads Input and either decides or passes. Strategies never write
// shared state; the Router owns the cache write after a decision.
type Strategy interface {
	Name() string
	Decide(in Input) (Outcome, bool)
}

// overrideStrategy: request pin first, then tenant pin.
type overrideStrategy struct {
	tenantOverrides map[string]entity.Category
}

func (s overrideStrategy) Name() string { return StrategyOverride }

func (s overrideStrategy) Decide(in Input) (Outcome, bool) {
	if in.Override.Valid() {
		return Outcome{Category: in.Override}, true
	}
	if category, ok := s.tenantOverrides[in.TenantId]; ok && category.Valid() {
		return Outcome{Category: category}, true
	}
	return Outcome{}, false
}

type cacheEntry struct {
	Category entity.Category
	StoredAt time.Time
}

type cacheStrategy struct {
	cache *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func (s cacheStrategy) Name() string { return StrategyCache }

func (s cacheStrategy) Decide(in Input) (Outcome, bool) {
	if !cacheable(in.Analysis) {
		return Outcome{}, false
	}
	raw, found := s.cache.Get(cacheKey(in.TenantId, in.Analysis))
	if !found {
		return Outcome{}, false
	}
	entry := raw.(cacheEntry)
	if s.now().Sub(entry.StoredAt) >= s.ttl {
		return Outcome{}, false
	}
	return Outcome{Category: entry.Category}, true
}

func cacheKey(tenantId string, a entity.AnalysisResult) string {
	return url.QueryEscape(tenantId) + "#" + Signature(a)
}

// DefaultIntentCategories maps unambiguous intents straight to a category.
// question, research and unknown are left to the classifier.
var DefaultIntentCategories = map[entity.Intent]entity.Category{
	entity.IntentGreeting:        entity.CategoryQuick,
	entity.IntentCreateTask:      entity.CategoryQuick,
	entity.IntentCompleteTask:    entity.CategoryQuick,
	entity.IntentUpdateTask:      entity.CategoryQuick,
	entity.IntentListTasks:       entity.CategoryQuick,
	entity.IntentCreateGoal:      entity.CategoryQuick,
	entity.IntentScheduleMeeting: entity.CategoryQuick,
	entity.IntentSummarize:       entity.CategoryQuick,
	entity.IntentCreateProject:   entity.CategoryDeepReasoning,
	entity.IntentPlanStrategy:    entity.CategoryDeepReasoning,
	entity.IntentDebug:           entity.CategoryDeepReasoning,
	entity.IntentBrainstorm:      entity.CategoryCreative,
	entity.IntentWriteContent:    entity.CategoryCreative,
	entity.IntentDesignVisual:    entity.CategoryVisual,
	entity.IntentAnalyzeImage:    entity.CategoryVisual,
}

type ruleStrategy struct {
	table map[entity.Intent]entity.Category
}

func (s ruleStrategy) Name() string { return StrategyRules }

func (s ruleStrategy) Decide(in Input) (Outcome, bool) {
	category, ok := s.table[in.Analysis.Intent]
	if !ok {
		return Outcome{}, false
	}
	return Outcome{Category: category}, true
}

// Scorer produces a category posterior for an input.
type Scorer interface {
	Score(in Input) classify.Prediction
}

// NaiveBayesScorer classifies the request text against the category seed corpus.
type NaiveBayesScorer struct {
	model *classify.NaiveBayes
}

func NewNaiveBayesScorer() *NaiveBayesScorer {
	return &NaiveBayesScorer{model: NewCategoryClassifier()}
}

func (s *NaiveBayesScorer) Score(in Input) classify.Prediction {
	return s.model.Classify(in.Text)
}

// Labels lists every category the scorer can produce.
func (s *NaiveBayesScorer) Labels() []string {
	return s.model.Labels()
}

type classifierStrategy struct {
	scorer      Scorer
	boostWeight float64
	minScore    float64
}

func (s classifierStrategy) Name() string { return StrategyClassifier }

// Decide adds boostWeight × continuity to the previous turn's category. A tie
// at the top, or a winner under minScore, passes to the default strategy.
func (s classifierStrategy) Decide(in Input) (Outcome, bool) {
	pred := s.scorer.Score(in)

	scores := make(map[entity.Category]float64, len(entity.Categories))
	if pred.Known {
		for label, p := range pred.Scores {
			scores[entity.Category(label)] = p
		}
	} else {
		// no evidence at all: every category is equally likely
		for _, c := range entity.Categories {
			scores[c] = 1 / float64(len(entity.Categories))
		}
	}

	unboosted, unboostedTied := best(scores)

	boosted := false
	prev := in.Continuity.PreviousCategory
	if prev.Valid() && in.Continuity.Score > 0 && s.boostWeight > 0 {
		scores[prev] += s.boostWeight * in.Continuity.Score
		boosted = true
	}

	winner, tied := best(scores)
	if tied || winner == "" || scores[winner] < s.minScore {
		return Outcome{Scores: scores}, false
	}
	return Outcome{Category: winner, Scores: scores, Boosted: boosted && (unboostedTied || winner != unboosted)}, true
}

// best returns the highest-scoring category and whether another one shares that score.
func best(scores map[entity.Category]float64) (entity.Category, bool) {
	categories := make([]entity.Category, 0, len(scores))
	for c := range scores {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	var winner entity.Category
	var top float64
	tied := false
	for _, c := range categories {
		switch {
		case winner == "" || scores[c] > top:
			winner, top, tied = c, scores[c], false
		case scores[c] == top:
			tied = true
		}
	}
	return winner, tied
}

type defaultStrategy struct {
	category entity.Category
}

func (s defaultStrategy) Name() string { return StrategyDefault }

func (s defaultStrategy) Decide(Input) (Outcome, bool) {
	return Outcome{Category: s.category}, true
}
