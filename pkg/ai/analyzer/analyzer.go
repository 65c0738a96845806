package analyzer

import (
	"fmt"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/ai/classify"
)

// TenantContext carries per-tenant analysis knobs.
type TenantContext struct {
	TenantId string
	// DisabledIntents are reported as unknown for this tenant.
	DisabledIntents map[entity.Intent]bool
}

type Config struct {
	// MinClassifierConfidence is the posterior below which the fallback result is discarded.
	MinClassifierConfidence float64
	MaxTextLength           int
}

func DefaultConfig() Config {
	return Config{MinClassifierConfidence: 0.35, MaxTextLength: 8000}
}

// Analyzer turns raw text into an AnalysisResult. It holds only read-only
// tables built at construction time and is safe for concurrent use.
type Analyzer struct {
	rules      []IntentRule
	extractors []Extractor
	classifier *classify.NaiveBayes
	cfg        Config
	logger     logger.ILogger
}

func NewAnalyzer(cfg Config, log logger.ILogger) *Analyzer {
	return &Analyzer{
		rules:      DefaultRules,
		extractors: DefaultExtractors,
		classifier: NewIntentClassifier(),
		cfg:        cfg,
		logger:     log,
	}
}

// WithRules replaces the rule table; used by tests and tenant-specific builds.
func (a *Analyzer) WithRules(rules []IntentRule) *Analyzer {
	cp := *a
	cp.rules = rules
	return &cp
}

// Analyze never fails: input it cannot make sense of yields UnknownAnalysis.
func (a *Analyzer) Analyze(text string, tenant TenantContext) (result entity.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("ANALYZER", "Analysis panicked, returning unknown", map[string]interface{}{
				"tenant_id": tenant.TenantId,
				"panic":     fmt.Sprint(r),
			})
			result = entity.UnknownAnalysis()
		}
	}()

	text = strings.ToValidUTF8(text, "")
	if a.cfg.MaxTextLength > 0 && len(text) > a.cfg.MaxTextLength {
		text = text[:a.cfg.MaxTextLength]
		text = strings.ToValidUTF8(text, "")
	}
	if strings.TrimSpace(text) == "" {
		return entity.UnknownAnalysis()
	}

	result = entity.UnknownAnalysis()
	result.Entities = a.extractEntities(text)

	if intent, ok := a.matchRule(text); ok {
		result.Intent = intent
		result.Confidence = RuleConfidence
		result.Source = entity.SourceRule
	} else {
		pred := a.classifier.Classify(text)
		if pred.Known && pred.Score >= a.cfg.MinClassifierConfidence {
			result.Intent = entity.Intent(pred.Label)
			result.Confidence = pred.Score
			result.Source = entity.SourceClassifier
		}
	}

	if tenant.DisabledIntents[result.Intent] {
		result.Intent = entity.IntentUnknown
		result.Confidence = 0
		result.Source = entity.SourceNone
	}

	a.logger.Debug("ANALYZER", "Request analyzed", map[string]interface{}{
		"tenant_id":  tenant.TenantId,
		"intent":     result.Intent,
		"source":     result.Source,
		"confidence": result.Confidence,
		"entities":   len(result.Entities),
	})
	return result
}

// matchRule returns the intent of the first rule, in registration order, that fires.
func (a *Analyzer) matchRule(text string) (entity.Intent, bool) {
	for _, rule := range a.rules {
		if rule.Pattern.MatchString(text) {
			return rule.Intent, true
		}
	}
	return "", false
}

func (a *Analyzer) extractEntities(text string) []entity.Entity {
	var all []entity.Entity
	for _, extract := range a.extractors {
		all = append(all, extract(text)...)
	}
	return orderEntities(all)
}
