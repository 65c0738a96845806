package bootstrap

import (
	"fmt"
	"sort"
	"strings"

	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/constant"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/ai/analyzer"
	"ai-orchestrator-be/pkg/ai/pipeline"
	"ai-orchestrator-be/pkg/ai/router"
	"ai-orchestrator-be/pkg/ai/skills"
	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/llm/factory"
)

// BuildProfiles gives every category a profile. Categories without a
// CATEGORY_PROFILES entry run on the default target with its default model.
func BuildProfiles(ai config.AIConfig) (map[entity.Category]entity.CategoryProfile, error) {
	profiles := make(map[entity.Category]entity.CategoryProfile, len(entity.Categories))
	for _, c := range entity.Categories {
		limits := constant.CategoryLimits[c]
		profiles[c] = entity.CategoryProfile{
			Category:     c,
			Target:       ai.DefaultTarget,
			SystemPrompt: constant.CategoryPrompts[c],
			MaxTokens:    limits.MaxTokens,
			Temperature:  limits.Temperature,
		}
	}

	for name, spec := range ai.CategoryProfiles {
		c := entity.Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("category profile %q: unknown category", name)
		}
		target, model, _ := strings.Cut(spec, ":")
		if strings.TrimSpace(target) == "" {
			return nil, fmt.Errorf("category profile %q: missing target", name)
		}
		p := profiles[c]
		p.Target = strings.TrimSpace(target)
		p.Model = strings.TrimSpace(model)
		profiles[c] = p
	}
	return profiles, nil
}

// BuildProviders creates one provider per target the profiles reference.
func BuildProviders(cfg *config.Config, profiles map[entity.Category]entity.CategoryProfile) (map[string]llm.LLMProvider, error) {
	targets := make(map[string]bool)
	for _, p := range profiles {
		targets[p.Target] = true
	}
	names := make([]string, 0, len(targets))
	for t := range targets {
		names = append(names, t)
	}
	sort.Strings(names)

	providers := make(map[string]llm.LLMProvider, len(names))
	for _, target := range names {
		provider, err := factory.NewLLMProvider(providerConfig(cfg, target))
		if err != nil {
			return nil, fmt.Errorf("backend target %s: %w", target, err)
		}
		providers[target] = provider
	}
	return providers, nil
}

func providerConfig(cfg *config.Config, target string) factory.ProviderConfig {
	switch target {
	case "anthropic":
		return factory.ProviderConfig{Type: target, Model: cfg.Ai.AnthropicModel, BaseURL: cfg.Ai.AnthropicBaseURL, APIKey: cfg.Keys.Anthropic}
	case "huggingface":
		return factory.ProviderConfig{Type: target, Model: cfg.Ai.HuggingFaceModel, BaseURL: cfg.Ai.HuggingFaceBaseURL, APIKey: cfg.Keys.HuggingFace}
	case "ollama":
		return factory.ProviderConfig{Type: target, Model: cfg.Ai.OllamaModel, BaseURL: cfg.Ai.OllamaBaseURL}
	default:
		return factory.ProviderConfig{Type: target}
	}
}

// disabledIntents turns tenant=intent|intent pairs into the pipeline's form.
func disabledIntents(raw map[string]string) map[string][]entity.Intent {
	out := make(map[string][]entity.Intent, len(raw))
	for tenant, list := range raw {
		for _, name := range strings.Split(list, "|") {
			if name = strings.TrimSpace(name); name != "" {
				out[tenant] = append(out[tenant], entity.Intent(name))
			}
		}
	}
	return out
}

func tenantOverrides(raw map[string]string) (map[string]entity.Category, error) {
	out := make(map[string]entity.Category, len(raw))
	for tenant, name := range raw {
		c := entity.Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("tenant override %s: unknown category %q", tenant, name)
		}
		out[tenant] = c
	}
	return out, nil
}

func disabledSkills(raw []string) ([]entity.Skill, error) {
	out := make([]entity.Skill, 0, len(raw))
	for _, name := range raw {
		s := entity.Skill(name)
		if !s.Valid() {
			return nil, fmt.Errorf("disabled skill %q is not a known skill", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// routing builds the stages that need no infrastructure. Sessions,
// Dispatcher and Capabilities are left for the caller.
func routing(cfg *config.Config, log logger.ILogger) (pipeline.Deps, pipeline.Config, error) {
	profiles, err := BuildProfiles(cfg.Ai)
	if err != nil {
		return pipeline.Deps{}, pipeline.Config{}, err
	}
	overrides, err := tenantOverrides(cfg.Router.TenantOverrides)
	if err != nil {
		return pipeline.Deps{}, pipeline.Config{}, err
	}
	skillsDisabled, err := disabledSkills(cfg.Capabilities.DisabledSkills)
	if err != nil {
		return pipeline.Deps{}, pipeline.Config{}, err
	}

	deps := pipeline.Deps{
		Analyzer: analyzer.NewAnalyzer(analyzer.Config{
			MinClassifierConfidence: cfg.Analyzer.MinClassifierConfidence,
			MaxTextLength:           analyzer.DefaultConfig().MaxTextLength,
		}, log),
		Router: router.NewRouter(router.Config{
			CacheTTL:           cfg.Router.CacheTTL,
			BoostWeight:        cfg.Router.BoostWeight,
			MinClassifierScore: cfg.Router.MinClassifierScore,
			DefaultCategory:    entity.CategoryDefault,
			TenantOverrides:    overrides,
		}, log),
		Skills: skills.NewSelector(skillsDisabled, log),
	}
	pipelineCfg := pipeline.Config{
		DefaultDeadline: cfg.App.RequestDeadline,
		Profiles:        profiles,
		DisabledIntents: disabledIntents(cfg.Analyzer.DisabledIntents),
		SummaryLength:   pipeline.DefaultConfig().SummaryLength,
	}
	return deps, pipelineCfg, nil
}

// NewPreviewPipeline is a pipeline that can only Preview; the operator CLI
// uses it to dry-run routing without any backing services.
func NewPreviewPipeline(cfg *config.Config, log logger.ILogger) (*pipeline.Pipeline, error) {
	deps, pipelineCfg, err := routing(cfg, log)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(deps, pipelineCfg, log), nil
}
