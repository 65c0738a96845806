package bootstrap

import (
	"testing"

	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProfiles(t *testing.T) {
	profiles, err := BuildProfiles(config.AIConfig{
		DefaultTarget:    "ollama",
		CategoryProfiles: map[string]string{"deep-reasoning": "anthropic:claude-sonnet-4-5"},
	})
	require.NoError(t, err)
	require.Len(t, profiles, len(entity.Categories))

	deep := profiles[entity.CategoryDeepReasoning]
	assert.Equal(t, "anthropic", deep.Target)
	assert.Equal(t, "claude-sonnet-4-5", deep.Model)
	assert.NotEmpty(t, deep.SystemPrompt)
	assert.Equal(t, 4096, deep.MaxTokens)

	quick := profiles[entity.CategoryQuick]
	assert.Equal(t, "ollama", quick.Target)
	assert.Empty(t, quick.Model)
}

func TestBuildProfilesRejectsBadEntries(t *testing.T) {
	_, err := BuildProfiles(config.AIConfig{DefaultTarget: "ollama", CategoryProfiles: map[string]string{"poetry": "ollama"}})
	assert.Error(t, err)

	_, err = BuildProfiles(config.AIConfig{DefaultTarget: "ollama", CategoryProfiles: map[string]string{"quick": ":llama3"}})
	assert.Error(t, err)
}

func TestBuildProvidersOnePerTarget(t *testing.T) {
	cfg := &config.Config{
		Ai:   config.AIConfig{DefaultTarget: "ollama", OllamaModel: "llama3", CategoryProfiles: map[string]string{"creative": "anthropic:"}},
		Keys: config.APIKeys{Anthropic: "test-key"},
	}
	profiles, err := BuildProfiles(cfg.Ai)
	require.NoError(t, err)

	providers, err := BuildProviders(cfg, profiles)
	require.NoError(t, err)
	assert.Len(t, providers, 2)
	assert.Equal(t, "ollama", providers["ollama"].Name())
	assert.Equal(t, "anthropic", providers["anthropic"].Name())

	cfg.Keys.Anthropic = ""
	_, err = BuildProviders(cfg, profiles)
	assert.Error(t, err)
}

func TestTenantSettings(t *testing.T) {
	intents := disabledIntents(map[string]string{"acme": "create_task|debug"})
	assert.Equal(t, []entity.Intent{entity.IntentCreateTask, entity.IntentDebug}, intents["acme"])

	overrides, err := tenantOverrides(map[string]string{"acme": "deep-reasoning"})
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryDeepReasoning, overrides["acme"])
	_, err = tenantOverrides(map[string]string{"acme": "fast"})
	assert.Error(t, err)

	skills, err := disabledSkills([]string{"email"})
	require.NoError(t, err)
	assert.Equal(t, []entity.Skill{entity.SkillEmail}, skills)
	_, err = disabledSkills([]string{"fax"})
	assert.Error(t, err)
}

func TestPreviewPipelineRoutesWithoutInfrastructure(t *testing.T) {
	cfg := &config.Config{
		Ai:     config.AIConfig{DefaultTarget: "ollama", CategoryProfiles: map[string]string{"creative": "anthropic:claude-sonnet-4-5"}},
		Router: config.RouterConfig{TenantOverrides: map[string]string{}},
	}
	p, err := NewPreviewPipeline(cfg, logger.NewNopLogger())
	require.NoError(t, err)

	preview := p.Preview("acme", "/category:creative write a short poem about autumn")
	assert.Equal(t, entity.CategoryCreative, preview.Decision.Category)
	assert.Equal(t, "override", preview.Decision.Strategy)
	assert.Equal(t, "anthropic", preview.Profile.Target)
	assert.Equal(t, "write a short poem about autumn", preview.Directives.CleanText)
}
