package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"ai-orchestrator-be/internal/bootstrap"
	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/repository/specification"
	"ai-orchestrator-be/pkg/usage"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestPrintPreview(t *testing.T) {
	p, err := bootstrap.NewPreviewPipeline(&config.Config{Ai: config.AIConfig{DefaultTarget: "ollama"}}, logger.NewNopLogger())
	require.NoError(t, err)

	var buf bytes.Buffer
	printPreview(&buf, p.Preview("cli", "/category:visual /skill:email design a logo for the launch"))

	out := buf.String()
	assert.Contains(t, out, "Category    visual by override")
	assert.Contains(t, out, "email")
	assert.Contains(t, out, "Target      ollama (default model)")
}

func TestPrintSummary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sum := entity.SessionSummary{
		TenantId:          "acme",
		ConversationId:    "c1",
		TurnCount:         2,
		LastActive:        now,
		LastCategory:      entity.CategoryQuick,
		CategoryHistogram: map[entity.Category]int{entity.CategoryQuick: 2},
		RecentTurns:       []entity.Turn{{RequestText: "remind me at 5", Category: entity.CategoryQuick, ResultSummary: "Reminder set", Timestamp: now}},
	}

	var buf bytes.Buffer
	printSummary(&buf, sum)
	out := buf.String()
	assert.Contains(t, out, "acme:c1")
	assert.Contains(t, out, "quick=2")
	assert.Contains(t, out, "-> Reminder set")
}

func TestPrintUsage(t *testing.T) {
	e := usage.ToEvent(entity.Usage{BackendTarget: "anthropic", Model: "claude-sonnet-4-5", TokensIn: 10, TokensOut: 5, Abandoned: true}, time.Now())

	var buf bytes.Buffer
	printUsage(&buf, e)
	out := buf.String()
	assert.Contains(t, out, "anthropic")
	assert.Contains(t, out, "fail abandoned")
}

type recordingRepo struct {
	countSpecs []specification.Specification
	findSpecs  []specification.Specification
	sessions   []*entity.Session
}

func (r *recordingRepo) Upsert(context.Context, *entity.Session) error { return nil }

func (r *recordingRepo) FindOne(context.Context, ...specification.Specification) (*entity.Session, error) {
	return nil, nil
}

func (r *recordingRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Session, error) {
	r.findSpecs = specs
	return r.sessions, nil
}

func (r *recordingRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.countSpecs = specs
	return 7, nil
}

func TestListSessionsFiltersAndPages(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &recordingRepo{sessions: []*entity.Session{entity.NewSession(entity.SessionKey{TenantId: "acme", ConversationId: "c1"}, since)}}

	page, err := listSessions(context.Background(), repo, sessionQuery{
		TenantId: "acme",
		Since:    since,
		Category: entity.CategoryCreative,
		Limit:    5,
		Offset:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total)
	assert.Len(t, page.Sessions, 1)

	filters := []specification.Specification{
		specification.ByTenant{TenantId: "acme"},
		specification.ActiveSince{Since: since},
		specification.ByLastCategory{Category: "creative"},
	}
	assert.Equal(t, filters, repo.countSpecs)
	assert.Equal(t, append(filters,
		specification.OrderBy{Field: "last_active", Desc: true},
		specification.Pagination{Limit: 5, Offset: 5},
	), repo.findSpecs)
}

func TestListSessionsWithoutCategory(t *testing.T) {
	repo := &recordingRepo{}
	_, err := listSessions(context.Background(), repo, sessionQuery{TenantId: "acme", Limit: 20})
	require.NoError(t, err)
	assert.Len(t, repo.countSpecs, 2)
	assert.Len(t, repo.findSpecs, 4)
}

func TestPrintSessionPage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := entity.NewSession(entity.SessionKey{TenantId: "acme", ConversationId: "launch-plan"}, now)
	s.Turns = append(s.Turns, entity.Turn{RequestText: "draft a tagline", Category: entity.CategoryCreative})

	var buf bytes.Buffer
	printSessionPage(&buf, &sessionPage{Sessions: []*entity.Session{s}, Total: 3}, 0)
	out := buf.String()
	assert.Contains(t, out, "launch-plan")
	assert.Contains(t, out, "creative")
	assert.Contains(t, out, "1-1 of 3")

	buf.Reset()
	printSessionPage(&buf, &sessionPage{Total: 0}, 0)
	assert.Contains(t, buf.String(), "No sessions")
}
