package dto

import (
	"time"

	"ai-orchestrator-be/internal/entity"

	"github.com/google/uuid"
)

type DispatchRequest struct {
	ConversationId string   `json:"conversation_id" validate:"required,max=128"`
	Text           string   `json:"text" validate:"required,max=8000"`
	Category       string   `json:"category,omitempty" validate:"omitempty,category"`
	Skills         []string `json:"skills,omitempty" validate:"omitempty,max=7,dive,skill"`
	DeadlineMs     int      `json:"deadline_ms,omitempty" validate:"omitempty,min=1,max=600000"`
}

// ToRequest builds the pipeline request for a caller identified by the tenant middleware.
func (r DispatchRequest) ToRequest(channelId, tenantId, userId string, now time.Time) entity.Request {
	req := entity.Request{
		Id:               uuid.New(),
		Text:             r.Text,
		ChannelId:        channelId,
		UserId:           userId,
		TenantId:         tenantId,
		ConversationId:   r.ConversationId,
		ArrivedAt:        now,
		CategoryOverride: entity.Category(r.Category),
	}
	for _, s := range r.Skills {
		req.SkillOverrides = append(req.SkillOverrides, entity.Skill(s))
	}
	if r.DeadlineMs > 0 {
		req.Deadline = now.Add(time.Duration(r.DeadlineMs) * time.Millisecond)
	}
	return req
}

type EntityDTO struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type UsageDTO struct {
	Target    string  `json:"target"`
	Model     string  `json:"model"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	Cost      float64 `json:"cost"`
	LatencyMs int64   `json:"latency_ms"`
}

type DispatchResponse struct {
	PlanId     uuid.UUID               `json:"plan_id"`
	Text       string                  `json:"text"`
	Category   string                  `json:"category"`
	Strategy   string                  `json:"strategy"`
	Skills     []string                `json:"skills"`
	Intent     string                  `json:"intent"`
	Confidence float64                 `json:"confidence"`
	Source     string                  `json:"source"`
	Entities   []EntityDTO             `json:"entities"`
	Attempts   int                     `json:"attempts"`
	Usage      UsageDTO                `json:"usage"`
	ToolCalls  []entity.ToolInvocation `json:"tool_calls,omitempty"`
	FinishedAt time.Time               `json:"finished_at"`
}

func NewDispatchResponse(r *entity.Result) DispatchResponse {
	resp := DispatchResponse{
		PlanId:     r.PlanId,
		Text:       r.Text,
		Category:   string(r.Category),
		Strategy:   r.Strategy,
		Skills:     []string{},
		Intent:     string(r.Analysis.Intent),
		Confidence: r.Analysis.Confidence,
		Source:     string(r.Analysis.Source),
		Entities:   []EntityDTO{},
		Attempts:   r.Attempts,
		Usage: UsageDTO{
			Target:    r.Usage.BackendTarget,
			Model:     r.Usage.Model,
			TokensIn:  r.Usage.TokensIn,
			TokensOut: r.Usage.TokensOut,
			Cost:      r.Usage.Cost,
			LatencyMs: r.Usage.Latency.Milliseconds(),
		},
		ToolCalls:  r.ToolCalls,
		FinishedAt: r.FinishedAt,
	}
	for _, s := range r.Skills {
		resp.Skills = append(resp.Skills, string(s))
	}
	for _, e := range r.Analysis.Entities {
		resp.Entities = append(resp.Entities, EntityDTO{Type: string(e.Type), Value: e.Value, Start: e.Span.Start, End: e.Span.End})
	}
	return resp
}
