package service

import (
	"context"
	"time"

	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/ai/dispatch"
	"ai-orchestrator-be/pkg/apperror"
	"ai-orchestrator-be/pkg/usage"
)

// Pipeline is the orchestration entry point the web channel uses.
type Pipeline interface {
	Handle(ctx context.Context, req entity.Request) (*entity.Result, error)
	InspectSession(ctx context.Context, tenantId, conversationId string) (entity.SessionSummary, error)
}

type BreakerSource interface {
	Snapshots() []dispatch.BreakerSnapshot
}

type UsageSource interface {
	Aggregate() []usage.Totals
	Dropped() int
}

type ConnectionCounter interface {
	Count() int
}

type IOrchestratorService interface {
	Dispatch(ctx context.Context, tenantId, userId string, req *dto.DispatchRequest) (*dto.DispatchResponse, error)
	InspectSession(ctx context.Context, callerTenantId, tenantId, conversationId string) (*entity.SessionSummary, error)
	Health() *dto.HealthResponse
}

type orchestratorService struct {
	pipeline    Pipeline
	breakers    BreakerSource
	usage       UsageSource
	persistence ISessionPersistenceService
	connections ConnectionCounter
	now         func() time.Time
}

// NewOrchestratorService wires the health sources; persistence and
// connections may be nil.
func NewOrchestratorService(
	pipeline Pipeline,
	breakers BreakerSource,
	usage UsageSource,
	persistence ISessionPersistenceService,
	connections ConnectionCounter,
) IOrchestratorService {
	return &orchestratorService{
		pipeline:    pipeline,
		breakers:    breakers,
		usage:       usage,
		persistence: persistence,
		connections: connections,
		now:         time.Now,
	}
}

func (s *orchestratorService) Dispatch(ctx context.Context, tenantId, userId string, req *dto.DispatchRequest) (*dto.DispatchResponse, error) {
	result, err := s.pipeline.Handle(ctx, req.ToRequest(entity.ChannelWeb, tenantId, userId, s.now()))
	if err != nil {
		return nil, err
	}
	resp := dto.NewDispatchResponse(result)
	return &resp, nil
}

// InspectSession only serves sessions of the caller's own tenant; anything
// else looks like a miss.
func (s *orchestratorService) InspectSession(ctx context.Context, callerTenantId, tenantId, conversationId string) (*entity.SessionSummary, error) {
	if callerTenantId != tenantId {
		return nil, apperror.NotFound("session %s:%s not found", tenantId, conversationId)
	}
	summary, err := s.pipeline.InspectSession(ctx, tenantId, conversationId)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *orchestratorService) Health() *dto.HealthResponse {
	resp := &dto.HealthResponse{
		Status:   "ok",
		Breakers: s.breakers.Snapshots(),
		Usage:    s.usage.Aggregate(),
	}
	resp.UsageDropped = s.usage.Dropped()
	if s.persistence != nil {
		resp.PersistFailures = s.persistence.Failed()
	}
	if s.connections != nil {
		resp.ChatConnections = s.connections.Count()
	}
	for _, b := range resp.Breakers {
		if b.State != dispatch.StateClosed.String() {
			resp.Status = "degraded"
			break
		}
	}
	return resp
}
