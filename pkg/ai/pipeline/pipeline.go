package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/ai/analyzer"
	"ai-orchestrator-be/pkg/ai/dispatch"
	"ai-orchestrator-be/pkg/ai/router"
	"ai-orchestrator-be/pkg/ai/session"
	"ai-orchestrator-be/pkg/ai/skills"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	// DefaultDeadline applies when a request carries no deadline of its own.
	DefaultDeadline time.Duration
	Profiles        map[entity.Category]entity.CategoryProfile
	// DisabledIntents lists, per tenant, intents the analyzer must report as unknown.
	DisabledIntents map[string][]entity.Intent
	SummaryLength   int
}

func DefaultConfig() Config {
	return Config{
		DefaultDeadline: 60 * time.Second,
		Profiles:        map[entity.Category]entity.CategoryProfile{},
		DisabledIntents: map[string][]entity.Intent{},
		SummaryLength:   280,
	}
}

// SideEffects reports whether the capabilities behind skills mutate external state.
type SideEffects interface {
	HasSideEffects(skills []entity.Skill) bool
}

type Deps struct {
	Analyzer     *analyzer.Analyzer
	Router       *router.Router
	Skills       *skills.Selector
	Sessions     *session.Manager
	Dispatcher   *dispatch.Dispatcher
	Capabilities SideEffects
}

// Pipeline wires the stages together. Handle is its only write path.
type Pipeline struct {
	deps     Deps
	cfg      Config
	validate *validator.Validate
	tracer   trace.Tracer
	now      func() time.Time
	logger   logger.ILogger
}

func NewPipeline(deps Deps, cfg Config, log logger.ILogger) *Pipeline {
	return &Pipeline{
		deps:     deps,
		cfg:      cfg,
		validate: entity.NewValidator(),
		tracer:   otel.Tracer("ai-orchestrator/pipeline"),
		now:      time.Now,
		logger:   log,
	}
}

func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Preview is a dry run of the routing stages for one message; nothing is dispatched or stored.
type Preview struct {
	Directives *router.Directives
	Analysis   entity.AnalysisResult
	Decision   router.Decision
	Skills     []entity.Skill
	Profile    entity.CategoryProfile
}

func (p *Pipeline) Preview(tenantId, text string) Preview {
	directives := router.ParseDirectives(text)
	analysis := p.deps.Analyzer.Analyze(directives.CleanText, p.tenantContext(tenantId))
	decision := p.deps.Router.Decide(router.Input{
		TenantId: tenantId,
		Text:     directives.CleanText,
		Analysis: analysis,
		Override: directives.Category,
	})
	return Preview{
		Directives: directives,
		Analysis:   analysis,
		Decision:   decision,
		Skills:     p.deps.Skills.Select(analysis, decision.Category, directives.Skills...),
		Profile:    p.profile(decision.Category),
	}
}

// Handle runs one request through analysis, routing, dispatch and session
// update. It returns either a result or a typed *apperror.Error.
func (p *Pipeline) Handle(ctx context.Context, req entity.Request) (*entity.Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Handle")
	defer span.End()

	result, err := p.handle(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperror.KindOf(err)))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("category", string(result.Category)),
		attribute.String("strategy", result.Strategy),
		attribute.Int("attempts", result.Attempts),
	)
	return result, nil
}

func (p *Pipeline) handle(ctx context.Context, req entity.Request) (*entity.Result, error) {
	// 1. Validate
	if req.Id == uuid.Nil {
		req.Id = uuid.New()
	}
	if req.ArrivedAt.IsZero() {
		req.ArrivedAt = p.now()
	}
	if err := p.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	directives := router.ParseDirectives(req.Text)
	if directives.IsEmpty() {
		return nil, apperror.Validation("text is empty once directives are removed")
	}
	if len(directives.Rejected) > 0 {
		p.logger.Warn("PIPELINE", "Ignoring unknown directives", map[string]interface{}{
			"request_id": req.Id.String(),
			"rejected":   directives.Rejected,
		})
	}
	req.Text = directives.CleanText

	override := req.CategoryOverride
	if override == "" {
		override = directives.Category
	}
	explicitSkills := append(append([]entity.Skill{}, req.SkillOverrides...), directives.Skills...)

	// 2. Deadline
	var cancel context.CancelFunc
	if !req.Deadline.IsZero() {
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
	} else {
		ctx, cancel = context.WithTimeout(ctx, p.cfg.DefaultDeadline)
	}
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, apperror.Timeout("accept", err)
	}

	// 3. Session and analysis run side by side. The conversation stays
	// locked until the turn is recorded so requests on one session are
	// handled in arrival order.
	key := entity.SessionKey{TenantId: req.TenantId, ConversationId: req.ConversationId}
	var (
		conv     *session.Conversation
		analysis entity.AnalysisResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conv, err = p.deps.Sessions.Open(gctx, key)
		return err
	})
	g.Go(func() error {
		_, span := p.tracer.Start(gctx, "pipeline.analyze")
		defer span.End()
		analysis = p.deps.Analyzer.Analyze(req.Text, p.tenantContext(req.TenantId))
		span.SetAttributes(attribute.String("intent", string(analysis.Intent)))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	defer conv.Close()
	sess := conv.Session()

	// 4. Category and skills
	continuity := p.deps.Sessions.Continuity(sess, analysis)
	decision := p.deps.Router.Decide(router.Input{
		TenantId:   req.TenantId,
		Text:       req.Text,
		Analysis:   analysis,
		Continuity: continuity,
		Override:   override,
	})
	selected := p.deps.Skills.Select(analysis, decision.Category, explicitSkills...)

	// 5. Plan
	profile := p.profile(decision.Category)
	if profile.Target == "" {
		return nil, apperror.Internal(fmt.Sprintf("no backend profile for category %s", decision.Category), nil)
	}
	idempotent := true
	if p.deps.Capabilities != nil && p.deps.Capabilities.HasSideEffects(selected) {
		idempotent = false
	}
	plan := &entity.ExecutionPlan{
		Id:         uuid.New(),
		Request:    req,
		Analysis:   analysis,
		Category:   decision.Category,
		Strategy:   decision.Strategy,
		Skills:     selected,
		Session:    sess.Clone(),
		Profile:    profile,
		Target:     profile.Target,
		Idempotent: idempotent,
		CreatedAt:  p.now(),
	}

	p.logger.Info("PIPELINE", "Plan built", map[string]interface{}{
		"request_id": req.Id.String(),
		"plan_id":    plan.Id.String(),
		"tenant":     req.TenantId,
		"intent":     analysis.Intent,
		"confidence": analysis.Confidence,
		"category":   decision.Category,
		"strategy":   decision.Strategy,
		"boosted":    decision.Boosted,
		"skills":     selected,
		"target":     plan.Target,
	})

	// 6. Dispatch
	if err := ctx.Err(); err != nil {
		return nil, apperror.Timeout("pre-dispatch", err)
	}
	dctx, span := p.tracer.Start(ctx, "pipeline.dispatch", trace.WithAttributes(
		attribute.String("target", plan.Target),
		attribute.String("category", string(plan.Category)),
	))
	result, err := p.deps.Dispatcher.Dispatch(dctx, plan).Wait(dctx)
	span.End()
	if err != nil {
		p.logger.Warn("PIPELINE", "Dispatch failed", map[string]interface{}{
			"plan_id": plan.Id.String(),
			"kind":    apperror.KindOf(err),
			"error":   err.Error(),
		})
		return nil, err
	}

	// 7. Record the turn; a completed result is returned even if this fails.
	turn := entity.Turn{
		RequestText:   req.Text,
		ChannelId:     req.ChannelId,
		Intent:        analysis.Intent,
		Entities:      analysis.Entities,
		Category:      decision.Category,
		Skills:        selected,
		ResultSummary: summarize(result.Text, p.cfg.SummaryLength),
	}
	if _, err := conv.Append(context.WithoutCancel(ctx), turn); err != nil {
		p.logger.Error("PIPELINE", "Failed to append turn", map[string]interface{}{
			"plan_id": plan.Id.String(),
			"session": key.String(),
			"error":   err.Error(),
		})
	}

	return result, nil
}

// InspectSession is the read-only view used by observability tooling.
func (p *Pipeline) InspectSession(ctx context.Context, tenantId, conversationId string) (entity.SessionSummary, error) {
	if strings.TrimSpace(tenantId) == "" || strings.TrimSpace(conversationId) == "" {
		return entity.SessionSummary{}, apperror.Validation("tenant id and conversation id are required")
	}
	return p.deps.Sessions.Inspect(ctx, entity.SessionKey{TenantId: tenantId, ConversationId: conversationId})
}

func (p *Pipeline) tenantContext(tenantId string) analyzer.TenantContext {
	tc := analyzer.TenantContext{TenantId: tenantId}
	if disabled := p.cfg.DisabledIntents[tenantId]; len(disabled) > 0 {
		tc.DisabledIntents = make(map[entity.Intent]bool, len(disabled))
		for _, intent := range disabled {
			tc.DisabledIntents[intent] = true
		}
	}
	return tc
}

func (p *Pipeline) profile(category entity.Category) entity.CategoryProfile {
	if profile, ok := p.cfg.Profiles[category]; ok {
		return profile
	}
	profile := p.cfg.Profiles[entity.CategoryDefault]
	profile.Category = category
	return profile
}

func summarize(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		return apperror.Validation("invalid request: %s", strings.Join(parts, "; "))
	}
	return apperror.Validation("invalid request: %v", err)
}
