package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/usage"
)

type Config struct {
	// AttemptTimeout bounds how long the dispatcher waits for one attempt.
	AttemptTimeout time.Duration
	// AbandonGrace is how long an abandoned call may keep running to report usage.
	AbandonGrace     time.Duration
	MaxToolRounds    int
	HistoryTurns     int
	DefaultMaxTokens int
}

func DefaultConfig() Config {
	return Config{
		AttemptTimeout:   30 * time.Second,
		AbandonGrace:     30 * time.Second,
		MaxToolRounds:    4,
		HistoryTurns:     5,
		DefaultMaxTokens: 1024,
	}
}

type Toolbox interface {
	Manifests(skills []entity.Skill) []capability.Manifest
	Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

type UsageSink interface {
	Record(u entity.Usage)
}

// Executor is the only component that talks to generative backends.
type Executor struct {
	providers map[string]llm.LLMProvider
	tools     Toolbox
	sink      UsageSink
	pricing   usage.Pricing
	cfg       Config
	now       func() time.Time
	logger    logger.ILogger
}

func NewExecutor(providers map[string]llm.LLMProvider, tools Toolbox, sink UsageSink, pricing usage.Pricing, cfg Config, log logger.ILogger) *Executor {
	return &Executor{
		providers: providers,
		tools:     tools,
		sink:      sink,
		pricing:   pricing,
		cfg:       cfg,
		now:       time.Now,
		logger:    log,
	}
}

// Targets lists the configured backend targets.
func (e *Executor) Targets() []string {
	out := make([]string, 0, len(e.providers))
	for t := range e.providers {
		out = append(out, t)
	}
	return out
}

type attemptOutcome struct {
	result *entity.Result
	err    error
}

// Execute runs one attempt of plan. The backend call runs detached from ctx:
// if the attempt timer fires or the caller gives up, Execute returns at once
// and the late response is only used for usage accounting.
func (e *Executor) Execute(ctx context.Context, plan *entity.ExecutionPlan) (*entity.Result, error) {
	provider, ok := e.providers[plan.Target]
	if !ok {
		return nil, apperror.Internal(fmt.Sprintf("no backend configured for target %q", plan.Target), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.Timeout("execute", err)
	}

	var (
		mu        sync.Mutex
		abandoned bool
		finished  bool
	)
	done := make(chan attemptOutcome, 1)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.AttemptTimeout+e.cfg.AbandonGrace)
	go func() {
		defer cancel()
		result, u, err := e.call(callCtx, provider, plan)

		mu.Lock()
		u.Abandoned = abandoned
		finished = !abandoned
		mu.Unlock()

		if u.Abandoned {
			e.logger.Info("EXECUTOR", "Abandoned call finished", map[string]interface{}{
				"plan_id": plan.Id.String(),
				"target":  plan.Target,
				"success": u.Success,
			})
		}
		if e.sink != nil {
			e.sink.Record(u)
		}
		done <- attemptOutcome{result: result, err: err}
	}()

	timer := time.NewTimer(e.cfg.AttemptTimeout)
	defer timer.Stop()

	var giveUp error
	select {
	case out := <-done:
		return out.result, out.err
	case <-timer.C:
		giveUp = apperror.Transient(plan.Target, "attempt timed out", context.DeadlineExceeded)
	case <-ctx.Done():
		giveUp = apperror.Timeout("execute", ctx.Err())
	}

	mu.Lock()
	if finished {
		mu.Unlock()
		// the call completed while we were deciding to give up
		out := <-done
		return out.result, out.err
	}
	abandoned = true
	mu.Unlock()

	e.logger.Warn("EXECUTOR", "Abandoning in-flight call", map[string]interface{}{
		"plan_id": plan.Id.String(),
		"target":  plan.Target,
		"reason":  giveUp.Error(),
	})
	return nil, giveUp
}

func (e *Executor) call(ctx context.Context, provider llm.LLMProvider, plan *entity.ExecutionPlan) (*entity.Result, entity.Usage, error) {
	start := e.now()
	u := entity.Usage{BackendTarget: plan.Target, Model: plan.Profile.Model}

	history := buildHistory(plan, e.cfg.HistoryTurns)

	maxTokens := plan.Profile.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.cfg.DefaultMaxTokens
	}
	opts := []llm.Option{
		llm.WithModel(plan.Profile.Model),
		llm.WithSystem(systemPrompt(plan)),
		llm.WithMaxTokens(maxTokens),
		llm.WithTemperature(plan.Profile.Temperature),
	}

	var byTool map[string]capability.Manifest
	if e.tools != nil && len(plan.Skills) > 0 {
		var tools []llm.Tool
		tools, byTool = toolset(e.tools.Manifests(plan.Skills))
		if len(tools) > 0 {
			opts = append(opts, llm.WithTools(tools))
		}
	}

	var invocations []entity.ToolInvocation
	var completion *llm.Completion
	for round := 0; ; round++ {
		var err error
		completion, err = provider.Chat(ctx, history, opts...)
		if err != nil {
			u.Latency = e.now().Sub(start)
			u.Cost = e.pricing.Cost(u.Model, u.TokensIn, u.TokensOut)
			return nil, u, MapError(plan.Target, err)
		}
		u.TokensIn += completion.TokensIn
		u.TokensOut += completion.TokensOut
		if completion.Model != "" {
			u.Model = completion.Model
		}

		if len(completion.ToolCalls) == 0 {
			break
		}
		if round >= e.cfg.MaxToolRounds {
			e.logger.Warn("EXECUTOR", "Tool round limit reached", map[string]interface{}{
				"plan_id": plan.Id.String(),
				"rounds":  round,
			})
			break
		}

		history = append(history, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			msg, inv := e.invokeTool(ctx, call, byTool)
			history = append(history, msg)
			invocations = append(invocations, inv)
		}
	}

	u.Latency = e.now().Sub(start)
	u.Cost = e.pricing.Cost(u.Model, u.TokensIn, u.TokensOut)
	u.Success = true

	return &entity.Result{
		PlanId:     plan.Id,
		Text:       completion.Content,
		Category:   plan.Category,
		Strategy:   plan.Strategy,
		Skills:     plan.Skills,
		Analysis:   plan.Analysis,
		Usage:      u,
		ToolCalls:  invocations,
		FinishedAt: e.now(),
	}, u, nil
}

// invokeTool never fails the attempt; errors go back to the model as tool errors.
func (e *Executor) invokeTool(ctx context.Context, call llm.ToolCall, byTool map[string]capability.Manifest) (llm.Message, entity.ToolInvocation) {
	msg := llm.Message{Role: llm.RoleTool, ToolCallId: call.Id}
	inv := entity.ToolInvocation{Name: call.Name}

	manifest, ok := byTool[call.Name]
	if !ok {
		msg.Content = fmt.Sprintf("tool %s is not available", call.Name)
		msg.IsError = true
		inv.IsError = true
		return msg, inv
	}
	inv.Name = manifest.Name
	inv.Skill = manifest.Skill

	out, err := e.tools.Invoke(ctx, manifest.Name, call.Arguments)
	if err != nil {
		msg.Content = err.Error()
		msg.IsError = true
		inv.IsError = true
		return msg, inv
	}
	msg.Content = string(out)
	return msg, inv
}
