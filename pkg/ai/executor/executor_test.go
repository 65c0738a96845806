package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/usage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFunc func(ctx context.Context, history []llm.Message, opts llm.Options) (*llm.Completion, error)

type fakeProvider struct {
	mu    sync.Mutex
	calls [][]llm.Message
	opts  []llm.Options
	chat  chatFunc
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Completion, error) {
	o := llm.Apply(llm.Options{}, options...)
	p.mu.Lock()
	p.calls = append(p.calls, append([]llm.Message(nil), history...))
	p.opts = append(p.opts, o)
	p.mu.Unlock()
	return p.chat(ctx, history, o)
}

type chanSink struct{ ch chan entity.Usage }

func newSink() *chanSink { return &chanSink{ch: make(chan entity.Usage, 16)} }

func (s *chanSink) Record(u entity.Usage) { s.ch <- u }

func (s *chanSink) next(t *testing.T) entity.Usage {
	t.Helper()
	select {
	case u := <-s.ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no usage recorded")
		return entity.Usage{}
	}
}

func testPlan() *entity.ExecutionPlan {
	session := entity.NewSession(entity.SessionKey{TenantId: "acme", ConversationId: "c1"}, time.Now())
	session.Turns = append(session.Turns,
		entity.Turn{RequestText: "first question", ResultSummary: "first answer"},
		entity.Turn{RequestText: "second question", ResultSummary: "second answer"},
	)
	return &entity.ExecutionPlan{
		Id:       uuid.New(),
		Request:  entity.Request{Text: "third question"},
		Category: entity.CategoryDeepReasoning,
		Strategy: "rules",
		Session:  session,
		Target:   "fake",
		Profile: entity.CategoryProfile{
			Category:     entity.CategoryDeepReasoning,
			Target:       "fake",
			Model:        "big-model",
			SystemPrompt: "Think carefully.",
			MaxTokens:    512,
		},
		Analysis: entity.AnalysisResult{
			Intent:   entity.IntentPlanStrategy,
			Entities: []entity.Entity{{Type: entity.EntityDueDate, Value: "Friday"}},
		},
	}
}

func newTestExecutor(p *fakeProvider, tools Toolbox, sink UsageSink, cfg Config) *Executor {
	pricing := usage.Pricing{"big-model": {InPerMTok: 1_000_000, OutPerMTok: 2_000_000}}
	return NewExecutor(map[string]llm.LLMProvider{"fake": p}, tools, sink, pricing, cfg, logger.NewNopLogger())
}

func TestExecuteBuildsPromptAndRecordsUsage(t *testing.T) {
	p := &fakeProvider{chat: func(context.Context, []llm.Message, llm.Options) (*llm.Completion, error) {
		return &llm.Completion{Content: "third answer", TokensIn: 3, TokensOut: 2}, nil
	}}
	sink := newSink()
	cfg := DefaultConfig()
	cfg.HistoryTurns = 1
	e := newTestExecutor(p, nil, sink, cfg)

	plan := testPlan()
	res, err := e.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, "third answer", res.Text)
	assert.Equal(t, plan.Id, res.PlanId)
	assert.Equal(t, entity.CategoryDeepReasoning, res.Category)

	require.Len(t, p.calls, 1)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "second question"},
		{Role: llm.RoleAssistant, Content: "second answer"},
		{Role: llm.RoleUser, Content: "third question"},
	}, p.calls[0])
	assert.Equal(t, "big-model", p.opts[0].Model)
	assert.Equal(t, 512, p.opts[0].MaxTokens)
	assert.Contains(t, p.opts[0].System, "Think carefully.")
	assert.Contains(t, p.opts[0].System, "dueDate: Friday")
	assert.Empty(t, p.opts[0].Tools)

	u := sink.next(t)
	assert.True(t, u.Success)
	assert.False(t, u.Abandoned)
	assert.Equal(t, "fake", u.BackendTarget)
	assert.Equal(t, 3, u.TokensIn)
	assert.InDelta(t, 7.0, u.Cost, 1e-9)
	assert.Equal(t, u, res.Usage)
}

func TestExecuteMapsProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperror.Kind
	}{
		{name: "rate limit", err: &llm.StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 30 * time.Second}, kind: apperror.KindRateLimit},
		{name: "server error", err: &llm.StatusError{StatusCode: http.StatusServiceUnavailable}, kind: apperror.KindTransientBackend},
		{name: "overloaded", err: &llm.StatusError{StatusCode: 529}, kind: apperror.KindTransientBackend},
		{name: "request timeout", err: &llm.StatusError{StatusCode: http.StatusRequestTimeout}, kind: apperror.KindTransientBackend},
		{name: "bad request", err: &llm.StatusError{StatusCode: http.StatusBadRequest}, kind: apperror.KindBackendRejected},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), kind: apperror.KindTransientBackend},
		{name: "deadline", err: context.DeadlineExceeded, kind: apperror.KindTransientBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{chat: func(context.Context, []llm.Message, llm.Options) (*llm.Completion, error) {
				return nil, tt.err
			}}
			sink := newSink()
			e := newTestExecutor(p, nil, sink, DefaultConfig())

			_, err := e.Execute(context.Background(), testPlan())
			assert.Equal(t, tt.kind, apperror.KindOf(err))
			assert.False(t, sink.next(t).Success)
		})
	}

	t.Run("advertised retry-after is carried", func(t *testing.T) {
		err := MapError("fake", &llm.StatusError{StatusCode: 429, RetryAfter: 30 * time.Second})
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, 30*time.Second, appErr.RetryAfter)
	})
}

func TestAttemptTimeoutAbandonsCallButStillRecordsUsage(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{chat: func(ctx context.Context, _ []llm.Message, _ llm.Options) (*llm.Completion, error) {
		<-release
		return &llm.Completion{Content: "late", TokensIn: 10, TokensOut: 1}, nil
	}}
	sink := newSink()
	cfg := DefaultConfig()
	cfg.AttemptTimeout = 20 * time.Millisecond
	e := newTestExecutor(p, nil, sink, cfg)

	start := time.Now()
	_, err := e.Execute(context.Background(), testPlan())
	assert.Equal(t, apperror.KindTransientBackend, apperror.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	u := sink.next(t)
	assert.True(t, u.Abandoned)
	assert.True(t, u.Success)
	assert.Equal(t, 10, u.TokensIn)
}

func TestCallerCancellationIsTimeoutNotTransient(t *testing.T) {
	release := make(chan struct{})
	var sawCancel bool
	p := &fakeProvider{chat: func(ctx context.Context, _ []llm.Message, _ llm.Options) (*llm.Completion, error) {
		<-release
		sawCancel = ctx.Err() != nil
		return &llm.Completion{Content: "late"}, nil
	}}
	sink := newSink()
	e := newTestExecutor(p, nil, sink, DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Execute(ctx, testPlan())
	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(err))

	close(release)
	assert.True(t, sink.next(t).Abandoned)
	assert.False(t, sawCancel, "backend call must not inherit caller cancellation")
}

func TestExecuteWithExpiredContextNeverCallsBackend(t *testing.T) {
	p := &fakeProvider{chat: func(context.Context, []llm.Message, llm.Options) (*llm.Completion, error) {
		t.Fatal("backend called")
		return nil, nil
	}}
	e := newTestExecutor(p, nil, newSink(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, testPlan())
	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(err))
}

func TestUnknownTargetIsInternal(t *testing.T) {
	e := newTestExecutor(&fakeProvider{}, nil, newSink(), DefaultConfig())
	plan := testPlan()
	plan.Target = "nowhere"

	_, err := e.Execute(context.Background(), plan)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}

func TestToolLoop(t *testing.T) {
	registry := capability.NewRegistry(logger.NewNopLogger())
	require.NoError(t, registry.Register(capability.Func{
		Spec: capability.Manifest{Name: "web.query", Skill: entity.SkillWebSearch, Description: "search"},
		Fn: func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"hits":["go.dev"]}`), nil
		},
	}))
	require.NoError(t, registry.Register(capability.Func{
		Spec: capability.Manifest{Name: "mail.send", Skill: entity.SkillEmail, SideEffects: true},
		Fn: func(context.Context, json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("smtp down")
		},
	}))

	p := &fakeProvider{chat: func(_ context.Context, history []llm.Message, _ llm.Options) (*llm.Completion, error) {
		last := history[len(history)-1]
		if last.Role == llm.RoleTool {
			return &llm.Completion{Content: "found go.dev, mail failed", TokensIn: 5, TokensOut: 5}, nil
		}
		return &llm.Completion{
			TokensIn:  5,
			TokensOut: 1,
			ToolCalls: []llm.ToolCall{
				{Id: "t1", Name: "web_query", Arguments: json.RawMessage(`{"q":"go"}`)},
				{Id: "t2", Name: "mail_send", Arguments: json.RawMessage(`{}`)},
			},
		}, nil
	}}
	sink := newSink()
	e := newTestExecutor(p, registry, sink, DefaultConfig())

	plan := testPlan()
	plan.Skills = []entity.Skill{entity.SkillEmail, entity.SkillWebSearch}

	res, err := e.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "found go.dev, mail failed", res.Text)
	assert.Equal(t, []entity.ToolInvocation{
		{Name: "web.query", Skill: entity.SkillWebSearch},
		{Name: "mail.send", Skill: entity.SkillEmail, IsError: true},
	}, res.ToolCalls)

	require.Len(t, p.calls, 2)
	second := p.calls[1]
	toolMsgs := second[len(second)-2:]
	assert.Equal(t, "t1", toolMsgs[0].ToolCallId)
	assert.JSONEq(t, `{"hits":["go.dev"]}`, toolMsgs[0].Content)
	assert.True(t, toolMsgs[1].IsError)

	require.Len(t, p.opts[0].Tools, 2)
	assert.Equal(t, "mail_send", p.opts[0].Tools[0].Name)

	u := sink.next(t)
	assert.Equal(t, 10, u.TokensIn)
	assert.Equal(t, 6, u.TokensOut)
}

func TestToolRoundsAreBounded(t *testing.T) {
	registry := capability.NewRegistry(logger.NewNopLogger())
	require.NoError(t, registry.Register(capability.Func{
		Spec: capability.Manifest{Name: "loop", Skill: entity.SkillWebSearch},
		Fn: func(context.Context, json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	}))

	p := &fakeProvider{chat: func(context.Context, []llm.Message, llm.Options) (*llm.Completion, error) {
		return &llm.Completion{Content: "again", ToolCalls: []llm.ToolCall{{Id: "x", Name: "loop"}}}, nil
	}}
	cfg := DefaultConfig()
	cfg.MaxToolRounds = 2
	e := newTestExecutor(p, registry, newSink(), cfg)

	plan := testPlan()
	plan.Skills = []entity.Skill{entity.SkillWebSearch}

	res, err := e.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, p.calls, 3)
	assert.Len(t, res.ToolCalls, 2)
}

func TestUnknownToolGoesBackAsError(t *testing.T) {
	msg, inv := (&Executor{}).invokeTool(context.Background(), llm.ToolCall{Id: "1", Name: "ghost"}, nil)
	assert.True(t, msg.IsError)
	assert.True(t, inv.IsError)
	assert.Equal(t, "ghost", inv.Name)
}
