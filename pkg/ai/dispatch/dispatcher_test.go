package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// scriptedExecutor returns the scripted errors in order, then succeeds.
type scriptedExecutor struct {
	mu     sync.Mutex
	script []error
	calls  atomic.Int32
}

func (e *scriptedExecutor) Execute(ctx context.Context, plan *entity.ExecutionPlan) (*entity.Result, error) {
	n := int(e.calls.Add(1)) - 1
	e.mu.Lock()
	defer e.mu.Unlock()
	if n < len(e.script) && e.script[n] != nil {
		return nil, e.script[n]
	}
	return &entity.Result{PlanId: plan.Id, Text: "ok", Category: plan.Category}, nil
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newPlan(idempotent bool) *entity.ExecutionPlan {
	return &entity.ExecutionPlan{
		Id:         uuid.New(),
		Target:     "anthropic",
		Category:   entity.CategoryQuick,
		Idempotent: idempotent,
	}
}

func testRetry() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Jitter = 0
	return p
}

func transient() error {
	return apperror.Transient("anthropic", "attempt timed out", context.DeadlineExceeded)
}

func TestDispatchSucceeds(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := &scriptedExecutor{}
	d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger())

	res, err := d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 1, res.Attempts)
}

func TestDispatchRetriesIdempotentTransientFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := &scriptedExecutor{script: []error{transient(), transient()}}
	sleeps := &recordedSleeps{}
	d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger(), WithSleep(sleeps.sleep))

	res, err := d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, sleeps.delays)
}

func TestDispatchExhaustedRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := &scriptedExecutor{script: []error{transient(), transient(), transient(), transient()}}
	sleeps := &recordedSleeps{}
	d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger(), WithSleep(sleeps.sleep))

	_, err := d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindBackendUnavailable, appErr.Kind)
	assert.False(t, appErr.KnownDown)
	assert.Equal(t, 3, appErr.Attempts)
	assert.Equal(t, int32(3), exec.calls.Load())
}

func TestDispatchNeverRetriesNonIdempotentOrClientErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name       string
		err        error
		idempotent bool
		wantKind   apperror.Kind
	}{
		{"non idempotent transient", transient(), false, apperror.KindBackendUnavailable},
		{"client error", apperror.BackendRejected("anthropic", 400, nil), true, apperror.KindBackendRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &scriptedExecutor{script: []error{tt.err, tt.err}}
			d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger(), WithSleep((&recordedSleeps{}).sleep))

			_, err := d.Dispatch(context.Background(), newPlan(tt.idempotent)).Wait(context.Background())
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))
			assert.Equal(t, int32(1), exec.calls.Load())
		})
	}
}

func TestDispatchFailsFastWhileOpen(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := &scriptedExecutor{script: []error{transient(), transient(), transient(), transient(), transient()}}
	retry := testRetry()
	retry.MaxAttempts = 1
	d := NewDispatcher(exec, retry, DefaultBreakerConfig(), logger.NewNopLogger())

	for i := 0; i < 5; i++ {
		_, err := d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
		require.Equal(t, apperror.KindBackendUnavailable, apperror.KindOf(err))
	}
	assert.Equal(t, "open", d.Breaker("anthropic").Snapshot().State)

	start := time.Now()
	handle := d.Dispatch(context.Background(), newPlan(true))
	_, err := handle.Wait(context.Background())
	elapsed := time.Since(start)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindBackendUnavailable, appErr.Kind)
	assert.True(t, appErr.KnownDown)
	assert.Less(t, elapsed, 5*time.Millisecond)
	assert.Equal(t, int32(5), exec.calls.Load(), "no backend call while open")
}

func TestDispatchRateLimitOpensWithAdvertisedCooldown(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newManualClock()
	exec := &scriptedExecutor{script: []error{apperror.RateLimit("anthropic", 30*time.Second, nil)}}
	d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger(), WithClock(clock.Now))

	_, err := d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindThrottled, appErr.Kind)
	assert.Equal(t, 30*time.Second, appErr.RetryAfter)
	assert.Equal(t, int32(1), exec.calls.Load(), "rate limits are not retried")

	clock.Advance(29 * time.Second)
	_, err = d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
	assert.Equal(t, apperror.KindBackendUnavailable, apperror.KindOf(err))

	clock.Advance(time.Second)
	res, err := d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
	require.NoError(t, err, "probe allowed after exactly the advertised interval")
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, "closed", d.Breaker("anthropic").Snapshot().State)
}

func TestDispatchCallerDeadlineDuringBackoff(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := &scriptedExecutor{script: []error{transient(), transient()}}
	d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Dispatch(ctx, newPlan(true)).Wait(context.Background())
	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(err))
	require.NoError(t, d.Drain(context.Background()))
}

func TestDispatchTargetsAreIsolated(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := &scriptedExecutor{}
	d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger())

	down := d.Breaker("ollama")
	for i := 0; i < 5; i++ {
		p, _ := down.Allow()
		down.Failure(p)
	}

	_, err := d.Dispatch(context.Background(), newPlan(true)).Wait(context.Background())
	assert.NoError(t, err)

	snaps := d.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, "anthropic", snaps[0].Target)
	assert.Equal(t, "closed", snaps[0].State)
	assert.Equal(t, "open", snaps[1].State)
}

func TestHandleWaitGivesUpWithoutCancellingDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	exec := executorFunc(func(ctx context.Context, plan *entity.ExecutionPlan) (*entity.Result, error) {
		<-release
		return &entity.Result{Text: "late"}, nil
	})
	d := NewDispatcher(exec, testRetry(), DefaultBreakerConfig(), logger.NewNopLogger())
	handle := d.Dispatch(context.Background(), newPlan(true))

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := handle.Wait(waitCtx)
	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(err))

	_, err = handle.Result()
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	close(release)
	<-handle.Done()
	res, err := handle.Result()
	require.NoError(t, err)
	assert.Equal(t, "late", res.Text)
	require.NoError(t, d.Drain(context.Background()))
}

type executorFunc func(ctx context.Context, plan *entity.ExecutionPlan) (*entity.Result, error)

func (f executorFunc) Execute(ctx context.Context, plan *entity.ExecutionPlan) (*entity.Result, error) {
	return f(ctx, plan)
}
