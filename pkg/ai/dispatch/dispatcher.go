package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"
)

// Executor performs one attempt of a plan against its backend target.
type Executor interface {
	Execute(ctx context.Context, plan *entity.ExecutionPlan) (*entity.Result, error)
}

type Dispatcher struct {
	executor Executor
	retry    RetryPolicy
	cfg      BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker

	wg     sync.WaitGroup
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	logger logger.ILogger
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithSleep replaces the wait between retries.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

func NewDispatcher(executor Executor, retry RetryPolicy, cfg BreakerConfig, log logger.ILogger, opts ...Option) *Dispatcher {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	d := &Dispatcher{
		executor: executor,
		retry:    retry,
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
		sleep:    sleepCtx,
		now:      time.Now,
		logger:   log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Breaker returns the circuit for target, creating it on first use.
func (d *Dispatcher) Breaker(target string) *Breaker {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.breakers[target]
	if !ok {
		b = NewBreaker(target, d.cfg, d.now)
		d.breakers[target] = b
	}
	return b
}

// Dispatch sends plan to its target and returns immediately. When the target's
// circuit is open the handle is already resolved with a known-down
// BackendUnavailable error and no attempt is made.
func (d *Dispatcher) Dispatch(ctx context.Context, plan *entity.ExecutionPlan) *Handle {
	handle := newHandle(plan.Id)
	breaker := d.Breaker(plan.Target)

	permit, err := breaker.Allow()
	if err != nil {
		retryAfter := time.Duration(0)
		if appErr, ok := apperror.As(err); ok {
			retryAfter = appErr.RetryAfter
		}
		d.logger.Warn("DISPATCH", "Circuit open, failing fast", map[string]interface{}{
			"plan_id":     plan.Id.String(),
			"target":      plan.Target,
			"retry_after": retryAfter.String(),
		})
		handle.resolve(nil, apperror.BackendUnavailable(plan.Target, true, 0, retryAfter, err))
		return handle
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		result, err := d.run(ctx, plan, breaker, permit)
		handle.resolve(result, err)
	}()
	return handle
}

func (d *Dispatcher) run(ctx context.Context, plan *entity.ExecutionPlan, breaker *Breaker, permit Permit) (*entity.Result, error) {
	schedule := d.retry.NewBackOff()

	for attempt := 1; ; attempt++ {
		result, err := d.executor.Execute(ctx, plan)
		if err == nil {
			breaker.Success(permit)
			result.Attempts = attempt
			return result, nil
		}

		switch apperror.KindOf(err) {
		case apperror.KindTransientBackend:
			breaker.Failure(permit)

			if !plan.Idempotent || attempt >= d.retry.MaxAttempts {
				d.logger.Warn("DISPATCH", "Giving up on backend", map[string]interface{}{
					"plan_id":    plan.Id.String(),
					"target":     plan.Target,
					"attempts":   attempt,
					"idempotent": plan.Idempotent,
					"error":      err.Error(),
				})
				return nil, apperror.BackendUnavailable(plan.Target, false, attempt, 0, err)
			}

			delay := schedule.NextBackOff()
			d.logger.Info("DISPATCH", "Retrying transient failure", map[string]interface{}{
				"plan_id": plan.Id.String(),
				"target":  plan.Target,
				"attempt": attempt,
				"delay":   delay.String(),
			})
			if err := d.sleep(ctx, delay); err != nil {
				return nil, apperror.Timeout("dispatch backoff", err)
			}

			// the circuit may have opened while we slept
			permit, err = breaker.Allow()
			if err != nil {
				retryAfter := time.Duration(0)
				if appErr, ok := apperror.As(err); ok {
					retryAfter = appErr.RetryAfter
				}
				return nil, apperror.BackendUnavailable(plan.Target, true, attempt, retryAfter, err)
			}

		case apperror.KindRateLimit:
			var advertised time.Duration
			if appErr, ok := apperror.As(err); ok {
				advertised = appErr.RetryAfter
			}
			cooldown := breaker.Throttle(permit, advertised)
			d.logger.Warn("DISPATCH", "Backend rate limited, circuit cooling down", map[string]interface{}{
				"plan_id":  plan.Id.String(),
				"target":   plan.Target,
				"cooldown": cooldown.String(),
			})
			return nil, apperror.Throttled(plan.Target, cooldown, err)

		case apperror.KindBackendRejected:
			// the backend answered, so it counts as healthy
			breaker.Success(permit)
			return nil, err

		default:
			breaker.Release(permit)
			return nil, err
		}
	}
}

// Snapshots lists every known circuit, sorted by target.
func (d *Dispatcher) Snapshots() []BreakerSnapshot {
	d.mu.Lock()
	breakers := make([]*Breaker, 0, len(d.breakers))
	for _, b := range d.breakers {
		breakers = append(breakers, b)
	}
	d.mu.Unlock()

	snaps := make([]BreakerSnapshot, 0, len(breakers))
	for _, b := range breakers {
		snaps = append(snaps, b.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Target < snaps[j].Target })
	return snaps
}

// Drain waits for every in-flight dispatch to resolve or ctx to end.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
