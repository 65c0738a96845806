package dispatch

import (
	"context"
	"sync"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/google/uuid"
)

// Handle is the asynchronous result of Dispatch.
type Handle struct {
	PlanId uuid.UUID
	done   chan struct{}
	once   sync.Once
	result *entity.Result
	err    error
}

func newHandle(planId uuid.UUID) *Handle {
	return &Handle{PlanId: planId, done: make(chan struct{})}
}

func (h *Handle) resolve(result *entity.Result, err error) {
	h.once.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
	})
}

// Done is closed once the handle has resolved.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the handle resolves or ctx ends. Giving up does not
// cancel the dispatch; that follows the context passed to Dispatch.
func (h *Handle) Wait(ctx context.Context) (*entity.Result, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, apperror.Timeout("dispatch", ctx.Err())
	}
}

// Result returns the outcome; only meaningful after Done is closed.
func (h *Handle) Result() (*entity.Result, error) {
	select {
	case <-h.done:
		return h.result, h.err
	default:
		return nil, apperror.Internal("handle not resolved", nil)
	}
}
