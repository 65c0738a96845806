package executor

import (
	"context"
	"errors"
	"net/http"

	"ai-orchestrator-be/pkg/apperror"
	"ai-orchestrator-be/pkg/llm"
)

// statusOverloaded is Anthropic's "overloaded" status.
const statusOverloaded = 529

// MapError translates a provider error into the dispatcher's taxonomy.
func MapError(target string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return apperror.RateLimit(target, statusErr.RetryAfter, err)
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == statusOverloaded,
			statusErr.StatusCode >= 500:
			return apperror.Transient(target, "backend error", err)
		case statusErr.StatusCode >= 400:
			return apperror.BackendRejected(target, statusErr.StatusCode, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Transient(target, "backend call timed out", err)
	}
	return apperror.Transient(target, "backend call failed", err)
}
