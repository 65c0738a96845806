package apperror

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindTransientBackend   Kind = "TRANSIENT_BACKEND"
	KindRateLimit          Kind = "RATE_LIMIT"
	KindCircuitOpen        Kind = "CIRCUIT_OPEN"
	KindBackendUnavailable Kind = "BACKEND_UNAVAILABLE"
	KindThrottled          Kind = "THROTTLED"
	KindTimeout            Kind = "TIMEOUT"
	KindBackendRejected    Kind = "BACKEND_REJECTED"
	KindNotFound           Kind = "NOT_FOUND"
	KindInternal           Kind = "INTERNAL"
)

// Error is the single error shape every pipeline stage returns.
// Callers branch on Kind; the remaining fields carry whatever the kind needs
// (retry hints for throttling, the stage a deadline was hit in, and so on).
type Error struct {
	Kind       Kind
	Message    string
	Target     string
	Stage      string
	RetryAfter time.Duration
	KnownDown  bool
	Attempts   int
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Target != "" {
		msg += " (target=" + e.Target + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so errors.Is(err, &Error{Kind: KindTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the dispatcher may attempt the call again.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransientBackend
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Transient(target, message string, cause error) *Error {
	return &Error{Kind: KindTransientBackend, Target: target, Message: message, Err: cause}
}

func RateLimit(target string, retryAfter time.Duration, cause error) *Error {
	return &Error{Kind: KindRateLimit, Target: target, Message: "backend rate limited", RetryAfter: retryAfter, Err: cause}
}

func CircuitOpen(target string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindCircuitOpen, Target: target, Message: "circuit open", RetryAfter: retryAfter}
}

// BackendUnavailable is what callers see for both an open circuit (knownDown)
// and for a request whose retries were exhausted.
func BackendUnavailable(target string, knownDown bool, attempts int, retryAfter time.Duration, cause error) *Error {
	msg := "backend unavailable after retries"
	if knownDown {
		msg = "backend known to be down"
	}
	return &Error{
		Kind:       KindBackendUnavailable,
		Target:     target,
		Message:    msg,
		KnownDown:  knownDown,
		Attempts:   attempts,
		RetryAfter: retryAfter,
		Err:        cause,
	}
}

func Throttled(target string, retryAfter time.Duration, cause error) *Error {
	return &Error{Kind: KindThrottled, Target: target, Message: "request throttled by backend", RetryAfter: retryAfter, Err: cause}
}

func Timeout(stage string, cause error) *Error {
	return &Error{Kind: KindTimeout, Stage: stage, Message: "deadline exceeded during " + stage, Err: cause}
}

func BackendRejected(target string, statusCode int, cause error) *Error {
	return &Error{Kind: KindBackendRejected, Target: target, StatusCode: statusCode, Message: "backend rejected request", Err: cause}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}
