package apperror

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), KindInternal},
		{"validation", Validation("text is required"), KindValidation},
		{"wrapped throttled", fmt.Errorf("dispatch: %w", Throttled("anthropic", time.Second, nil)), KindThrottled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transient("ollama", "connection reset", nil)))
	assert.False(t, IsRetryable(RateLimit("ollama", time.Second, nil)))
	assert.False(t, IsRetryable(BackendRejected("ollama", 400, nil)))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestBackendUnavailableFlags(t *testing.T) {
	down := BackendUnavailable("anthropic", true, 0, 10*time.Second, nil)
	assert.True(t, down.KnownDown)
	assert.Equal(t, "backend known to be down", down.Message)

	exhausted := BackendUnavailable("anthropic", false, 3, 0, errors.New("503"))
	assert.False(t, exhausted.KnownDown)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Contains(t, exhausted.Error(), "503")
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("handle: %w", Timeout("dispatch", nil))
	assert.True(t, errors.Is(err, &Error{Kind: KindTimeout}))
	assert.False(t, errors.Is(err, &Error{Kind: KindThrottled}))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "dispatch", appErr.Stage)
}
