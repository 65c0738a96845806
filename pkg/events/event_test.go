package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKeepsTypeAndTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := Encode(BaseEvent{
		Type:       UsageRecorded,
		Data:       map[string]interface{}{"backend_target": "anthropic", "tokens_in": 12},
		OccurredAt: at,
	})
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, UsageRecorded, decoded.EventType())
	assert.True(t, at.Equal(decoded.Timestamp()))
	assert.Equal(t, "anthropic", decoded.Payload()["backend_target"])
}

func TestDecodeRejectsUntypedPayload(t *testing.T) {
	_, err := Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
