package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricing(t *testing.T) {
	p, err := ParsePricing("claude-sonnet-4-5=3:15, llama3=0:0")
	require.NoError(t, err)

	assert.InDelta(t, 0.0045, p.Cost("claude-sonnet-4-5", 1000, 100), 1e-9)
	assert.Zero(t, p.Cost("llama3", 1000, 1000))
	assert.Zero(t, p.Cost("unpriced", 1000, 1000))

	_, err = ParsePricing("broken")
	assert.Error(t, err)
	_, err = ParsePricing("m=x:1")
	assert.Error(t, err)
}
