package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterSpendsBurstPerKey(t *testing.T) {
	l := New(5, 1)

	assert.True(t, l.Allow("av"))
	assert.False(t, l.Allow("av"))
	assert.True(t, l.Allow("other"), "keys have independent buckets")
}

func TestLimiterRefills(t *testing.T) {
	l := New(int(time.Minute/(20*time.Millisecond)), 1)

	require.True(t, l.Allow("av"))
	require.False(t, l.Allow("av"))
	assert.Eventually(t, func() bool { return l.Allow("av") }, time.Second, 5*time.Millisecond)
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
}
