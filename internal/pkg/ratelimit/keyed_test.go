package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestKeyed_BurstThenRefill(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	k := New(rate.Every(30*time.Second), 2)
	k.now = func() time.Time { return now }

	assert.True(t, k.Allow("a@b.com"))
	assert.True(t, k.Allow("a@b.com"))
	assert.False(t, k.Allow("a@b.com"))
	assert.True(t, k.Allow("c@d.com"), "keys are independent")

	now = now.Add(30 * time.Second)
	assert.True(t, k.Allow("a@b.com"))
	assert.False(t, k.Allow("a@b.com"))
}

func TestKeyed_SweepsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	k := New(rate.Limit(1), 1)
	k.now = func() time.Time { return now }

	k.Allow("1.1.1.1")
	k.Allow("2.2.2.2")
	assert.Equal(t, 2, k.Len())

	now = now.Add(staleAfter + time.Minute)
	k.Allow("3.3.3.3")
	assert.Equal(t, 1, k.Len())
}
