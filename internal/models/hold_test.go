package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldTransitions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newActive := func(t *testing.T) *Hold {
		t.Helper()
		hold, err := NewHold("h1", "acme", "a1", Reference{Type: "RESERVATION", ID: "r1"}, 30, nil, now)
		require.NoError(t, err)
		return hold
	}

	t.Run("active commits once", func(t *testing.T) {
		hold := newActive(t)
		require.NoError(t, hold.Commit(now))
		assert.Equal(t, HoldStatusCommitted, hold.Status)
		assert.ErrorIs(t, hold.Commit(now), ErrHoldNotActive)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		hold := newActive(t)
		require.NoError(t, hold.Release(now))
		assert.ErrorIs(t, hold.Commit(now), ErrHoldNotActive)
		assert.ErrorIs(t, hold.Expire(now), ErrHoldNotActive)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := NewHold("h1", "acme", "a1", Reference{}, 0, nil, now)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestHold_IsExpiredAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-time.Second)

	withDeadline, err := NewHold("h1", "acme", "a1", Reference{}, 30, &deadline, now)
	require.NoError(t, err)
	assert.True(t, withDeadline.IsExpiredAt(now))
	assert.False(t, withDeadline.IsExpiredAt(now.Add(-time.Minute)))

	noDeadline, err := NewHold("h2", "acme", "a1", Reference{}, 30, nil, now)
	require.NoError(t, err)
	assert.False(t, noDeadline.IsExpiredAt(now))
}
