package recompute

import (
	"testing"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func TestMarkTriggered_Transitions(t *testing.T) {
	stale := t0.Add(-10 * time.Minute)

	s := NewUserState("u1")
	assert.True(t, s.MarkTriggered(t0, stale), "idle user is enqueued")
	assert.Equal(t, StateQueued, s.State)

	assert.False(t, s.MarkTriggered(t0.Add(time.Second), stale), "queued user coalesces")

	s.UpdatedAt = t0.Add(-time.Hour)
	assert.True(t, s.MarkTriggered(t0, stale), "stale queue entry is re-enqueued")

	require.True(t, s.Acquire("w1", time.Minute, t0))
	assert.False(t, s.MarkTriggered(t0, stale), "scoring user records pending")
	assert.True(t, s.Pending)
	assert.Equal(t, StateScoring, s.State)
}

func TestAcquire_RespectsLiveLease(t *testing.T) {
	s := NewUserState("u1")
	require.True(t, s.Acquire("w1", time.Minute, t0))

	assert.False(t, s.Acquire("w2", time.Minute, t0.Add(30*time.Second)))
	assert.False(t, s.Acquire("w1", time.Minute, t0.Add(30*time.Second)), "a live lease is never re-entered")
	assert.True(t, s.Acquire("w2", time.Minute, t0.Add(2*time.Minute)), "expired lease is taken over")
	assert.Equal(t, "w2", s.LeaseOwner)
}

func TestExtend(t *testing.T) {
	s := NewUserState("u1")
	require.True(t, s.Acquire("w1", time.Minute, t0))

	assert.False(t, s.Extend("w2", time.Minute, t0.Add(30*time.Second)), "only the holder extends")
	require.True(t, s.Extend("w1", time.Minute, t0.Add(50*time.Second)))
	assert.Equal(t, t0.Add(110*time.Second), *s.LeaseUntil)
	assert.True(t, s.LeaseHeld(t0.Add(100*time.Second)))

	require.True(t, s.Acquire("w2", time.Minute, t0.Add(5*time.Minute)))
	assert.False(t, s.Extend("w1", time.Minute, t0.Add(5*time.Minute)), "taken-over lease cannot be extended")
	assert.Equal(t, "w2", s.LeaseOwner)

	_, err := s.Release("w2", Outcome{At: t0.Add(6 * time.Minute)})
	require.NoError(t, err)
	assert.False(t, s.Extend("w2", time.Minute, t0.Add(6*time.Minute)), "released lease cannot be extended")
}

func TestRelease(t *testing.T) {
	t.Run("success records version and time", func(t *testing.T) {
		s := NewUserState("u1")
		s.Attempts = 2
		s.Acquire("w1", time.Minute, t0)

		requeue, err := s.Release("w1", Outcome{ProfileVersion: 7, At: t0.Add(time.Second)})

		require.NoError(t, err)
		assert.False(t, requeue)
		assert.Equal(t, StateIdle, s.State)
		assert.Equal(t, 0, s.Attempts)
		assert.EqualValues(t, 7, s.ProfileVersion)
		assert.Equal(t, t0.Add(time.Second), *s.LastRecomputedAt)
		assert.Nil(t, s.LeaseUntil)
	})

	t.Run("failure counts attempts", func(t *testing.T) {
		s := NewUserState("u1")
		s.Acquire("w1", time.Minute, t0)

		_, err := s.Release("w1", Outcome{Failed: true, Err: "boom", At: t0})

		require.NoError(t, err)
		assert.Equal(t, StateFailed, s.State)
		assert.Equal(t, 1, s.Attempts)
		assert.Equal(t, "boom", s.LastError)
		assert.Nil(t, s.LastRecomputedAt)
	})

	t.Run("pending trigger requeues", func(t *testing.T) {
		s := NewUserState("u1")
		s.Acquire("w1", time.Minute, t0)
		s.MarkTriggered(t0, t0)

		requeue, err := s.Release("w1", Outcome{At: t0})

		require.NoError(t, err)
		assert.True(t, requeue)
		assert.Equal(t, StateQueued, s.State)
		assert.False(t, s.Pending)
	})

	t.Run("foreign owner loses", func(t *testing.T) {
		s := NewUserState("u1")
		s.Acquire("w1", time.Minute, t0)

		_, err := s.Release("w2", Outcome{At: t0})

		assert.True(t, errx.Is(err, CodeLeaseLost))
	})
}

func TestNeedsRecompute(t *testing.T) {
	fresh := t0.Add(-time.Hour)
	old := t0.Add(-48 * time.Hour)
	lease := t0.Add(time.Minute)

	tests := []struct {
		name    string
		state   *UserState
		version int64
		want    bool
	}{
		{"never seen", nil, 1, true},
		{"fresh and current", &UserState{State: StateIdle, LastRecomputedAt: &fresh, ProfileVersion: 1}, 1, false},
		{"too old", &UserState{State: StateIdle, LastRecomputedAt: &old, ProfileVersion: 1}, 1, true},
		{"profile advanced", &UserState{State: StateIdle, LastRecomputedAt: &fresh, ProfileVersion: 1}, 2, true},
		{"scoring", &UserState{State: StateScoring, LeaseUntil: &lease}, 2, false},
		{"failed before first success", &UserState{State: StateFailed}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRecompute(tt.state, kernel.ProfileVersion(tt.version), t0, 24*time.Hour))
		})
	}
}
