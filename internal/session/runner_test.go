package session

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawingliar/internal/config"
	"drawingliar/internal/game"
	"drawingliar/internal/store"
)

func newFastRunner(t *testing.T) (*Runner, *Machine, *store.MemoryStore, *fakeClock) {
	t.Helper()
	rules := config.DefaultGameSettings()
	rules.SchedulerInterval = 5 * time.Millisecond
	rules.PresenceSweep = 5 * time.Millisecond

	st := store.NewMemoryStore()
	clock := newFakeClock()
	m := NewMachine(st, testKeywords, rules, WithClock(clock.Now), WithRand(rand.New(rand.NewPCG(3, 4))))
	r := NewRunner(context.Background(), m, st, zerolog.Nop())
	t.Cleanup(r.Close)
	return r, m, st, clock
}

func TestRunner_DrivesTheClock(t *testing.T) {
	r, _, st, clock := newFastRunner(t)
	seed(t, st, clock, "AB12", "a", "b", "c")
	force(t, st, clock, "AB12", nil)

	r.Ensure("AB12")
	r.Ensure("AB12")
	assert.True(t, r.Running("AB12"))
	assert.NotEmpty(t, r.Owner())

	clock.Advance(15 * time.Second)
	assert.Eventually(t, func() bool {
		room, err := st.Get(context.Background(), "AB12")
		return err == nil && room.CurrentTurnIndex == 1
	}, 2*time.Second, 5*time.Millisecond)

	r.Stop("AB12")
	assert.False(t, r.Running("AB12"))
}

func TestRunner_ForgetsEmptyRooms(t *testing.T) {
	r, _, st, clock := newFastRunner(t)
	seed(t, st, clock, "AB12", "a", "b", "c")
	clock.Advance(time.Minute)

	r.Ensure("AB12")
	assert.Eventually(t, func() bool { return !r.Running("AB12") }, 2*time.Second, 5*time.Millisecond)

	players, err := st.Players(context.Background(), "AB12")
	require.NoError(t, err)
	assert.Empty(t, players)

	room, err := st.Get(context.Background(), "AB12")
	require.NoError(t, err)
	assert.Equal(t, game.StatusLobby, room.Status)
}

func TestRunner_NoLoopsAfterClose(t *testing.T) {
	r, _, st, clock := newFastRunner(t)
	seed(t, st, clock, "AB12", "a", "b", "c")

	r.Close()
	r.Ensure("AB12")
	assert.False(t, r.Running("AB12"))
}
