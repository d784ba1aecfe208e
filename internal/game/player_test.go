package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlayer_Stale(t *testing.T) {
	p := NewPlayer("a", "Alice", t0)

	assert.False(t, p.Stale(t0.Add(20*time.Second), 20*time.Second))
	assert.True(t, p.Stale(t0.Add(21*time.Second), 20*time.Second))
}

func TestRoster(t *testing.T) {
	players := []*Player{
		NewPlayer("c", "Carol", t0.Add(2*time.Second)),
		NewPlayer("b", "Bob", t0),
		NewPlayer("a", "Alice", t0),
	}
	roster := NewRoster(players)

	assert.True(t, roster.Has("a"))
	assert.False(t, roster.Has("z"))
	assert.Equal(t, []string{"a", "b", "c"}, roster.IDs(), "join time, then id")
	assert.Equal(t, "Bob", roster.Name("b"))
	assert.Equal(t, "Unknown", roster.Name("z"))
}

func TestPlayer_Clone(t *testing.T) {
	p := NewPlayer("a", "Alice", t0)
	c := p.Clone()
	c.Name = "Mallory"
	assert.Equal(t, "Alice", p.Name)
}
