package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTally(t *testing.T) {
	tests := []struct {
		name    string
		votes   map[string]string
		accused string
		ok      bool
	}{
		{"unanimous", map[string]string{"a": "c", "b": "c", "c": "a"}, "c", true},
		{"three way tie", map[string]string{"a": "x", "b": "y", "c": "z"}, "", false},
		{"tie at the top", map[string]string{"a": "b", "b": "a", "c": "b", "d": "a"}, "", false},
		{"plurality", map[string]string{"a": "b", "b": "c", "c": "b", "d": "a"}, "b", true},
		{"no votes", map[string]string{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accused, ok := Tally(tt.votes)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.accused, accused)
		})
	}
}

func TestAllVoted(t *testing.T) {
	roster := NewRoster([]*Player{NewPlayer("a", "A", t0), NewPlayer("b", "B", t0)})

	assert.False(t, AllVoted(map[string]string{"a": "b"}, roster))
	assert.True(t, AllVoted(map[string]string{"a": "b", "b": "a"}, roster))
	assert.False(t, AllVoted(map[string]string{}, Roster{}), "an empty roster never completes")
}

func TestRoom_PruneVotes(t *testing.T) {
	room := playingRoom("a", "b", "c")
	room.BeginVoting()
	room.Votes = map[string]string{"a": "c", "b": "c", "d": "a"}
	roster := NewRoster([]*Player{NewPlayer("a", "A", t0), NewPlayer("b", "B", t0), NewPlayer("c", "C", t0)})

	assert.True(t, room.PruneVotes(roster))
	assert.Equal(t, map[string]string{"a": "c", "b": "c"}, room.Votes, "only the departed voter's ballot goes")
	assert.False(t, room.PruneVotes(roster))
}

func TestRoom_ResolveVotes(t *testing.T) {
	t.Run("accusing the liar opens the guess", func(t *testing.T) {
		room := playingRoom("a", "b", "c") // liar is c
		room.BeginVoting()
		room.Votes = map[string]string{"a": "c", "b": "c", "c": "a"}

		assert.True(t, room.ResolveVotes())
		assert.Equal(t, StatusLiarGuess, room.Status)
		assert.Empty(t, room.Winner)
	})

	t.Run("accusing a citizen lets the liar win", func(t *testing.T) {
		room := playingRoom("a", "b", "c")
		room.BeginVoting()
		room.Votes = map[string]string{"a": "b", "b": "a", "c": "b"}

		room.ResolveVotes()
		assert.Equal(t, StatusResult, room.Status)
		assert.Equal(t, WinnerLiar, room.Winner)
		assert.Equal(t, ReasonVoteFail, room.Reason)
	})

	t.Run("a tie lets the liar win", func(t *testing.T) {
		room := playingRoom("a", "b", "c")
		room.BeginVoting()
		room.Votes = map[string]string{"a": "b", "b": "c", "c": "a"}

		room.ResolveVotes()
		assert.Equal(t, WinnerLiar, room.Winner)
		assert.Equal(t, ReasonVoteFail, room.Reason)
	})

	t.Run("resolving twice changes nothing", func(t *testing.T) {
		room := playingRoom("a", "b", "c")
		room.BeginVoting()
		room.Votes = map[string]string{"a": "b", "b": "b", "c": "b"}
		room.ResolveVotes()
		before := *room

		assert.False(t, room.ResolveVotes())
		assert.Equal(t, before.Status, room.Status)
		assert.Equal(t, before.Winner, room.Winner)
		assert.Equal(t, before.Reason, room.Reason)
	})
}
