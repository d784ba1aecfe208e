package components

import (
	"fmt"
	"time"

	"drawingliar/internal/game"
)

// RoomView is everything one player's screen shows
type RoomView struct {
	Room       *game.Room
	Players    []*game.Player
	PlayerID   string
	MaxPlayers int
	Now        time.Time
}

// Roster indexes the players
func (v RoomView) Roster() game.Roster {
	return game.NewRoster(v.Players)
}

// IsHost reports whether the viewer created the room
func (v RoomView) IsHost() bool {
	return v.Room.IsHost(v.PlayerID)
}

// IsLiar reports whether the viewer is the liar of the running game
func (v RoomView) IsLiar() bool {
	return v.Room.Status != game.StatusLobby && v.PlayerID != "" && v.Room.LiarID == v.PlayerID
}

// IsDrawer reports whether the viewer holds the current turn
func (v RoomView) IsDrawer() bool {
	return v.PlayerID != "" && v.Room.CurrentDrawer() == v.PlayerID
}

// CanClear reports whether the viewer may wipe the canvas
func (v RoomView) CanClear() bool {
	return v.IsDrawer() || v.IsHost()
}

// HasVoted reports whether the viewer's ballot is in
func (v RoomView) HasVoted() bool {
	_, ok := v.Room.Votes[v.PlayerID]
	return ok
}

// Candidates lists everyone the viewer can accuse
func (v RoomView) Candidates() []*game.Player {
	out := make([]*game.Player, 0, len(v.Players))
	for _, p := range v.Players {
		if p.ID != v.PlayerID {
			out = append(out, p)
		}
	}
	return out
}

// DrawerName is the display name of the current drawer
func (v RoomView) DrawerName() string {
	return v.Roster().Name(v.Room.CurrentDrawer())
}

// LiarName is the display name of the liar
func (v RoomView) LiarName() string {
	return v.Roster().Name(v.Room.LiarID)
}

// Capacity renders the "n / max" occupancy label
func (v RoomView) Capacity() string {
	return fmt.Sprintf("%d / %d", len(v.Players), v.MaxPlayers)
}

func (v RoomView) post(intent string) string {
	return fmt.Sprintf("@post('/room/%s/%s')", v.Room.Code, intent)
}

func (v RoomView) vote(target string) string {
	return fmt.Sprintf("$target = '%s'; %s", target, v.post("vote"))
}

func winnerLabel(w game.Winner) string {
	if w == game.WinnerCitizen {
		return "Citizens win!"
	}
	return "The Liar wins!"
}

func reasonLabel(r game.Reason) string {
	switch r {
	case game.ReasonVoteFail:
		return "The vote missed the Liar."
	case game.ReasonGuessSuccess:
		return "The Liar guessed the keyword."
	case game.ReasonGuessFail:
		return "The Liar failed to guess the keyword."
	}
	return ""
}
