package game

import (
	"sort"
	"time"
)

// Player represents one roster entry of a room
type Player struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastActive time.Time `json:"lastActive"`
}

// NewPlayer creates a new player
func NewPlayer(id, name string, now time.Time) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		JoinedAt:   now,
		LastActive: now,
	}
}

// Clone returns a copy of the player
func (p *Player) Clone() *Player {
	c := *p
	return &c
}

// Stale reports whether the player's heartbeat is older than staleAfter
func (p *Player) Stale(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(p.LastActive) > staleAfter
}

// Roster is a set of players keyed by identity
type Roster map[string]*Player

// NewRoster indexes players by identity
func NewRoster(players []*Player) Roster {
	r := make(Roster, len(players))
	for _, p := range players {
		r[p.ID] = p
	}
	return r
}

// Has reports whether id is in the roster
func (r Roster) Has(id string) bool {
	_, ok := r[id]
	return ok
}

// IDs returns roster identities ordered by join time
func (r Roster) IDs() []string {
	players := r.Sorted()
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

// Sorted returns players ordered by join time, then id
func (r Roster) Sorted() []*Player {
	players := make([]*Player, 0, len(r))
	for _, p := range r {
		players = append(players, p)
	}
	SortPlayers(players)
	return players
}

// Name returns the display name of id, or "Unknown"
func (r Roster) Name(id string) string {
	if p, ok := r[id]; ok {
		return p.Name
	}
	return "Unknown"
}

// SortPlayers orders players by join time, then id
func SortPlayers(players []*Player) {
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
}
