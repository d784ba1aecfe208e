package game

import "time"

// TurnDue reports whether the current turn's deadline has passed
func (r *Room) TurnDue(now time.Time) bool {
	return r.Status == StatusPlaying && now.UnixMilli() >= r.TurnEndTime
}

// AdvanceTurn rolls the drawing turn over once its deadline has passed.
//
// The next index whose identity is still present is chosen; when none is left
// the room moves to voting. turnOrder itself is never modified. present may be
// nil, in which case every identity counts as present.
func (r *Room) AdvanceTurn(now time.Time, turnDuration time.Duration, present func(id string) bool) bool {
	if !r.TurnDue(now) {
		return false
	}
	for next := r.CurrentTurnIndex + 1; next < len(r.TurnOrder); next++ {
		if present != nil && !present(r.TurnOrder[next]) {
			continue
		}
		r.CurrentTurnIndex = next
		r.TurnEndTime = now.Add(turnDuration).UnixMilli()
		return true
	}
	r.BeginVoting()
	return true
}

// ExpireTurn ends the current turn immediately so the next scheduler tick rolls it over
func (r *Room) ExpireTurn(now time.Time) {
	if r.Status == StatusPlaying {
		r.TurnEndTime = now.UnixMilli()
	}
}
