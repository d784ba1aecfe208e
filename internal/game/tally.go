package game

// Tally computes the accused identity from a completed vote map.
//
// The candidate with strictly the most votes is accused. A tie at the top
// leaves nobody accused, which the game scores as a liar win.
func Tally(votes map[string]string) (accused string, ok bool) {
	counts := make(map[string]int, len(votes))
	for _, target := range votes {
		counts[target]++
	}

	top := 0
	tied := false
	for candidate, n := range counts {
		switch {
		case n > top:
			top = n
			accused = candidate
			tied = false
		case n == top:
			tied = true
		}
	}
	if top == 0 || tied {
		return "", false
	}
	return accused, true
}

// AllVoted reports whether every roster member has a vote recorded
func AllVoted(votes map[string]string, roster Roster) bool {
	if len(roster) == 0 {
		return false
	}
	for id := range roster {
		if _, ok := votes[id]; !ok {
			return false
		}
	}
	return true
}

// PruneVotes drops ballots cast by identities that are no longer on the
// roster and reports whether any were removed
func (r *Room) PruneVotes(roster Roster) bool {
	pruned := false
	for voter := range r.Votes {
		if !roster.Has(voter) {
			delete(r.Votes, voter)
			pruned = true
		}
	}
	return pruned
}

// ResolveVotes applies the tally outcome to a voting room.
// It is a no-op outside the voting phase.
func (r *Room) ResolveVotes() bool {
	if r.Status != StatusVoting {
		return false
	}
	if accused, ok := Tally(r.Votes); ok && accused == r.LiarID {
		r.Status = StatusLiarGuess
		return true
	}
	r.Finish(WinnerLiar, ReasonVoteFail)
	return true
}
