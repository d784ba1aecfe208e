package game

import "strings"

// ResolveGuess scores the liar's final guess against the keyword.
// The comparison is exact and case-sensitive after trimming surrounding whitespace.
func ResolveGuess(guess, keyword string) (Winner, Reason) {
	if strings.TrimSpace(guess) == keyword {
		return WinnerLiar, ReasonGuessSuccess
	}
	return WinnerCitizen, ReasonGuessFail
}
