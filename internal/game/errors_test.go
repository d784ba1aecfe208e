package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrors(t *testing.T) {
	all := []*ValidationError{
		ErrNameRequired, ErrInvalidRoomCode, ErrRoomNotFound, ErrRoomFull, ErrGameInProgress,
		ErrNotEnoughPlayers, ErrNotHost, ErrWrongStatus, ErrNotYourTurn, ErrNotInRoom,
		ErrUnknownTarget, ErrAlreadyVoted, ErrVotingOpen, ErrNotLiar, ErrInvalidStroke,
	}

	codes := map[string]bool{}
	for _, e := range all {
		assert.NotEmpty(t, e.Message)
		assert.False(t, codes[e.Code], "duplicate code %s", e.Code)
		codes[e.Code] = true
		assert.True(t, IsValidation(e))
	}

	wrapped := fmt.Errorf("joining: %w", ErrRoomFull)
	assert.True(t, IsValidation(wrapped))
	assert.ErrorIs(t, wrapped, ErrRoomFull)
	assert.False(t, errors.Is(wrapped, ErrRoomNotFound))
}

func TestWriteError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("vote: %w", &WriteError{Op: "cast vote", Err: cause})

	assert.True(t, IsWriteFailure(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "cast vote failed")
	assert.False(t, IsValidation(err))
	assert.False(t, IsWriteFailure(ErrRoomFull))
}
