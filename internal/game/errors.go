package game

import (
	"errors"
	"fmt"
)

// ValidationError is returned when an intent's guard fails. The room is left
// unchanged and the caller may correct the input and retry.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validation(code, msg string) *ValidationError {
	return &ValidationError{Code: code, Message: msg}
}

var (
	ErrNameRequired     = validation("name_required", "a display name is required")
	ErrInvalidRoomCode  = validation("invalid_room_code", "room code must be 4 letters or digits")
	ErrRoomNotFound     = validation("room_not_found", "room not found")
	ErrRoomFull         = validation("room_full", "room is full")
	ErrGameInProgress   = validation("game_in_progress", "game has already started")
	ErrNotEnoughPlayers = validation("not_enough_players", "not enough players to start")
	ErrNotHost          = validation("not_host", "only the host can do that")
	ErrWrongStatus      = validation("wrong_status", "not allowed in the current phase")
	ErrNotYourTurn      = validation("not_your_turn", "it is not your turn to draw")
	ErrNotInRoom        = validation("not_in_room", "you are not in this room")
	ErrUnknownTarget    = validation("unknown_target", "that player is not in this room")
	ErrAlreadyVoted     = validation("already_voted", "you have already voted")
	ErrVotingOpen       = validation("voting_open", "not everyone has voted yet")
	ErrNotLiar          = validation("not_liar", "only the liar can guess")
	ErrInvalidStroke    = validation("invalid_stroke", "invalid stroke")
)

// IsValidation reports whether err is a guard failure
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// WriteError reports that a store write failed. Nothing is retried.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteFailure reports whether err is a failed store write
func IsWriteFailure(err error) bool {
	var w *WriteError
	return errors.As(err, &w)
}
