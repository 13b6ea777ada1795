package server

import "errors"

var (
	// ErrInvalidUsername rejects an empty or malformed username at join.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrUsernameTaken rejects a username that is already active in the
	// current round.
	ErrUsernameTaken = errors.New("username already active in this round")

	// ErrRoundOver is returned when a client tries to join a round that is
	// already broadcasting its summary.
	ErrRoundOver = errors.New("round is over")
)
