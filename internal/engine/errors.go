package engine

import "errors"

var (
	// ErrNotConnected means the operation needs an authenticated session.
	ErrNotConnected = errors.New("not connected to platform")

	// ErrNoPendingChallenge means a challenge code was submitted without a
	// challenge-required login preceding it.
	ErrNoPendingChallenge = errors.New("no pending challenge")

	// ErrInvalidRequest means the input was malformed or empty.
	ErrInvalidRequest = errors.New("invalid request")
)
