package models

import "errors"

// Errors reported by authentication collaborators.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNetwork            = errors.New("authentication service unreachable")
	ErrServer             = errors.New("authentication service error")
)

// ReasonFor maps an authentication error onto a failure reason.
func ReasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return ReasonInvalidCredentials
	case errors.Is(err, ErrNetwork):
		return ReasonNetwork
	case errors.Is(err, ErrServer):
		return ReasonServer
	default:
		return ReasonUnexpected
	}
}
