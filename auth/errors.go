package auth

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrUserBanned        = errors.New("user banned")
	ErrSessionIPMismatch = errors.New("session used from a different ip")
)
