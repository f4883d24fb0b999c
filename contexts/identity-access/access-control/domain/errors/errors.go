package errors

import "errors"

var (
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrInvalidAction    = errors.New("invalid action label")
	ErrInvalidChannel   = errors.New("invalid channel")
	ErrInvalidGroupName = errors.New("invalid group name")
)
