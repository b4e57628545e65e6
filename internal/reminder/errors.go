package reminder

import "errors"

var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrTimeInPast        = errors.New("time is in the past")
	ErrAlreadyFinalized  = errors.New("reminder already finalized")
	ErrNotFound          = errors.New("reminder not found")
	// ErrInvalidRequest covers other user-correctable input (unknown repeat,
	// negative lead time, missing chat).
	ErrInvalidRequest = errors.New("invalid request")
)
