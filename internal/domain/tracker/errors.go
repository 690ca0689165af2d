package tracker

import "errors"

// Sentinel kinds for tracker errors.
var (
	ErrUnknownTask       = errors.New("unknown task")
	ErrTaskExists        = errors.New("task already exists")
	ErrInvalidTransition = errors.New("invalid phase transition")
)
