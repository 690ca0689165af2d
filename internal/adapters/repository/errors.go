package repository

import "errors"

// Sentinel kinds for board errors.
var (
	ErrNotFound       = errors.New("board entry not found")
	ErrStaleTaskWrite = errors.New("write to terminal task")
	ErrRevokedWriter  = errors.New("write from cancelled invocation")
)
