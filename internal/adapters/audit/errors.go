package audit

import "errors"

// Sentinel kinds for audit errors.
var (
	ErrNoTrace = errors.New("no audit trace for task")
)
