package service

import (
	"errors"

	"github.com/okian/slate/internal/domain/types"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrMissingEventType rejects submissions without a routing event type.
	ErrMissingEventType = errors.New("submission event type is required")

	// ErrQueueFull signals intake backpressure; the submission was not
	// admitted and may be retried. Shared with the HTTP layer, which maps
	// it to 429.
	ErrQueueFull = types.ErrQueueFull
)
