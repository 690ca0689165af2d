// Package types contains common types used across the application
package types

import "errors"

// ErrQueueFull signals intake backpressure. The submission was not admitted
// and may be retried; the HTTP layer maps it to 429.
var ErrQueueFull = errors.New("intake queue full")
