package broadcast

import "github.com/okian/slate/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithObserverBuffer sets the per-observer message buffer size.
func WithObserverBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.buffer = size
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(log logger.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}
