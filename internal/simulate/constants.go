package simulate

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	StatusPollInterval   = 100 * time.Millisecond
	DuplicateEvery       = 10
	PercentageMultiplier = 100
)
