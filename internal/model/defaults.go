package model

import "time"

// Shared defaults used by both the server and TUI binaries.
const (
	DefaultLogBatchSize  = 30
	DefaultFlushInterval = 60 * time.Second
	DefaultLifecycleTick = time.Second
	DefaultSlotMinutes   = 30
	DefaultUnitPrice     = 50
)
