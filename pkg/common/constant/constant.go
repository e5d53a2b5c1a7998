package constant

import "time"

const (
	// websocket read limit
	MaxMessageSize = 1 << 20

	DateLayout = "2006-01-02"

	// allocation attempts before a lock conflict is surfaced to the caller
	AllocationAttempts = 3

	CalendarCacheTTL = 10 * time.Minute
)
