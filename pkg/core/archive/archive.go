package archive

import "context"

// Sweeper marks cycles whose expiration date has passed as Expired.
type Sweeper interface {
	// Sweep archives once and returns how many reactors were touched.
	Sweep(ctx context.Context) (int, error)
	// Start schedules Sweep on spec. The returned func stops the schedule
	// and waits for a running sweep.
	Start(ctx context.Context, spec string) (func(), error)
}
