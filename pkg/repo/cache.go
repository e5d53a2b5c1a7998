package repo

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type CalendarKey struct {
	ReactorID int64
	From      time.Time
	To        time.Time
	Today     time.Time
}

type CalendarCache interface {
	GetCalendar(ctx context.Context, key CalendarKey) ([]*model.CalendarEntry, bool, error)
	SetCalendar(ctx context.Context, key CalendarKey, entries []*model.CalendarEntry) error
	InvalidateReactor(ctx context.Context, reactorID int64) error
}
