package archive

import (
	"context"
	"testing"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/memory"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	reactors := store.Reactors()
	cache := memory.NewCalendarCache()

	r := &model.Reactor{Name: "R1"}
	require.NoError(t, reactors.CreateReactor(ctx, r))
	expired := &model.ReactorCycle{ReactorID: r.ID, Name: "old", Mass: decimal.NewFromInt(3), IsEnabled: true,
		TargetStartDate: datatypes.Date(day("2024-05-01")), ExpirationDate: datatypes.Date(day("2024-06-04"))}
	current := &model.ReactorCycle{ReactorID: r.ID, Name: "current", Mass: decimal.NewFromInt(3), IsEnabled: true,
		TargetStartDate: datatypes.Date(day("2024-06-01")), ExpirationDate: datatypes.Date(day("2024-06-05"))}
	require.NoError(t, reactors.CreateCycle(ctx, expired))
	require.NoError(t, reactors.CreateCycle(ctx, current))
	require.NoError(t, cache.SetCalendar(ctx, repo.CalendarKey{ReactorID: r.ID}, nil))

	now := time.Date(2024, 6, 5, 23, 0, 0, 0, time.UTC)
	s := New(reactors, WithCache(cache), WithClock(func() time.Time { return now }))

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, cache.Len())

	got, err := reactors.GetCycleByID(ctx, expired.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ArchivedExpired, got.ArchivedStatus)
	got, err = reactors.GetCycleByID(ctx, current.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.ArchivedNone, got.ArchivedStatus)

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(memory.NewStore().Reactors())
	_, err := s.Start(context.Background(), "every now and then")
	assert.ErrorIs(t, err, code.ParamErr)

	stop, err := s.Start(context.Background(), "@every 1h")
	require.NoError(t, err)
	stop()
}
