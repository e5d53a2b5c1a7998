package availability

import (
	"testing"
	"time"

	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func cycle(id int64, start, end string, mass string, enabled bool) *model.ReactorCycle {
	return &model.ReactorCycle{
		BaseModel:       model.BaseModel{ID: id},
		Mass:            decimal.RequireFromString(mass),
		TargetStartDate: datatypes.Date(day(start)),
		ExpirationDate:  datatypes.Date(day(end)),
		IsEnabled:       enabled,
	}
}

func TestIsAvailable(t *testing.T) {
	base := cycle(1, "2024-06-10", "2024-06-20", "50", true)

	cases := []struct {
		name string
		c    *model.ReactorCycle
		d    string
		want bool
	}{
		{"inside window", base, "2024-06-15", true},
		{"start day inclusive", base, "2024-06-10", true},
		{"expiration day inclusive", base, "2024-06-20", true},
		{"before start", base, "2024-06-09", false},
		{"after expiration", base, "2024-06-21", false},
		{"disabled", cycle(2, "2024-06-10", "2024-06-20", "50", false), "2024-06-15", false},
		{"zero mass", cycle(3, "2024-06-10", "2024-06-20", "0", true), "2024-06-15", false},
		{"negative mass", cycle(4, "2024-06-10", "2024-06-20", "-1", true), "2024-06-15", false},
		{"nil cycle", nil, "2024-06-15", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsAvailable(tc.c, day(tc.d)))
		})
	}
}

func TestIsAvailableIgnoresTimeOfDay(t *testing.T) {
	c := cycle(1, "2024-06-10", "2024-06-20", "50", true)
	late := time.Date(2024, 6, 20, 23, 59, 0, 0, time.UTC)
	assert.True(t, IsAvailable(c, late))
}

func TestIsAvailableSoftDeleted(t *testing.T) {
	c := cycle(1, "2024-06-10", "2024-06-20", "50", true)
	c.DeletedAt = gorm.DeletedAt{Time: day("2024-06-01"), Valid: true}
	assert.False(t, IsAvailable(c, day("2024-06-15")))
}

func TestIsDosageAvailable(t *testing.T) {
	c := cycle(1, "2024-06-10", "2024-06-20", "40.5", true)
	d := day("2024-06-12")

	assert.True(t, IsDosageAvailable(c, d, decimal.RequireFromString("40.5")))
	assert.True(t, IsDosageAvailable(c, d, decimal.RequireFromString("1")))
	assert.False(t, IsDosageAvailable(c, d, decimal.RequireFromString("40.501")))
	assert.False(t, IsDosageAvailable(c, day("2024-06-25"), decimal.RequireFromString("1")))
}

func TestAvailableCyclesOrdering(t *testing.T) {
	late := cycle(1, "2024-06-01", "2024-06-30", "10", true)
	sameB := cycle(5, "2024-06-01", "2024-06-20", "10", true)
	sameA := cycle(3, "2024-06-01", "2024-06-20", "10", true)
	off := cycle(4, "2024-06-01", "2024-06-20", "10", false)

	got := AvailableCycles([]*model.ReactorCycle{late, sameB, off, sameA}, day("2024-06-15"), nil)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 5, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestAvailableCyclesUnion(t *testing.T) {
	live := cycle(1, "2024-06-01", "2024-06-30", "10", true)
	old := cycle(2, "2024-05-01", "2024-05-31", "3", false)

	got := AvailableCycles([]*model.ReactorCycle{live}, day("2024-06-15"), old)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)

	got = AvailableCycles([]*model.ReactorCycle{live}, day("2024-06-15"), live)
	assert.Len(t, got, 1)
}

func TestSelectForDosage(t *testing.T) {
	small := cycle(1, "2024-06-01", "2024-06-15", "5", true)
	big := cycle(2, "2024-06-01", "2024-06-30", "100", true)
	cycles := []*model.ReactorCycle{big, small}

	c, ok := SelectForDosage(cycles, day("2024-06-10"), decimal.NewFromInt(5))
	require.True(t, ok)
	assert.Equal(t, int64(1), c.ID)

	c, ok = SelectForDosage(cycles, day("2024-06-10"), decimal.NewFromInt(6))
	require.True(t, ok)
	assert.Equal(t, int64(2), c.ID)

	_, ok = SelectForDosage(cycles, day("2024-06-10"), decimal.NewFromInt(101))
	assert.False(t, ok)
}

func TestMonthCalendar(t *testing.T) {
	c := cycle(1, "2024-06-10", "2024-06-20", "50", true)
	entries := MonthCalendar([]*model.ReactorCycle{c}, time.June, 2024, day("2024-06-05"))

	require.Len(t, entries, 25)
	assert.Equal(t, day("2024-06-06"), entries[0].Date)
	assert.Equal(t, day("2024-06-30"), entries[len(entries)-1].Date)
	for _, e := range entries {
		want := !e.Date.Before(day("2024-06-10")) && !e.Date.After(day("2024-06-20"))
		assert.Equal(t, want, e.IsAvailable, e.Date.Format("2006-01-02"))
	}
}

func TestMonthCalendarPastMonth(t *testing.T) {
	c := cycle(1, "2024-06-10", "2024-06-20", "50", true)
	assert.Empty(t, MonthCalendar([]*model.ReactorCycle{c}, time.May, 2024, day("2024-06-05")))
}

func TestMonthCalendarAnyCycle(t *testing.T) {
	a := cycle(1, "2024-02-01", "2024-02-10", "5", true)
	b := cycle(2, "2024-02-20", "2024-02-29", "5", true)
	entries := MonthCalendar([]*model.ReactorCycle{a, b}, time.February, 2024, day("2024-01-01"))

	require.Len(t, entries, 29)
	assert.True(t, entries[0].IsAvailable)
	assert.False(t, entries[14].IsAvailable)
	assert.True(t, entries[28].IsAvailable)
}

func TestRangeCalendar(t *testing.T) {
	c := cycle(1, "2024-06-10", "2024-06-20", "50", true)
	entries := RangeCalendar([]*model.ReactorCycle{c}, day("2024-06-19"), day("2024-06-22"), day("2024-06-01"))
	require.Len(t, entries, 4)
	assert.Equal(t, []bool{true, true, false, false},
		[]bool{entries[0].IsAvailable, entries[1].IsAvailable, entries[2].IsAvailable, entries[3].IsAvailable})
}

func TestInWindowIgnoresMass(t *testing.T) {
	c := cycle(1, "2024-06-10", "2024-06-20", "0", true)
	assert.True(t, InWindow(c, day("2024-06-15")))
	assert.False(t, IsAvailable(c, day("2024-06-15")))
	assert.False(t, InWindow(c, day("2024-06-21")))
}
