// Package availability decides which reactor cycles can serve a date and
// builds availability calendars. It performs no I/O.
package availability

import (
	"sort"
	"time"

	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/shopspring/decimal"
)

// InWindow reports whether c is enabled, not soft deleted and d lies inside
// its inclusive window. Mass is not considered.
func InWindow(c *model.ReactorCycle, d time.Time) bool {
	if c == nil || !c.IsEnabled || c.IsDeleted() {
		return false
	}
	day := utils.Day(d)
	return !day.Before(utils.Day(c.StartDay())) && !day.After(utils.Day(c.ExpirationDay()))
}

// IsAvailable reports whether c is in its window on d and has mass left.
func IsAvailable(c *model.ReactorCycle, d time.Time) bool {
	return InWindow(c, d) && c.Mass.IsPositive()
}

func IsDosageAvailable(c *model.ReactorCycle, d time.Time, amount decimal.Decimal) bool {
	return IsAvailable(c, d) && c.Mass.GreaterThanOrEqual(amount)
}

// AvailableCycles returns the cycles available on d ordered first expired
// first, ties on the lowest id. extra, when not nil, is added even if it is
// not available itself.
func AvailableCycles(cycles []*model.ReactorCycle, d time.Time, extra *model.ReactorCycle) []*model.ReactorCycle {
	out := make([]*model.ReactorCycle, 0, len(cycles)+1)
	seen := make(map[int64]struct{}, len(cycles)+1)
	for _, c := range cycles {
		if !IsAvailable(c, d) {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	if extra != nil {
		if _, ok := seen[extra.ID]; !ok {
			out = append(out, extra)
		}
	}
	SortFEFO(out)
	return out
}

// SortFEFO orders cycles by expiration date ascending then id ascending.
func SortFEFO(cycles []*model.ReactorCycle) {
	sort.SliceStable(cycles, func(i, j int) bool {
		ei, ej := utils.Day(cycles[i].ExpirationDay()), utils.Day(cycles[j].ExpirationDay())
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return cycles[i].ID < cycles[j].ID
	})
}

// SelectForDosage picks the first cycle in FEFO order that can serve amount
// on d.
func SelectForDosage(cycles []*model.ReactorCycle, d time.Time, amount decimal.Decimal) (*model.ReactorCycle, bool) {
	for _, c := range AvailableCycles(cycles, d, nil) {
		if c.Mass.GreaterThanOrEqual(amount) {
			return c, true
		}
	}
	return nil, false
}

// AnyAvailable reports whether at least one cycle is available on d.
func AnyAvailable(cycles []*model.ReactorCycle, d time.Time) bool {
	for _, c := range cycles {
		if IsAvailable(c, d) {
			return true
		}
	}
	return false
}

// RangeCalendar lists every day in [from, to] that is after today together
// with whether any cycle is available on it. Days on or before today are
// left out.
func RangeCalendar(cycles []*model.ReactorCycle, from, to, today time.Time) []*model.CalendarEntry {
	from, to, today = utils.Day(from), utils.Day(to), utils.Day(today)
	entries := make([]*model.CalendarEntry, 0)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !d.After(today) {
			continue
		}
		entries = append(entries, &model.CalendarEntry{
			Date:        d,
			IsAvailable: AnyAvailable(cycles, d),
		})
	}
	return entries
}

func MonthCalendar(cycles []*model.ReactorCycle, month time.Month, year int, today time.Time) []*model.CalendarEntry {
	first, last := utils.MonthRange(month, year)
	return RangeCalendar(cycles, first, last, today)
}
