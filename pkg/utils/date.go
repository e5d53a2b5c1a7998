package utils

import (
	"time"

	"github.com/isoflow/clinicorder/pkg/common/constant"
)

// Day truncates t to its calendar date at UTC midnight. Comparisons between
// dates are done on these values only.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(constant.DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

func FormatDate(t time.Time) string {
	return t.Format(constant.DateLayout)
}

// MonthRange returns the first and last day of month/year.
func MonthRange(month time.Month, year int) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
