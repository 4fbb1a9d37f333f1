package engine

import (
	"fmt"
	"time"
)

// MonthKey renders a date as its YYYY-MM period key.
func MonthKey(d time.Time) string {
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

// AddMonthsFirstDay returns the first day of the month `months` after d.
func AddMonthsFirstDay(d time.Time, months int) time.Time {
	y := d.Year() + (int(d.Month())-1+months)/12
	m := (int(d.Month())-1+months)%12 + 1
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

// firstDayFromPeriod converts a YYYY-MM period key back to the first day of
// that month. Invalid keys yield the zero time and false.
func firstDayFromPeriod(period string) (time.Time, bool) {
	d, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// monthDiff returns b - a in whole months, where both are YYYY-MM keys.
// Malformed keys count as zero months.
func monthDiff(a, b string) int {
	da, okA := firstDayFromPeriod(a)
	db, okB := firstDayFromPeriod(b)
	if !okA || !okB {
		return 0
	}
	return (db.Year()-da.Year())*12 + int(db.Month()) - int(da.Month())
}
