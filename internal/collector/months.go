package collector

import "time"

// MonthRange returns the first and last calendar day of a month.
// The last day is found by jumping to the 28th, adding four days to land in the
// next month, snapping to the 1st and stepping back one second.
func MonthRange(year int, month time.Month) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	nextMonth := time.Date(year, month, 28, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 4)
	nextMonth = time.Date(nextMonth.Year(), nextMonth.Month(), 1, 0, 0, 0, 0, time.UTC)
	endOfMonth := nextMonth.Add(-time.Second)

	end = time.Date(endOfMonth.Year(), endOfMonth.Month(), endOfMonth.Day(), 0, 0, 0, 0, time.UTC)
	return start, end
}

// YearMonths returns the January..December ranges of year in order
func YearMonths(year int) [][2]time.Time {
	ranges := make([][2]time.Time, 0, 12)
	for m := time.January; m <= time.December; m++ {
		start, end := MonthRange(year, m)
		ranges = append(ranges, [2]time.Time{start, end})
	}
	return ranges
}
