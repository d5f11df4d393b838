// Package streak computes consecutive-day check-in counts. The functions are
// pure: "today" is always supplied by the caller, never read from the clock,
// so the same record set always yields the same answer.
package streak

import (
	"sort"
	"time"
)

// DayOf truncates t to midnight in its own location. All record dates and
// streak math operate on these day values.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ConsecutiveDays returns the length of the unbroken run of daily records
// ending at today. Dates are deduplicated per calendar day; the walk starts
// at today and requires each next record to be exactly one day earlier, so a
// user with records yesterday and before but none today gets 0. Dates after
// today are ignored.
func ConsecutiveDays(today time.Time, dates []time.Time) int {
	cursor := DayOf(today)

	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := DayOf(d)
		if day.After(cursor) {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	count := 0
	for _, day := range days {
		if !day.Equal(cursor) {
			break
		}
		count++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return count
}
