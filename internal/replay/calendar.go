package replay

import "time"

// Calendar returns every business day (Monday through Friday) from
// start through end inclusive, ascending, normalized to UTC midnight.
// Exchange holidays are not modeled; a holiday replays as a zero-PnL
// gap day.
func Calendar(start, end time.Time) []time.Time {
	var days []time.Time
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !d.After(last) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return days
}
