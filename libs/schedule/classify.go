package schedule

import "github.com/nayeem-islam/linguadesk/libs/timeutil"

// Status is the classification of one grid cell.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusEmpty     Status = "empty"
)

// Classify layers booked intervals over availability windows for a single
// probe time. Precedence is booked > available > empty: a booking inside a
// declared availability window suppresses that cell's availability, modeling
// "declared availability minus existing bookings". Bookings are checked first,
// so a stray booking outside any declared window still classifies as booked.
//
// Pure function of its inputs; safe to call per rendered cell.
func Classify(day DaySchedule, probe string) Status {
	for _, c := range day.Classes {
		if timeutil.Within(probe, c.StartTime, c.EndTime) {
			return StatusBooked
		}
	}
	for _, tr := range day.Trials {
		if timeutil.Within(probe, tr.StartTime, tr.EndTime) {
			return StatusBooked
		}
	}
	for _, a := range day.Availability {
		if timeutil.Within(probe, a.StartTime, a.EndTime) {
			return StatusAvailable
		}
	}
	return StatusEmpty
}

// BookedAt returns the booked item occupying the probe time, classes before
// trials. A well-formed schedule never has both overlapping the same cell;
// consulting classes first matches how the grid renders the cell label.
func BookedAt(day DaySchedule, probe string) (BookedItem, bool) {
	for _, c := range day.Classes {
		if timeutil.Within(probe, c.StartTime, c.EndTime) {
			return c, true
		}
	}
	for _, tr := range day.Trials {
		if timeutil.Within(probe, tr.StartTime, tr.EndTime) {
			return tr, true
		}
	}
	return BookedItem{}, false
}

// GridTimes enumerates the probe times of the calendar grid, 08:00 through
// 22:00 at 30-minute steps, both bounds included.
func GridTimes() []string {
	var times []string
	for m := GridStartMinute; m <= GridEndMinute; m += GridStepMinutes {
		times = append(times, timeutil.FormatMinutes(m))
	}
	return times
}
