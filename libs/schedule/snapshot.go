// Package schedule carries the weekly schedule wire model shared between
// schedule-service (producer) and the dashboard SDK (consumer), plus the pure
// slot classification logic both sides rely on.
package schedule

// Day numbering is fixed: 1=Sunday .. 7=Saturday.
const (
	DaysPerWeek = 7

	// Calendar grid bounds and granularity for the weekly view.
	GridStartMinute = 8 * 60  // 08:00
	GridEndMinute   = 22 * 60 // 22:00 inclusive
	GridStepMinutes = 30
)

// Interval is a wall-clock window within a single day, in the teacher's
// timezone. End is strictly later than start; overnight intervals are not
// modeled.
type Interval struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BookedItem is an occupied interval: a confirmed package class or a trial.
type BookedItem struct {
	Interval
	StudentID   string `json:"student_id,omitempty"`
	StudentName string `json:"student_name"`
	CourseID    string `json:"course_id,omitempty"`
	CourseName  string `json:"course_name"`
	Status      string `json:"status"`
}

// DaySchedule is one calendar day of a snapshot. At most one DaySchedule per
// day_of_week exists in a snapshot.
type DaySchedule struct {
	DayOfWeek    int          `json:"day_of_week"` // 1=Sunday .. 7=Saturday
	Date         string       `json:"date"`        // yyyy-MM-dd
	Availability []Interval   `json:"availability"`
	Classes      []BookedItem `json:"classes"`
	Trials       []BookedItem `json:"trials"`
}

// TeacherRef identifies the teacher a snapshot belongs to.
type TeacherRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WeekSnapshot is the full read-only schedule for one teacher and one
// Sunday-to-Saturday week. It is fetched wholesale and replaced wholesale;
// nothing patches it in place.
type WeekSnapshot struct {
	Teacher TeacherRef    `json:"teacher"`
	Days    []DaySchedule `json:"schedule"`
}

// Day returns the schedule for the given day_of_week (1..7).
func (s *WeekSnapshot) Day(dayOfWeek int) (DaySchedule, bool) {
	for _, d := range s.Days {
		if d.DayOfWeek == dayOfWeek {
			return d, true
		}
	}
	return DaySchedule{}, false
}
