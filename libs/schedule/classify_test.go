package schedule

import "testing"

func sundayWithAvailability() DaySchedule {
	return DaySchedule{
		DayOfWeek:    1,
		Date:         "2026-09-06",
		Availability: []Interval{{StartTime: "09:00", EndTime: "11:00"}},
	}
}

func TestClassifyOpenWindow(t *testing.T) {
	day := sundayWithAvailability()
	if got := Classify(day, "09:30"); got != StatusAvailable {
		t.Fatalf("expected available, got %s", got)
	}
	if got := Classify(day, "08:30"); got != StatusEmpty {
		t.Fatalf("expected empty before window, got %s", got)
	}
	if got := Classify(day, "11:00"); got != StatusEmpty {
		t.Fatalf("expected empty at window end (half-open), got %s", got)
	}
}

func TestClassifyBookedWinsOverAvailable(t *testing.T) {
	day := sundayWithAvailability()
	day.Classes = []BookedItem{{
		Interval:    Interval{StartTime: "10:00", EndTime: "10:30"},
		StudentName: "Amina",
		CourseName:  "Spanish A1",
		Status:      "confirmed",
	}}

	if got := Classify(day, "10:15"); got != StatusBooked {
		t.Fatalf("expected booked inside class, got %s", got)
	}
	if got := Classify(day, "09:15"); got != StatusAvailable {
		t.Fatalf("expected available outside class, got %s", got)
	}
	if got := Classify(day, "10:30"); got != StatusAvailable {
		t.Fatalf("expected available at class end (half-open), got %s", got)
	}
}

func TestClassifyBookedWithoutAvailability(t *testing.T) {
	// A stray booking on a day with no declared windows still renders booked:
	// bookings are checked before availability.
	day := DaySchedule{
		DayOfWeek: 2,
		Date:      "2026-09-07",
		Trials:    []BookedItem{{Interval: Interval{StartTime: "13:00", EndTime: "14:00"}}},
	}
	if got := Classify(day, "13:30"); got != StatusBooked {
		t.Fatalf("expected booked, got %s", got)
	}
	if got := Classify(day, "15:00"); got != StatusEmpty {
		t.Fatalf("expected empty, got %s", got)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	day := sundayWithAvailability()
	day.Trials = []BookedItem{{Interval: Interval{StartTime: "09:30", EndTime: "10:30"}}}
	first := Classify(day, "09:45")
	second := Classify(day, "09:45")
	if first != second {
		t.Fatalf("classification not stable: %s then %s", first, second)
	}
}

func TestBookedAtPrefersClasses(t *testing.T) {
	day := sundayWithAvailability()
	day.Classes = []BookedItem{{Interval: Interval{StartTime: "10:00", EndTime: "11:00"}, StudentName: "Karim"}}
	day.Trials = []BookedItem{{Interval: Interval{StartTime: "10:00", EndTime: "11:00"}, StudentName: "Lena"}}

	item, ok := BookedAt(day, "10:15")
	if !ok {
		t.Fatal("expected a booked item")
	}
	if item.StudentName != "Karim" {
		t.Fatalf("expected class consulted first, got %s", item.StudentName)
	}
}

func TestGridTimes(t *testing.T) {
	times := GridTimes()
	if len(times) != 29 {
		t.Fatalf("expected 29 cells from 08:00 to 22:00, got %d", len(times))
	}
	if times[0] != "08:00" || times[len(times)-1] != "22:00" {
		t.Fatalf("unexpected grid bounds: %s .. %s", times[0], times[len(times)-1])
	}
}
