package model

import "time"

// AvailabilityWindow is one declared open interval of a teacher's recurring
// weekly schedule. Weekday follows the snapshot convention: 1=Sunday..7=Saturday.
type AvailabilityWindow struct {
	TeacherID   string
	Weekday     int
	StartMinute int
	EndMinute   int
}

// Class is a confirmed package class occupying a teacher's time.
type Class struct {
	ID          string
	TeacherID   string
	StudentID   string
	CourseID    string
	Date        time.Time // date only, teacher-local
	StartMinute int
	EndMinute   int
	Status      string
	CreatedAt   time.Time
}

// Trial is a single non-recurring introductory booking. For students created
// inline from the intake flow StudentID is empty until directory-service
// materializes the profile; the captured contact fields travel with the trial.
type Trial struct {
	ID              string
	TeacherID       string
	CourseID        string
	StudentID       string
	StudentName     string
	StudentEmail    string
	StudentWhatsapp string
	StudentCountry  string
	Date            time.Time
	StartMinute     int
	EndMinute       int
	Status          string
	Notes           string
	CreatedAt       time.Time
}

// Directory read models maintained from directory-service events.
type Teacher struct {
	ID       string
	Name     string
	Timezone string
	Active   bool
}

type Student struct {
	ID       string
	FullName string
	Email    string
}

type Course struct {
	ID              string
	Name            string
	DurationMinutes int
}
