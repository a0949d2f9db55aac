package model

import "time"

// SchoolProfile is the per-tenant configuration record. DayStartMinute and
// DayEndMinute bound the bookable grid the dashboard renders.
type SchoolProfile struct {
	SchoolID        string
	Name            string
	Timezone        string
	DayStartMinute  int
	DayEndMinute    int
	SlotStepMinutes int
}

type Teacher struct {
	ID        string
	SchoolID  string
	Name      string
	Timezone  string
	Active    bool
	CreatedAt time.Time
}

type Course struct {
	ID              string
	SchoolID        string
	Name            string
	DurationMinutes int
	CreatedAt       time.Time
}

type Student struct {
	ID        string
	SchoolID  string
	FullName  string
	Email     string
	Whatsapp  string
	Country   string
	CreatedAt time.Time
}
