package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nayeem-islam/linguadesk/clients/dashboard"
	"github.com/nayeem-islam/linguadesk/libs/schedule"
)

// trial-sim drives a full booking flow through the gateway the way the
// dashboard does: load the weekly snapshot, pick a course, open the intake
// form on a slot, and submit a trial for a new student.
func main() {
	var (
		baseURL   = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		token     = flag.String("token", getenv("AUTH_TOKEN", ""), "bearer token for the gateway")
		teacherID = flag.String("teacher-id", getenv("TEACHER_ID", ""), "teacher to book against")
		date      = flag.String("date", "", "trial date (yyyy-MM-dd, default today)")
		start     = flag.String("start", "10:00", "slot start time (HH:mm)")
		name      = flag.String("student", "Sim Student", "new student name")
		email     = flag.String("email", "", "new student email")
	)
	flag.Parse()

	if strings.TrimSpace(*token) == "" {
		fatal("AUTH_TOKEN is required")
	}
	if strings.TrimSpace(*teacherID) == "" {
		fatal("TEACHER_ID is required")
	}

	trialDate := time.Now().UTC().Truncate(24 * time.Hour)
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			fatal("bad -date: " + err.Error())
		}
		trialDate = parsed
	}
	weekStart := trialDate.AddDate(0, 0, -int(trialDate.Weekday()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := dashboard.NewClient(*baseURL, *token)

	loader := dashboard.NewSnapshotLoader(client)
	loader.Select(*teacherID, weekStart)
	if err := loader.Load(ctx); err != nil {
		fatal(err.Error())
	}
	snapshot, _ := loader.Current()
	day, _ := snapshot.Day(int(trialDate.Weekday()) + 1)
	fmt.Printf("slot %s on %s classifies as %s\n", *start, trialDate.Format("2006-01-02"), schedule.Classify(day, *start))

	courses, err := client.ListCourses(ctx)
	if err != nil {
		fatal(err.Error())
	}
	if len(courses) == 0 {
		fatal("no courses configured for this school")
	}

	form := dashboard.NewTrialForm(client, loader)
	form.Open(*teacherID, trialDate, *start)
	form.EnterNewStudent(dashboard.NewStudent{Name: *name, Email: *email})
	form.SelectCourse(courses[0].ID)

	if err := form.Submit(ctx); err != nil {
		fatal(err.Error())
	}
	fmt.Println("trial booked; snapshot refetched")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
