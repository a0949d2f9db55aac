package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/schedule"
	"github.com/nayeem-islam/linguadesk/libs/timeutil"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/profile"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/storage"
)

type ScheduleHandler struct {
	repo    *storage.ScheduleRepository
	logger  *slog.Logger
	profile profile.Provider
}

func NewScheduleHandler(repo *storage.ScheduleRepository, logger *slog.Logger, profileProvider profile.Provider) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger, profile: profileProvider}
}

// Weekly returns the full seven-day snapshot for one teacher. The response is
// always the whole week; clients replace their copy wholesale rather than
// patching it.
func (h *ScheduleHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	teacherID := strings.TrimSpace(r.URL.Query().Get("teacher_id"))
	weekStartStr := strings.TrimSpace(r.URL.Query().Get("week_start"))
	if teacherID == "" || weekStartStr == "" {
		http.Error(w, "teacher_id and week_start are required", http.StatusBadRequest)
		return
	}

	weekStart, err := time.ParseInLocation("2006-01-02", weekStartStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid week_start", http.StatusBadRequest)
		return
	}
	// Normalize to the Sunday on or before the requested date.
	weekStart = weekStart.AddDate(0, 0, -int(weekStart.Weekday()))

	ctx := r.Context()
	teacher, found, err := h.repo.GetTeacher(ctx, teacherID)
	if err != nil {
		http.Error(w, "failed to load teacher", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "teacher not found", http.StatusNotFound)
		return
	}

	availability, err := h.repo.ListAvailability(ctx, teacherID)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}
	weekEnd := weekStart.AddDate(0, 0, schedule.DaysPerWeek)
	classes, err := h.repo.ListClassesInRange(ctx, teacherID, weekStart, weekEnd)
	if err != nil {
		http.Error(w, "failed to load classes", http.StatusInternalServerError)
		return
	}
	trials, err := h.repo.ListTrialsInRange(ctx, teacherID, weekStart, weekEnd)
	if err != nil {
		http.Error(w, "failed to load trials", http.StatusInternalServerError)
		return
	}

	studentNames, courseNames, err := h.resolveNames(r, classes, trials)
	if err != nil {
		http.Error(w, "failed to resolve directory names", http.StatusInternalServerError)
		return
	}

	snapshot := schedule.WeekSnapshot{
		Teacher: schedule.TeacherRef{ID: teacher.ID, Name: teacher.Name},
		Days:    make([]schedule.DaySchedule, schedule.DaysPerWeek),
	}
	for i := 0; i < schedule.DaysPerWeek; i++ {
		date := weekStart.AddDate(0, 0, i)
		day := schedule.DaySchedule{
			DayOfWeek:    i + 1,
			Date:         date.Format("2006-01-02"),
			Availability: []schedule.Interval{},
			Classes:      []schedule.BookedItem{},
			Trials:       []schedule.BookedItem{},
		}
		for _, win := range availability[i+1] {
			day.Availability = append(day.Availability, schedule.Interval{
				StartTime: timeutil.FormatMinutes(win.StartMinute),
				EndTime:   timeutil.FormatMinutes(win.EndMinute),
			})
		}
		snapshot.Days[i] = day
	}

	for _, c := range classes {
		idx := dayIndex(weekStart, c.Date)
		if idx < 0 {
			continue
		}
		snapshot.Days[idx].Classes = append(snapshot.Days[idx].Classes, schedule.BookedItem{
			Interval: schedule.Interval{
				StartTime: timeutil.FormatMinutes(c.StartMinute),
				EndTime:   timeutil.FormatMinutes(c.EndMinute),
			},
			StudentID:   c.StudentID,
			StudentName: studentNames[c.StudentID],
			CourseID:    c.CourseID,
			CourseName:  courseNames[c.CourseID],
			Status:      c.Status,
		})
	}
	for _, t := range trials {
		idx := dayIndex(weekStart, t.Date)
		if idx < 0 {
			continue
		}
		name := t.StudentName
		if t.StudentID != "" {
			if cached, ok := studentNames[t.StudentID]; ok && cached != "" {
				name = cached
			}
		}
		snapshot.Days[idx].Trials = append(snapshot.Days[idx].Trials, schedule.BookedItem{
			Interval: schedule.Interval{
				StartTime: timeutil.FormatMinutes(t.StartMinute),
				EndTime:   timeutil.FormatMinutes(t.EndMinute),
			},
			StudentID:   t.StudentID,
			StudentName: name,
			CourseID:    t.CourseID,
			CourseName:  courseNames[t.CourseID],
			Status:      t.Status,
		})
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type gridResponse struct {
	Timezone    string   `json:"timezone"`
	StepMinutes int      `json:"step_minutes"`
	Times       []string `json:"times"`
}

// Grid returns the discrete time cells the dashboard renders rows for. School
// profile bounds apply when directory-service is reachable over gRPC;
// otherwise the stock 08:00-22:00 half-hour grid is served.
func (h *ScheduleHandler) Grid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := gridResponse{
		Timezone:    "UTC",
		StepMinutes: schedule.GridStepMinutes,
		Times:       schedule.GridTimes(),
	}
	if h.profile != nil {
		schoolID := strings.TrimSpace(r.URL.Query().Get("school_id"))
		if schoolID != "" {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			p, err := h.profile.GetSchoolProfile(ctx, schoolID)
			if err != nil {
				h.logger.Warn("school profile fetch failed; using default grid", "err", err)
			} else if p.DayStartMinute < p.DayEndMinute && p.SlotStepMinutes > 0 {
				resp.Timezone = p.Timezone
				resp.StepMinutes = p.SlotStepMinutes
				resp.Times = resp.Times[:0]
				for m := p.DayStartMinute; m <= p.DayEndMinute; m += p.SlotStepMinutes {
					resp.Times = append(resp.Times, timeutil.FormatMinutes(m))
				}
			}
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ScheduleHandler) resolveNames(r *http.Request, classes []model.Class, trials []model.Trial) (map[string]string, map[string]string, error) {
	var studentIDs, courseIDs []string
	seenStudents := map[string]bool{}
	seenCourses := map[string]bool{}
	collect := func(studentID, courseID string) {
		if studentID != "" && !seenStudents[studentID] {
			seenStudents[studentID] = true
			studentIDs = append(studentIDs, studentID)
		}
		if courseID != "" && !seenCourses[courseID] {
			seenCourses[courseID] = true
			courseIDs = append(courseIDs, courseID)
		}
	}
	for _, c := range classes {
		collect(c.StudentID, c.CourseID)
	}
	for _, t := range trials {
		collect(t.StudentID, t.CourseID)
	}

	studentNames, err := h.repo.ListStudentNames(r.Context(), studentIDs)
	if err != nil {
		return nil, nil, err
	}
	courseNames, err := h.repo.ListCourseNames(r.Context(), courseIDs)
	if err != nil {
		return nil, nil, err
	}
	return studentNames, courseNames, nil
}

func dayIndex(weekStart, date time.Time) int {
	idx := int(date.Sub(weekStart).Hours() / 24)
	if idx < 0 || idx >= schedule.DaysPerWeek {
		return -1
	}
	return idx
}
