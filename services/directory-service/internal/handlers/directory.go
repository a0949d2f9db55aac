package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/storage"
)

// DirectoryHandler serves the tenant catalog: school profile, teachers,
// courses and students. Every request is scoped by the X-School-Id header
// the gateway injects from the verified token.
type DirectoryHandler struct {
	repo       *storage.Repository
	outboxRepo *eventbox.OutboxRepository
	logger     *slog.Logger
}

func NewDirectoryHandler(repo *storage.Repository, outboxRepo *eventbox.OutboxRepository, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

func schoolID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get("X-School-Id"))
	if id == "" {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

type profileResponse struct {
	SchoolID        string `json:"school_id"`
	Name            string `json:"name"`
	Timezone        string `json:"timezone"`
	DayStartMinute  int    `json:"day_start_minute"`
	DayEndMinute    int    `json:"day_end_minute"`
	SlotStepMinutes int    `json:"slot_step_minutes"`
}

type updateProfileRequest struct {
	Name            string `json:"name"`
	Timezone        string `json:"timezone"`
	DayStartMinute  int    `json:"day_start_minute"`
	DayEndMinute    int    `json:"day_end_minute"`
	SlotStepMinutes int    `json:"slot_step_minutes"`
}

func (h *DirectoryHandler) Profile(w http.ResponseWriter, r *http.Request) {
	school, ok := schoolID(r)
	if !ok {
		http.Error(w, "missing or invalid school id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := h.repo.GetOrCreateProfile(r.Context(), school)
		if err != nil {
			http.Error(w, "failed to load profile", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{
			SchoolID:        p.SchoolID,
			Name:            p.Name,
			Timezone:        p.Timezone,
			DayStartMinute:  p.DayStartMinute,
			DayEndMinute:    p.DayEndMinute,
			SlotStepMinutes: p.SlotStepMinutes,
		})
	case http.MethodPut:
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Timezone = strings.TrimSpace(req.Timezone)
		if req.Timezone == "" {
			req.Timezone = "UTC"
		}
		if req.DayStartMinute < 0 || req.DayEndMinute > 24*60 || req.DayEndMinute <= req.DayStartMinute {
			http.Error(w, "invalid day bounds", http.StatusBadRequest)
			return
		}
		if req.SlotStepMinutes <= 0 || req.SlotStepMinutes > 240 {
			http.Error(w, "invalid slot step", http.StatusBadRequest)
			return
		}
		err := h.repo.UpdateProfile(r.Context(), model.SchoolProfile{
			SchoolID:        school,
			Name:            req.Name,
			Timezone:        req.Timezone,
			DayStartMinute:  req.DayStartMinute,
			DayEndMinute:    req.DayEndMinute,
			SlotStepMinutes: req.SlotStepMinutes,
		})
		if err != nil {
			http.Error(w, "failed to update profile", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createTeacherRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type teacherResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Active   bool   `json:"active"`
}

func (h *DirectoryHandler) Teachers(w http.ResponseWriter, r *http.Request) {
	school, ok := schoolID(r)
	if !ok {
		http.Error(w, "missing or invalid school id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		teachers, err := h.repo.ListTeachers(r.Context(), school, queryInt(r, "limit", 100))
		if err != nil {
			http.Error(w, "failed to list teachers", http.StatusInternalServerError)
			return
		}
		out := make([]teacherResponse, 0, len(teachers))
		for _, t := range teachers {
			out = append(out, teacherResponse{ID: t.ID, Name: t.Name, Timezone: t.Timezone, Active: t.Active})
		}
		writeJSON(w, http.StatusOK, map[string]any{"teachers": out})
	case http.MethodPost:
		var req createTeacherRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		req.Timezone = strings.TrimSpace(req.Timezone)
		if req.Timezone == "" {
			req.Timezone = "UTC"
		}

		ctx := r.Context()
		tx, err := h.repo.Begin(ctx)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		defer func() { _ = tx.Rollback(ctx) }()

		id, err := h.repo.CreateTeacher(ctx, tx, &model.Teacher{
			SchoolID: school,
			Name:     req.Name,
			Timezone: req.Timezone,
			Active:   true,
		})
		if err != nil {
			http.Error(w, "failed to create teacher", http.StatusInternalServerError)
			return
		}

		payload, err := json.Marshal(map[string]any{
			"teacher_id": id,
			"school_id":  school,
			"name":       req.Name,
			"timezone":   req.Timezone,
			"active":     true,
		})
		if err != nil {
			http.Error(w, "failed to build event payload", http.StatusInternalServerError)
			return
		}
		if err := h.outboxRepo.Insert(ctx, tx, eventbox.Event{
			AggregateType: "teacher",
			AggregateID:   id,
			EventType:     "directory.teacher.upserted.v1",
			Payload:       payload,
		}); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}

		if err := tx.Commit(ctx); err != nil {
			http.Error(w, "failed to commit", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, teacherResponse{ID: id, Name: req.Name, Timezone: req.Timezone, Active: true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createCourseRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

type courseResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *DirectoryHandler) Courses(w http.ResponseWriter, r *http.Request) {
	school, ok := schoolID(r)
	if !ok {
		http.Error(w, "missing or invalid school id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		courses, err := h.repo.ListCourses(r.Context(), school, queryInt(r, "limit", 100))
		if err != nil {
			http.Error(w, "failed to list courses", http.StatusInternalServerError)
			return
		}
		out := make([]courseResponse, 0, len(courses))
		for _, c := range courses {
			out = append(out, courseResponse{ID: c.ID, Name: c.Name, DurationMinutes: c.DurationMinutes})
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": out})
	case http.MethodPost:
		var req createCourseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if req.DurationMinutes <= 0 {
			req.DurationMinutes = 60
		}

		ctx := r.Context()
		tx, err := h.repo.Begin(ctx)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		defer func() { _ = tx.Rollback(ctx) }()

		id, err := h.repo.CreateCourse(ctx, tx, &model.Course{
			SchoolID:        school,
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			http.Error(w, "failed to create course", http.StatusInternalServerError)
			return
		}

		payload, err := json.Marshal(map[string]any{
			"course_id":        id,
			"school_id":        school,
			"name":             req.Name,
			"duration_minutes": req.DurationMinutes,
		})
		if err != nil {
			http.Error(w, "failed to build event payload", http.StatusInternalServerError)
			return
		}
		if err := h.outboxRepo.Insert(ctx, tx, eventbox.Event{
			AggregateType: "course",
			AggregateID:   id,
			EventType:     "directory.course.upserted.v1",
			Payload:       payload,
		}); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}

		if err := tx.Commit(ctx); err != nil {
			http.Error(w, "failed to commit", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, courseResponse{ID: id, Name: req.Name, DurationMinutes: req.DurationMinutes})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createStudentRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Whatsapp string `json:"whatsapp"`
	Country  string `json:"country"`
}

type studentResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Whatsapp string `json:"whatsapp"`
	Country  string `json:"country"`
}

// Students handles POST (create) and GET (search). Search is paginated with
// q, limit and offset query parameters; an empty q lists most recent first.
func (h *DirectoryHandler) Students(w http.ResponseWriter, r *http.Request) {
	school, ok := schoolID(r)
	if !ok {
		http.Error(w, "missing or invalid school id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)
		students, err := h.repo.SearchStudents(r.Context(), school, query, limit, offset)
		if err != nil {
			http.Error(w, "failed to search students", http.StatusInternalServerError)
			return
		}
		out := make([]studentResponse, 0, len(students))
		for _, s := range students {
			out = append(out, studentResponse{ID: s.ID, FullName: s.FullName, Email: s.Email, Whatsapp: s.Whatsapp, Country: s.Country})
		}
		writeJSON(w, http.StatusOK, map[string]any{"students": out})
	case http.MethodPost:
		var req createStudentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.FullName = strings.TrimSpace(req.FullName)
		if req.FullName == "" {
			http.Error(w, "full_name is required", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		req.Whatsapp = strings.TrimSpace(req.Whatsapp)
		req.Country = strings.TrimSpace(req.Country)

		ctx := r.Context()
		tx, err := h.repo.Begin(ctx)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		defer func() { _ = tx.Rollback(ctx) }()

		id, err := h.repo.CreateStudent(ctx, tx, &model.Student{
			SchoolID: school,
			FullName: req.FullName,
			Email:    req.Email,
			Whatsapp: req.Whatsapp,
			Country:  req.Country,
		})
		if err != nil {
			http.Error(w, "failed to create student", http.StatusInternalServerError)
			return
		}

		if err := h.insertStudentUpserted(ctx, tx, id, school, req.FullName, req.Email); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}

		if err := tx.Commit(ctx); err != nil {
			http.Error(w, "failed to commit", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, studentResponse{ID: id, FullName: req.FullName, Email: req.Email, Whatsapp: req.Whatsapp, Country: req.Country})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DirectoryHandler) insertStudentUpserted(ctx context.Context, tx pgx.Tx, id, school, fullName, email string) error {
	payload, err := json.Marshal(map[string]any{
		"student_id": id,
		"school_id":  school,
		"full_name":  fullName,
		"email":      email,
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, eventbox.Event{
		AggregateType: "student",
		AggregateID:   id,
		EventType:     "directory.student.upserted.v1",
		Payload:       payload,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
