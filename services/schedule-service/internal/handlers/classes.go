package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/libs/timeutil"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/storage"
)

type ClassHandler struct {
	repo       *storage.ScheduleRepository
	outboxRepo *eventbox.OutboxRepository
	logger     *slog.Logger
}

func NewClassHandler(repo *storage.ScheduleRepository, outboxRepo *eventbox.OutboxRepository, logger *slog.Logger) *ClassHandler {
	return &ClassHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type createClassRequest struct {
	TeacherID string `json:"teacher_id"`
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	ClassDate string `json:"class_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type createClassResponse struct {
	ClassID string `json:"class_id"`
}

// Create books a package class. The same guardrails apply as for trials: the
// interval must fit a declared availability window and must not overlap any
// existing booking on that teacher-day.
func (h *ClassHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.TeacherID == "" || req.StudentID == "" || req.CourseID == "" {
		http.Error(w, "teacher_id, student_id, and course_id are required", http.StatusBadRequest)
		return
	}

	classDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.ClassDate), time.UTC)
	if err != nil {
		http.Error(w, "invalid class_date", http.StatusBadRequest)
		return
	}
	startMin, ok := timeutil.Minutes(req.StartTime)
	if !ok {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	endMin, ok := timeutil.Minutes(req.EndTime)
	if !ok {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}
	if endMin <= startMin {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	weekday := int(classDate.Weekday()) + 1
	byDay, err := h.repo.ListAvailability(ctx, req.TeacherID)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}
	within := false
	for _, win := range byDay[weekday] {
		if win.StartMinute <= startMin && endMin <= win.EndMinute {
			within = true
			break
		}
	}
	if !within {
		http.Error(w, "requested time is outside teacher availability", http.StatusUnprocessableEntity)
		return
	}

	if err := h.repo.LockSlot(ctx, tx, req.TeacherID, classDate); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	overlaps, err := h.repo.CountOverlapping(ctx, tx, req.TeacherID, classDate, startMin, endMin)
	if err != nil {
		http.Error(w, "failed to check overlaps", http.StatusInternalServerError)
		return
	}
	if overlaps > 0 {
		http.Error(w, "time slot already booked", http.StatusConflict)
		return
	}

	class := &model.Class{
		TeacherID:   req.TeacherID,
		StudentID:   req.StudentID,
		CourseID:    req.CourseID,
		Date:        classDate,
		StartMinute: startMin,
		EndMinute:   endMin,
		Status:      "scheduled",
	}
	id, err := h.repo.CreateClass(ctx, tx, class)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create class", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"class_id":   id,
		"teacher_id": class.TeacherID,
		"student_id": class.StudentID,
		"course_id":  class.CourseID,
		"class_date": classDate.Format("2006-01-02"),
		"start_time": timeutil.FormatMinutes(startMin),
		"end_time":   timeutil.FormatMinutes(endMin),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, eventbox.Event{
		AggregateType: "class",
		AggregateID:   id,
		EventType:     "schedule.class.created.v1",
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	body, _ := json.Marshal(createClassResponse{ClassID: id})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}
