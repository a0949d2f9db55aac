package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/libs/timeutil"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/reminders"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/storage"
)

// trialStore is the slice of the schedule repository trial creation needs.
type trialStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetTeacher(ctx context.Context, teacherID string) (model.Teacher, bool, error)
	GetStudent(ctx context.Context, studentID string) (model.Student, bool, error)
	GetCourse(ctx context.Context, courseID string) (model.Course, bool, error)
	ListAvailability(ctx context.Context, teacherID string) (map[int][]model.AvailabilityWindow, error)
	LockIdempotencyKey(ctx context.Context, tx pgx.Tx, teacherID, key string) (storage.IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, tx pgx.Tx, teacherID, key, trialID string, statusCode int, response []byte) error
	LockSlot(ctx context.Context, tx pgx.Tx, teacherID string, date time.Time) error
	CountOverlapping(ctx context.Context, tx pgx.Tx, teacherID string, date time.Time, startMinute, endMinute int) (int, error)
	CreateTrial(ctx context.Context, tx pgx.Tx, t *model.Trial) (string, error)
}

type TrialHandler struct {
	repo            trialStore
	outboxRepo      *eventbox.OutboxRepository
	reminderRepo    *reminders.Repository
	logger          *slog.Logger
	reminderOffsets []time.Duration
}

func NewTrialHandler(repo trialStore, outboxRepo *eventbox.OutboxRepository, reminderRepo *reminders.Repository, logger *slog.Logger, reminderOffsets []time.Duration) *TrialHandler {
	if len(reminderOffsets) == 0 {
		reminderOffsets = []time.Duration{24 * time.Hour, 1 * time.Hour}
	}
	return &TrialHandler{
		repo:            repo,
		outboxRepo:      outboxRepo,
		reminderRepo:    reminderRepo,
		logger:          logger,
		reminderOffsets: reminderOffsets,
	}
}

type newStudentPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Whatsapp string `json:"whatsapp"`
	Country  string `json:"country"`
}

type createTrialRequest struct {
	TeacherID  string             `json:"teacher_id"`
	CourseID   string             `json:"course_id"`
	TrialDate  string             `json:"trial_date"`
	StartTime  string             `json:"start_time"`
	EndTime    string             `json:"end_time"`
	Notes      string             `json:"notes"`
	StudentID  string             `json:"student_id"`
	NewStudent *newStudentPayload `json:"new_student"`
}

type createTrialResponse struct {
	TrialID string `json:"trial_id"`
}

// Create books a trial class into an open slot. Rejections:
//   - 400 for malformed input, an unresolved student, or an unknown course
//   - 404 when the teacher is not known to the schedule cache
//   - 422 when the requested interval falls outside the teacher's declared
//     availability for that weekday
//   - 409 when it overlaps an existing class or trial
//
// Duplicate submissions carrying the same Idempotency-Key replay the stored
// outcome instead of creating a second row.
func (h *TrialHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.TeacherID == "" || req.CourseID == "" {
		http.Error(w, "teacher_id and course_id are required", http.StatusBadRequest)
		return
	}

	newStudentName := ""
	if req.NewStudent != nil {
		newStudentName = strings.TrimSpace(req.NewStudent.Name)
	}
	if req.StudentID == "" && newStudentName == "" {
		http.Error(w, "student_id or new_student.name is required", http.StatusBadRequest)
		return
	}
	if req.StudentID != "" && newStudentName != "" {
		http.Error(w, "student_id and new_student are mutually exclusive", http.StatusBadRequest)
		return
	}

	trialDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.TrialDate), time.UTC)
	if err != nil {
		http.Error(w, "invalid trial_date", http.StatusBadRequest)
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

	trial := &model.Trial{
		TeacherID:   req.TeacherID,
		CourseID:    req.CourseID,
		StudentID:   req.StudentID,
		StudentName: newStudentName,
		Date:        trialDate,
		StartMinute: startMin,
		EndMinute:   endMin,
		Status:      "pending",
		Notes:       req.Notes,
	}
	if req.NewStudent != nil {
		trial.StudentEmail = strings.TrimSpace(req.NewStudent.Email)
		trial.StudentWhatsapp = strings.TrimSpace(req.NewStudent.Whatsapp)
		trial.StudentCountry = strings.TrimSpace(req.NewStudent.Country)
	}

	ctx := r.Context()
	if _, found, err := h.repo.GetTeacher(ctx, trial.TeacherID); err != nil {
		http.Error(w, "failed to resolve teacher", http.StatusInternalServerError)
		return
	} else if !found {
		http.Error(w, "teacher not found", http.StatusNotFound)
		return
	}
	if _, found, err := h.repo.GetCourse(ctx, trial.CourseID); err != nil {
		http.Error(w, "failed to resolve course", http.StatusInternalServerError)
		return
	} else if !found {
		http.Error(w, "course not found", http.StatusBadRequest)
		return
	}
	if trial.StudentID != "" {
		student, found, err := h.repo.GetStudent(ctx, trial.StudentID)
		if err != nil {
			http.Error(w, "failed to resolve student", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "student not found", http.StatusBadRequest)
			return
		}
		trial.StudentName = student.FullName
		trial.StudentEmail = student.Email
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, trial.TeacherID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			if len(rec.ResponsePayload) > 0 {
				_, _ = w.Write(rec.ResponsePayload)
				return
			}
			_ = json.NewEncoder(w).Encode(createTrialResponse{TrialID: rec.TrialID})
			return
		}
	}

	weekday := int(trialDate.Weekday()) + 1
	within, err := h.withinAvailability(ctx, trial.TeacherID, weekday, startMin, endMin)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}
	if !within {
		h.rejectTrial(ctx, w, tx, trial.TeacherID, idempotencyKey, http.StatusUnprocessableEntity, "requested time is outside teacher availability")
		return
	}

	if err := h.repo.LockSlot(ctx, tx, trial.TeacherID, trialDate); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	overlaps, err := h.repo.CountOverlapping(ctx, tx, trial.TeacherID, trialDate, startMin, endMin)
	if err != nil {
		http.Error(w, "failed to check overlaps", http.StatusInternalServerError)
		return
	}
	if overlaps > 0 {
		h.rejectTrial(ctx, w, tx, trial.TeacherID, idempotencyKey, http.StatusConflict, "time slot already booked")
		return
	}

	id, err := h.repo.CreateTrial(ctx, tx, trial)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create trial", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"trial_id":         id,
		"teacher_id":       trial.TeacherID,
		"course_id":        trial.CourseID,
		"student_id":       trial.StudentID,
		"student_name":     trial.StudentName,
		"student_email":    trial.StudentEmail,
		"student_whatsapp": trial.StudentWhatsapp,
		"student_country":  trial.StudentCountry,
		"trial_date":       trialDate.Format("2006-01-02"),
		"start_time":       timeutil.FormatMinutes(startMin),
		"end_time":         timeutil.FormatMinutes(endMin),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, eventbox.Event{
		AggregateType: "trial",
		AggregateID:   id,
		EventType:     "schedule.trial.created.v1",
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	h.enqueueReminders(ctx, tx, id, trial)

	respBody, err := json.Marshal(createTrialResponse{TrialID: id})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, trial.TeacherID, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

// withinAvailability requires the whole [start, end) interval to sit inside a
// single declared window; a booking cannot straddle two windows.
func (h *TrialHandler) withinAvailability(ctx context.Context, teacherID string, weekday, startMin, endMin int) (bool, error) {
	byDay, err := h.repo.ListAvailability(ctx, teacherID)
	if err != nil {
		return false, err
	}
	for _, win := range byDay[weekday] {
		if win.StartMinute <= startMin && endMin <= win.EndMinute {
			return true, nil
		}
	}
	return false, nil
}

func (h *TrialHandler) enqueueReminders(ctx context.Context, tx pgx.Tx, trialID string, trial *model.Trial) {
	startAt := trial.Date.Add(time.Duration(trial.StartMinute) * time.Minute)
	now := time.Now().UTC()
	for _, offset := range h.reminderOffsets {
		remindAt := startAt.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		h.enqueueReminder(ctx, tx, trialID, trial, remindAt, "email", trial.StudentEmail)
		h.enqueueReminder(ctx, tx, trialID, trial, remindAt, "whatsapp", trial.StudentWhatsapp)
	}
}

func (h *TrialHandler) enqueueReminder(ctx context.Context, tx pgx.Tx, trialID string, trial *model.Trial, remindAt time.Time, channel, recipient string) {
	if strings.TrimSpace(recipient) == "" {
		return
	}
	job := reminders.Job{
		IdempotencyKey: trialID + ":" + channel + ":" + remindAt.UTC().Format(time.RFC3339),
		TrialID:        trialID,
		TeacherID:      trial.TeacherID,
		Channel:        channel,
		Recipient:      recipient,
		RemindAt:       remindAt,
		TemplateData: map[string]any{
			"student_name": trial.StudentName,
			"course_id":    trial.CourseID,
			"trial_date":   trial.Date.Format("2006-01-02"),
			"start_time":   timeutil.FormatMinutes(trial.StartMinute),
		},
	}
	if err := h.reminderRepo.Insert(ctx, tx, job); err != nil {
		h.logger.Error("failed to enqueue reminder", "err", err, "trial_id", trialID)
	}
}

// rejectTrial writes the rejection response. When the request carried an
// Idempotency-Key the outcome is persisted and committed first, so a retry
// with the same key replays the same status and body. The caller always gets
// the real status code; storing the outcome never swallows the response.
func (h *TrialHandler) rejectTrial(ctx context.Context, w http.ResponseWriter, tx pgx.Tx, teacherID, key string, statusCode int, msg string) {
	body, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		http.Error(w, msg, statusCode)
		return
	}
	if key != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, teacherID, key, "", statusCode, body); err != nil {
			h.logger.Error("failed to finalize idempotency (rejection)", "err", err)
		} else if err := tx.Commit(ctx); err != nil {
			h.logger.Error("failed to commit rejection outcome", "err", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}
