package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/libs/schedule"
	"github.com/nayeem-islam/linguadesk/libs/timeutil"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/storage"
)

type AvailabilityHandler struct {
	repo       *storage.ScheduleRepository
	outboxRepo *eventbox.OutboxRepository
	logger     *slog.Logger
}

func NewAvailabilityHandler(repo *storage.ScheduleRepository, outboxRepo *eventbox.OutboxRepository, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type windowPayload struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type putAvailabilityRequest struct {
	TeacherID string          `json:"teacher_id"`
	Weekday   int             `json:"weekday"`
	Windows   []windowPayload `json:"windows"`
}

// parseWindows validates and normalizes one weekday's windows: well-formed
// clock strings, strictly positive length, and no pairwise overlap after
// sorting. Touching boundaries are allowed.
func parseWindows(teacherID string, weekday int, payload []windowPayload) ([]model.AvailabilityWindow, string) {
	windows := make([]model.AvailabilityWindow, 0, len(payload))
	for _, win := range payload {
		startMin, ok := timeutil.Minutes(win.StartTime)
		if !ok {
			return nil, "invalid start_time"
		}
		endMin, ok := timeutil.Minutes(win.EndTime)
		if !ok {
			return nil, "invalid end_time"
		}
		if endMin <= startMin {
			return nil, "end_time must be after start_time"
		}
		windows = append(windows, model.AvailabilityWindow{
			TeacherID:   teacherID,
			Weekday:     weekday,
			StartMinute: startMin,
			EndMinute:   endMin,
		})
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].StartMinute < windows[j].StartMinute })
	for i := 1; i < len(windows); i++ {
		if windows[i].StartMinute < windows[i-1].EndMinute {
			return nil, "windows must not overlap"
		}
	}
	return windows, ""
}

// Put replaces a teacher's declared windows for one weekday. An empty windows
// list clears the day.
func (h *AvailabilityHandler) Put(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req putAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	if req.TeacherID == "" {
		http.Error(w, "teacher_id is required", http.StatusBadRequest)
		return
	}
	if req.Weekday < 1 || req.Weekday > schedule.DaysPerWeek {
		http.Error(w, "weekday must be between 1 and 7", http.StatusBadRequest)
		return
	}

	windows, errMsg := parseWindows(req.TeacherID, req.Weekday, req.Windows)
	if errMsg != "" {
		http.Error(w, errMsg, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.ReplaceAvailability(ctx, tx, req.TeacherID, req.Weekday, windows); err != nil {
		http.Error(w, "failed to save availability", http.StatusInternalServerError)
		return
	}

	evtWindows := make([]map[string]string, 0, len(windows))
	for _, win := range windows {
		evtWindows = append(evtWindows, map[string]string{
			"start_time": timeutil.FormatMinutes(win.StartMinute),
			"end_time":   timeutil.FormatMinutes(win.EndMinute),
		})
	}
	evtPayload, err := json.Marshal(map[string]any{
		"teacher_id": req.TeacherID,
		"weekday":    req.Weekday,
		"windows":    evtWindows,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, eventbox.Event{
		AggregateType: "availability",
		AggregateID:   req.TeacherID,
		EventType:     "schedule.availability.updated.v1",
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
