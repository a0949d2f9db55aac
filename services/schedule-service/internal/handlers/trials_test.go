package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/storage"
)

// fakeTrialStore backs trial-creation tests without Postgres. The fake tx
// only records commits; every data operation goes through the store.
type fakeTrialStore struct {
	teachers     map[string]model.Teacher
	students     map[string]model.Student
	courses      map[string]model.Course
	availability map[int][]model.AvailabilityWindow
	overlaps     int

	idem          map[string]storage.IdempotencyRecord
	finalized     map[string]storage.IdempotencyRecord
	overlapChecks int
	committed     bool
}

func newFakeTrialStore() *fakeTrialStore {
	return &fakeTrialStore{
		teachers: map[string]model.Teacher{"t1": {ID: "t1", Name: "Maria", Active: true}},
		students: map[string]model.Student{"s1": {ID: "s1", FullName: "Omar", Email: "omar@example.com"}},
		courses:  map[string]model.Course{"c1": {ID: "c1", Name: "English A1", DurationMinutes: 60}},
		availability: map[int][]model.AvailabilityWindow{
			// Sunday 09:00-11:00.
			1: {{TeacherID: "t1", Weekday: 1, StartMinute: 540, EndMinute: 660}},
		},
		idem:      map[string]storage.IdempotencyRecord{},
		finalized: map[string]storage.IdempotencyRecord{},
	}
}

type fakeTx struct {
	pgx.Tx
	store *fakeTrialStore
}

func (t fakeTx) Commit(ctx context.Context) error {
	t.store.committed = true
	return nil
}

func (t fakeTx) Rollback(ctx context.Context) error { return nil }

func (s *fakeTrialStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return fakeTx{store: s}, nil
}

func (s *fakeTrialStore) GetTeacher(ctx context.Context, teacherID string) (model.Teacher, bool, error) {
	t, ok := s.teachers[teacherID]
	return t, ok, nil
}

func (s *fakeTrialStore) GetStudent(ctx context.Context, studentID string) (model.Student, bool, error) {
	st, ok := s.students[studentID]
	return st, ok, nil
}

func (s *fakeTrialStore) GetCourse(ctx context.Context, courseID string) (model.Course, bool, error) {
	c, ok := s.courses[courseID]
	return c, ok, nil
}

func (s *fakeTrialStore) ListAvailability(ctx context.Context, teacherID string) (map[int][]model.AvailabilityWindow, error) {
	return s.availability, nil
}

func (s *fakeTrialStore) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, teacherID, key string) (storage.IdempotencyRecord, bool, error) {
	if rec, ok := s.idem[key]; ok {
		return rec, true, nil
	}
	return storage.IdempotencyRecord{TeacherID: teacherID, IdempotencyKey: key}, false, nil
}

func (s *fakeTrialStore) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, teacherID, key, trialID string, statusCode int, response []byte) error {
	s.finalized[key] = storage.IdempotencyRecord{
		TeacherID:       teacherID,
		IdempotencyKey:  key,
		TrialID:         trialID,
		StatusCode:      statusCode,
		ResponsePayload: response,
	}
	return nil
}

func (s *fakeTrialStore) LockSlot(ctx context.Context, tx pgx.Tx, teacherID string, date time.Time) error {
	return nil
}

func (s *fakeTrialStore) CountOverlapping(ctx context.Context, tx pgx.Tx, teacherID string, date time.Time, startMinute, endMinute int) (int, error) {
	s.overlapChecks++
	return s.overlaps, nil
}

func (s *fakeTrialStore) CreateTrial(ctx context.Context, tx pgx.Tx, t *model.Trial) (string, error) {
	return "trial-new", nil
}

func postTrialWith(t *testing.T, store *fakeTrialStore, body, idempotencyKey string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewTrialHandler(store, nil, nil, logger, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/trials", strings.NewReader(body))
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

// 2026-09-06 is a Sunday inside the fake store's 09:00-11:00 window.
const validTrialBody = `{"teacher_id":"t1","course_id":"c1","trial_date":"2026-09-06","start_time":"09:30","end_time":"10:30","student_id":"s1"}`

func postTrial(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewTrialHandler(nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/trials", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func TestCreateTrialRejectsWrongMethod(t *testing.T) {
	h := NewTrialHandler(nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule/trials", nil)
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCreateTrialRejectsMalformedBody(t *testing.T) {
	if rec := postTrial(t, "{not json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateTrialRequiresStudentResolution(t *testing.T) {
	rec := postTrial(t, `{"teacher_id":"t1","course_id":"c1","trial_date":"2026-09-06","start_time":"09:30","end_time":"10:30"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without student, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "student") {
		t.Fatalf("expected student error, got %q", rec.Body.String())
	}
}

func TestCreateTrialRejectsBothStudentPaths(t *testing.T) {
	rec := postTrial(t, `{"teacher_id":"t1","course_id":"c1","trial_date":"2026-09-06","start_time":"09:30","end_time":"10:30","student_id":"s1","new_student":{"name":"Lena"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mutually exclusive student fields, got %d", rec.Code)
	}
}

func TestCreateTrialRejectsInvertedInterval(t *testing.T) {
	rec := postTrial(t, `{"teacher_id":"t1","course_id":"c1","trial_date":"2026-09-06","start_time":"10:30","end_time":"10:30","student_id":"s1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero-length interval, got %d", rec.Code)
	}
}

func TestCreateTrialRejectsMalformedTime(t *testing.T) {
	rec := postTrial(t, `{"teacher_id":"t1","course_id":"c1","trial_date":"2026-09-06","start_time":"9h30","end_time":"10:30","student_id":"s1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed start_time, got %d", rec.Code)
	}
}

func TestCreateTrialUnknownTeacherNotFound(t *testing.T) {
	body := strings.Replace(validTrialBody, `"t1"`, `"t9"`, 1)
	rec := postTrialWith(t, newFakeTrialStore(), body, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown teacher, got %d", rec.Code)
	}
}

func TestCreateTrialUnknownCourseRejected(t *testing.T) {
	body := strings.Replace(validTrialBody, `"c1"`, `"c9"`, 1)
	rec := postTrialWith(t, newFakeTrialStore(), body, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown course, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "course") {
		t.Fatalf("expected course error, got %q", rec.Body.String())
	}
}

func TestCreateTrialOutsideAvailabilityReturns422(t *testing.T) {
	body := strings.Replace(validTrialBody, `"start_time":"09:30","end_time":"10:30"`, `"start_time":"12:00","end_time":"13:00"`, 1)
	store := newFakeTrialStore()

	rec := postTrialWith(t, store, body, "key-1")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 outside availability, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "availability") {
		t.Fatalf("expected availability error in body, got %q", rec.Body.String())
	}
	stored, ok := store.finalized["key-1"]
	if !ok || stored.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 persisted for replay, got %+v", stored)
	}
	if !store.committed {
		t.Fatal("expected the rejection outcome to be committed")
	}
}

func TestCreateTrialOverlapReturns409(t *testing.T) {
	store := newFakeTrialStore()
	store.overlaps = 1

	rec := postTrialWith(t, store, validTrialBody, "key-2")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for overlapping slot, got %d", rec.Code)
	}
	stored, ok := store.finalized["key-2"]
	if !ok || stored.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 persisted for replay, got %+v", stored)
	}
}

func TestCreateTrialOverlapWithoutKeyStillConflicts(t *testing.T) {
	store := newFakeTrialStore()
	store.overlaps = 1

	rec := postTrialWith(t, store, validTrialBody, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without idempotency key, got %d", rec.Code)
	}
	if len(store.finalized) != 0 {
		t.Fatalf("expected no idempotency record without a key, got %+v", store.finalized)
	}
}

func TestCreateTrialReplaysStoredRejection(t *testing.T) {
	store := newFakeTrialStore()
	store.idem["key-3"] = storage.IdempotencyRecord{
		TeacherID:       "t1",
		IdempotencyKey:  "key-3",
		StatusCode:      http.StatusUnprocessableEntity,
		ResponsePayload: []byte(`{"error":"requested time is outside teacher availability"}`),
	}

	rec := postTrialWith(t, store, validTrialBody, "key-3")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected stored 422 replayed, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "availability") {
		t.Fatalf("expected stored body replayed, got %q", rec.Body.String())
	}
	if store.overlapChecks != 0 {
		t.Fatalf("replay must not re-run overlap checks, ran %d", store.overlapChecks)
	}
}

func TestCreateTrialReplaysStoredSuccess(t *testing.T) {
	store := newFakeTrialStore()
	store.idem["key-4"] = storage.IdempotencyRecord{
		TeacherID:       "t1",
		IdempotencyKey:  "key-4",
		TrialID:         "trial-1",
		StatusCode:      http.StatusCreated,
		ResponsePayload: []byte(`{"trial_id":"trial-1"}`),
	}

	rec := postTrialWith(t, store, validTrialBody, "key-4")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected stored 201 replayed, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "trial-1") {
		t.Fatalf("expected stored trial id, got %q", rec.Body.String())
	}
	if store.overlapChecks != 0 {
		t.Fatalf("replay must not re-run overlap checks, ran %d", store.overlapChecks)
	}
}

func TestDayIndex(t *testing.T) {
	weekStart := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC) // a Sunday
	if got := dayIndex(weekStart, weekStart); got != 0 {
		t.Fatalf("expected 0 for week start, got %d", got)
	}
	if got := dayIndex(weekStart, weekStart.AddDate(0, 0, 6)); got != 6 {
		t.Fatalf("expected 6 for Saturday, got %d", got)
	}
	if got := dayIndex(weekStart, weekStart.AddDate(0, 0, 7)); got != -1 {
		t.Fatalf("expected -1 past week end, got %d", got)
	}
	if got := dayIndex(weekStart, weekStart.AddDate(0, 0, -1)); got != -1 {
		t.Fatalf("expected -1 before week start, got %d", got)
	}
}
