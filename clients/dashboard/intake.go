package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nayeem-islam/linguadesk/libs/timeutil"
)

type FormState string

const (
	FormClosed     FormState = "closed"
	FormOpen       FormState = "open"
	FormSubmitting FormState = "submitting"
)

const defaultTrialMinutes = 60

// TrialForm drives the booking intake flow: it opens from an available slot
// with a prefilled hour-long interval, collects a student (existing or new,
// never both) and a course, validates before touching the network, and on
// success closes and triggers exactly one snapshot refetch. On failure the
// form stays open with everything retained so the user can retry.
type TrialForm struct {
	api    API
	loader *SnapshotLoader

	mu             sync.Mutex
	state          FormState
	teacherID      string
	trialDate      time.Time
	startTime      string
	endTime        string
	courseID       string
	notes          string
	studentID      string
	newStudent     *NewStudent
	idempotencyKey string
	lastErr        error
}

func NewTrialForm(api API, loader *SnapshotLoader) *TrialForm {
	return &TrialForm{
		api:    api,
		loader: loader,
		state:  FormClosed,
	}
}

// Open enters the flow from an available slot. The end time prefills to one
// hour after the slot start; pure clock arithmetic, no overlap re-check —
// the classifier already vouched for the cell.
func (f *TrialForm) Open(teacherID string, trialDate time.Time, startTime string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	endTime := startTime
	if mins, ok := timeutil.Minutes(startTime); ok {
		endTime = timeutil.FormatMinutes(mins + defaultTrialMinutes)
	}

	f.state = FormOpen
	f.teacherID = teacherID
	f.trialDate = trialDate
	f.startTime = startTime
	f.endTime = endTime
	f.courseID = ""
	f.notes = ""
	f.studentID = ""
	f.newStudent = nil
	f.idempotencyKey = ""
	f.lastErr = nil
}

// SelectStudent picks an existing student and clears any inline profile.
func (f *TrialForm) SelectStudent(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.studentID = strings.TrimSpace(id)
	f.newStudent = nil
}

// EnterNewStudent switches to the inline-profile path and clears any
// existing-student pick.
func (f *TrialForm) EnterNewStudent(s NewStudent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newStudent = &s
	f.studentID = ""
}

func (f *TrialForm) SelectCourse(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courseID = strings.TrimSpace(id)
}

func (f *TrialForm) SetNotes(notes string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = notes
}

func (f *TrialForm) SetTimes(start, end string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startTime = start
	f.endTime = end
}

func (f *TrialForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError reports the inline error from the most recent failed submit.
func (f *TrialForm) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Cancel abandons the flow without submitting.
func (f *TrialForm) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FormClosed
	f.lastErr = nil
}

// Submit validates and sends the trial request. A ValidationError returns
// before any network call. A SubmissionError keeps the form open with all
// entered state retained, and the retry reuses the same idempotency key so
// a double-submit cannot create duplicate trials.
func (f *TrialForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != FormOpen {
		f.mu.Unlock()
		return &ValidationError{Field: "state", Reason: "form is not open"}
	}

	if err := f.validateLocked(); err != nil {
		f.lastErr = err
		f.mu.Unlock()
		return err
	}

	if f.idempotencyKey == "" {
		f.idempotencyKey = uuid.NewString()
	}
	req := TrialRequest{
		TeacherID: f.teacherID,
		CourseID:  f.courseID,
		TrialDate: f.trialDate.Format("2006-01-02"),
		StartTime: f.startTime,
		EndTime:   f.endTime,
		Notes:     f.notes,
		StudentID: f.studentID,
	}
	if f.newStudent != nil {
		ns := *f.newStudent
		req.NewStudent = &ns
	}
	key := f.idempotencyKey
	f.state = FormSubmitting
	f.mu.Unlock()

	_, err := f.api.CreateTrial(ctx, req, key)

	f.mu.Lock()
	if err != nil {
		f.state = FormOpen
		if _, ok := err.(*SubmissionError); !ok {
			err = &SubmissionError{Err: err}
		}
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	f.state = FormClosed
	f.lastErr = nil
	f.idempotencyKey = ""
	f.mu.Unlock()

	// The grid reflects the new booking only through a full snapshot
	// reload; there is no optimistic local insert.
	if f.loader != nil {
		return f.loader.Refetch(ctx)
	}
	return nil
}

func (f *TrialForm) validateLocked() error {
	hasExisting := f.studentID != ""
	hasNew := f.newStudent != nil && strings.TrimSpace(f.newStudent.Name) != ""
	if !hasExisting && !hasNew {
		return &ValidationError{Field: "student", Reason: "select an existing student or enter a name"}
	}
	if hasExisting && hasNew {
		return &ValidationError{Field: "student", Reason: "existing and new student are mutually exclusive"}
	}
	if f.courseID == "" {
		return &ValidationError{Field: "course", Reason: "a course must be selected"}
	}

	startMin, ok := timeutil.Minutes(f.startTime)
	if !ok {
		return &ValidationError{Field: "start_time", Reason: "malformed time"}
	}
	endMin, ok := timeutil.Minutes(f.endTime)
	if !ok {
		return &ValidationError{Field: "end_time", Reason: "malformed time"}
	}
	if endMin <= startMin {
		return &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	return nil
}
