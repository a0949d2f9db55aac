package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/schedule"
)

// Selection is the (teacher, week) pair the scheduling screen is looking at.
// It is explicit state, not ambient: every navigation produces a new value.
type Selection struct {
	TeacherID string
	WeekStart time.Time
}

// SnapshotLoader owns the current weekly snapshot. Every fetch carries a
// monotonic generation; a response is applied only while its generation is
// still the latest, so a slow response for a superseded selection can never
// overwrite a newer one.
type SnapshotLoader struct {
	api API

	mu       sync.Mutex
	sel      Selection
	gen      uint64
	snapshot *schedule.WeekSnapshot
	err      error
}

func NewSnapshotLoader(api API) *SnapshotLoader {
	return &SnapshotLoader{api: api}
}

// Select points the loader at a new (teacher, week) pair and invalidates any
// fetch still in flight for the previous one.
func (l *SnapshotLoader) Select(teacherID string, weekStart time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sel = Selection{TeacherID: teacherID, WeekStart: weekStart}
	l.gen++
}

// Load fetches the snapshot for the current selection. The whole snapshot is
// replaced; there is no partial refresh.
func (l *SnapshotLoader) Load(ctx context.Context) error {
	l.mu.Lock()
	sel := l.sel
	gen := l.gen
	l.mu.Unlock()

	if sel.TeacherID == "" {
		return &LoadError{Op: "weekly", Err: ErrNoSelection}
	}

	snapshot, err := l.api.FetchWeekly(ctx, sel.TeacherID, sel.WeekStart)
	return l.apply(gen, snapshot, err)
}

// Refetch reloads the current selection; used after a successful booking.
func (l *SnapshotLoader) Refetch(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	l.mu.Unlock()
	return l.Load(ctx)
}

// apply installs a fetch result unless a newer selection has been made since
// the fetch was issued. Stale results are silently dropped.
func (l *SnapshotLoader) apply(gen uint64, snapshot *schedule.WeekSnapshot, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return nil
	}
	if err != nil {
		l.snapshot = nil
		if _, ok := err.(*LoadError); !ok {
			err = &LoadError{Op: "weekly", Err: err}
		}
		l.err = err
		return err
	}
	l.snapshot = snapshot
	l.err = nil
	return nil
}

// Current returns the installed snapshot, or the error from the last applied
// fetch. A nil snapshot with nil error means nothing has loaded yet.
func (l *SnapshotLoader) Current() (*schedule.WeekSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot, l.err
}

// Selection returns the pair the loader currently points at.
func (l *SnapshotLoader) Selection() Selection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sel
}
