package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/schedule"
)

func TestLoadInstallsSnapshot(t *testing.T) {
	api := newFakeAPI()
	api.weeklySnapshot = &schedule.WeekSnapshot{Teacher: schedule.TeacherRef{ID: "teacher-1"}}

	loader := NewSnapshotLoader(api)
	loader.Select("teacher-1", time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC))

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	snapshot, err := loader.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if snapshot == nil || snapshot.Teacher.ID != "teacher-1" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestLoadWrapsFetchFailure(t *testing.T) {
	api := newFakeAPI()
	api.weeklyErr = errors.New("gateway unreachable")

	loader := NewSnapshotLoader(api)
	loader.Select("teacher-1", time.Now())

	err := loader.Load(context.Background())
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if snapshot, _ := loader.Current(); snapshot != nil {
		t.Fatalf("expected no snapshot after failed load, got %+v", snapshot)
	}
}

func TestStaleResponseDropped(t *testing.T) {
	api := newFakeAPI()
	loader := NewSnapshotLoader(api)
	loader.Select("teacher-1", time.Now())

	loader.mu.Lock()
	oldGen := loader.gen
	loader.mu.Unlock()

	// A newer selection supersedes the fetch issued above.
	loader.Select("teacher-2", time.Now())

	stale := &schedule.WeekSnapshot{Teacher: schedule.TeacherRef{ID: "teacher-1"}}
	if err := loader.apply(oldGen, stale, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if snapshot, _ := loader.Current(); snapshot != nil {
		t.Fatalf("expected stale snapshot to be dropped, got %+v", snapshot)
	}

	// Errors from superseded fetches are dropped too, not surfaced.
	if err := loader.apply(oldGen, nil, errors.New("slow failure")); err != nil {
		t.Fatalf("expected stale error to be swallowed, got %v", err)
	}
	if _, err := loader.Current(); err != nil {
		t.Fatalf("expected no installed error, got %v", err)
	}
}

func TestRefetchReloadsSameSelection(t *testing.T) {
	api := newFakeAPI()
	loader := NewSnapshotLoader(api)
	loader.Select("teacher-1", time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC))

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := loader.Refetch(context.Background()); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if weekly, _, _ := api.calls(); weekly != 2 {
		t.Fatalf("expected two fetches, got %d", weekly)
	}
	if sel := loader.Selection(); sel.TeacherID != "teacher-1" {
		t.Fatalf("refetch must not change the selection, got %+v", sel)
	}
}

func TestLoadWithoutSelectionFails(t *testing.T) {
	loader := NewSnapshotLoader(newFakeAPI())
	err := loader.Load(context.Background())
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Fatal("no-selection error must not read as a cancellation")
	}
}
