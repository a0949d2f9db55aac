package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/schedule"
)

// fakeAPI counts calls and lets tests script responses per method.
type fakeAPI struct {
	mu sync.Mutex

	weeklyCalls  int
	searchCalls  int
	coursesCalls int
	trialCalls   int

	weeklySnapshot *schedule.WeekSnapshot
	weeklyErr      error

	searchResults map[string][]Student
	searchBlock   chan struct{}
	searchQueries []string

	trialID   string
	trialErr  error
	trialReqs []TrialRequest
	trialKeys []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		weeklySnapshot: &schedule.WeekSnapshot{},
		searchResults:  map[string][]Student{},
		trialID:        "trial-1",
	}
}

func (f *fakeAPI) FetchWeekly(ctx context.Context, teacherID string, weekStart time.Time) (*schedule.WeekSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeklyCalls++
	if f.weeklyErr != nil {
		return nil, f.weeklyErr
	}
	return f.weeklySnapshot, nil
}

func (f *fakeAPI) SearchStudents(ctx context.Context, query string, limit, offset int) ([]Student, error) {
	f.mu.Lock()
	f.searchCalls++
	f.searchQueries = append(f.searchQueries, query)
	block := f.searchBlock
	results := f.searchResults[query]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, nil
}

func (f *fakeAPI) ListCourses(ctx context.Context) ([]Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coursesCalls++
	return []Course{{ID: "course-1", Name: "English A1"}}, nil
}

func (f *fakeAPI) CreateTrial(ctx context.Context, req TrialRequest, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trialCalls++
	f.trialReqs = append(f.trialReqs, req)
	f.trialKeys = append(f.trialKeys, idempotencyKey)
	if f.trialErr != nil {
		return "", f.trialErr
	}
	return f.trialID, nil
}

func (f *fakeAPI) calls() (weekly, search, trials int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weeklyCalls, f.searchCalls, f.trialCalls
}
