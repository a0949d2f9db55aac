package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// StudentSearcher debounces free-text student search. Typing schedules a
// query after the debounce window; scheduling a new query cancels the
// in-flight request of the superseded one, and results arriving for an old
// query are discarded.
type StudentSearcher struct {
	api       API
	debounce  time.Duration
	pageSize  int
	onResults func(query string, students []Student)

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

func NewStudentSearcher(api API, debounce time.Duration, pageSize int, onResults func(query string, students []Student)) *StudentSearcher {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &StudentSearcher{
		api:       api,
		debounce:  debounce,
		pageSize:  pageSize,
		onResults: onResults,
	}
}

// SetQuery registers the latest input. The search fires only after the
// debounce window passes without another call.
func (s *StudentSearcher) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	gen := s.gen

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(gen, query)
	})
}

func (s *StudentSearcher) run(gen uint64, query string) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	students, err := s.api.SearchStudents(ctx, query, s.pageSize, 0)

	s.mu.Lock()
	stale := gen != s.gen
	if !stale {
		// Still the current search; release ownership of the cancel func.
		s.cancel = nil
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		students = nil
	}
	if stale {
		return
	}
	if s.onResults != nil {
		s.onResults(query, students)
	}
}

// Close cancels any pending or in-flight search.
func (s *StudentSearcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
