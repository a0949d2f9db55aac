package dashboard

import (
	"testing"
	"time"
)

func TestDebounceDeliversOnlyLatestQuery(t *testing.T) {
	api := newFakeAPI()
	api.searchResults["ab"] = []Student{{ID: "student-1", FullName: "Abir Rahman"}}

	results := make(chan string, 4)
	searcher := NewStudentSearcher(api, 50*time.Millisecond, 10, func(query string, students []Student) {
		results <- query
	})
	defer searcher.Close()

	// Two keystrokes inside the debounce window: only "ab" should fire.
	searcher.SetQuery("a")
	time.Sleep(5 * time.Millisecond)
	searcher.SetQuery("ab")

	select {
	case got := <-results:
		if got != "ab" {
			t.Fatalf("expected results for %q, got %q", "ab", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for search results")
	}

	select {
	case got := <-results:
		t.Fatalf("unexpected extra delivery for %q", got)
	case <-time.After(100 * time.Millisecond):
	}

	api.mu.Lock()
	queries := append([]string(nil), api.searchQueries...)
	api.mu.Unlock()
	for _, q := range queries {
		if q == "a" {
			t.Fatal("superseded query should never reach the network")
		}
	}
}

func TestNewQueryCancelsInFlightSearch(t *testing.T) {
	api := newFakeAPI()
	block := make(chan struct{})
	api.searchBlock = block
	api.searchResults["new"] = []Student{{ID: "student-2", FullName: "Nadia Islam"}}

	results := make(chan string, 4)
	searcher := NewStudentSearcher(api, time.Millisecond, 10, func(query string, students []Student) {
		results <- query
	})
	defer searcher.Close()

	searcher.SetQuery("old")

	// Wait for the first search to be in flight, then supersede it.
	deadline := time.Now().Add(time.Second)
	for {
		api.mu.Lock()
		inFlight := api.searchCalls > 0
		api.mu.Unlock()
		if inFlight {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first search never started")
		}
		time.Sleep(time.Millisecond)
	}

	api.mu.Lock()
	api.searchBlock = nil
	api.mu.Unlock()
	searcher.SetQuery("new")
	close(block)

	select {
	case got := <-results:
		if got != "new" {
			t.Fatalf("expected results for %q, got %q", "new", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for search results")
	}

	select {
	case got := <-results:
		t.Fatalf("canceled search still delivered %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCompletedSearchReleasesCancel(t *testing.T) {
	api := newFakeAPI()
	api.searchResults["done"] = []Student{{ID: "student-3", FullName: "Rafi Ahmed"}}

	results := make(chan string, 1)
	searcher := NewStudentSearcher(api, time.Millisecond, 10, func(query string, _ []Student) {
		results <- query
	})
	defer searcher.Close()

	searcher.SetQuery("done")
	select {
	case <-results:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for search results")
	}

	searcher.mu.Lock()
	held := searcher.cancel != nil
	searcher.mu.Unlock()
	if held {
		t.Fatal("completed search should release its cancel func")
	}
}

func TestCloseStopsPendingSearch(t *testing.T) {
	api := newFakeAPI()
	fired := make(chan struct{}, 1)
	searcher := NewStudentSearcher(api, 10*time.Millisecond, 10, func(string, []Student) {
		fired <- struct{}{}
	})

	searcher.SetQuery("anything")
	searcher.Close()

	select {
	case <-fired:
		t.Fatal("closed searcher still delivered results")
	case <-time.After(100 * time.Millisecond):
	}
}
