package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func putAvailability(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewAvailabilityHandler(nil, nil, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/schedule/availability", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Put(rec, req)
	return rec
}

func TestPutAvailabilityRejectsWeekdayOutOfRange(t *testing.T) {
	rec := putAvailability(t, `{"teacher_id":"t1","weekday":8,"windows":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weekday 8, got %d", rec.Code)
	}
	rec = putAvailability(t, `{"teacher_id":"t1","weekday":0,"windows":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weekday 0, got %d", rec.Code)
	}
}

func TestPutAvailabilityRejectsOverlappingWindows(t *testing.T) {
	rec := putAvailability(t, `{"teacher_id":"t1","weekday":1,"windows":[{"start_time":"09:00","end_time":"11:00"},{"start_time":"10:30","end_time":"12:00"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overlapping windows, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "overlap") {
		t.Fatalf("expected overlap error, got %q", rec.Body.String())
	}
}

func TestParseWindowsAllowsTouchingBoundaries(t *testing.T) {
	windows, errMsg := parseWindows("t1", 1, []windowPayload{
		{StartTime: "11:00", EndTime: "12:00"},
		{StartTime: "09:00", EndTime: "11:00"},
	})
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].StartMinute != 9*60 {
		t.Fatalf("expected windows sorted by start, got %d first", windows[0].StartMinute)
	}
}

func TestPutAvailabilityRejectsInvertedWindow(t *testing.T) {
	rec := putAvailability(t, `{"teacher_id":"t1","weekday":1,"windows":[{"start_time":"11:00","end_time":"09:00"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted window, got %d", rec.Code)
	}
}
