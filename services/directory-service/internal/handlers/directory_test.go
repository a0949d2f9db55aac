package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testSchoolID = "7f4f2a36-9f0f-4f2a-8d1d-2a6a9a8e5b01"

func doRequest(t *testing.T, handler http.HandlerFunc, method, target, school, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if school != "" {
		req.Header.Set("X-School-Id", school)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandlersRejectMissingSchoolHeader(t *testing.T) {
	h := NewDirectoryHandler(nil, nil, nil)
	for _, fn := range []http.HandlerFunc{h.Profile, h.Teachers, h.Courses, h.Students} {
		rec := doRequest(t, fn, http.MethodGet, "/", "", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 without school header, got %d", rec.Code)
		}
	}
}

func TestHandlersRejectMalformedSchoolID(t *testing.T) {
	h := NewDirectoryHandler(nil, nil, nil)
	rec := doRequest(t, h.Teachers, http.MethodGet, "/", "not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed school id, got %d", rec.Code)
	}
}

func TestCreateTeacherRequiresName(t *testing.T) {
	h := NewDirectoryHandler(nil, nil, nil)
	rec := doRequest(t, h.Teachers, http.MethodPost, "/", testSchoolID, `{"name":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d", rec.Code)
	}
}

func TestCreateTeacherRejectsMalformedBody(t *testing.T) {
	h := NewDirectoryHandler(nil, nil, nil)
	rec := doRequest(t, h.Teachers, http.MethodPost, "/", testSchoolID, `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestCreateStudentRequiresFullName(t *testing.T) {
	h := NewDirectoryHandler(nil, nil, nil)
	rec := doRequest(t, h.Students, http.MethodPost, "/", testSchoolID, `{"email":"a@b.c"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing full_name, got %d", rec.Code)
	}
}

func TestUpdateProfileRejectsInvalidBounds(t *testing.T) {
	h := NewDirectoryHandler(nil, nil, nil)
	cases := []string{
		`{"day_start_minute":600,"day_end_minute":480,"slot_step_minutes":30}`,
		`{"day_start_minute":-10,"day_end_minute":480,"slot_step_minutes":30}`,
		`{"day_start_minute":480,"day_end_minute":1320,"slot_step_minutes":0}`,
		`{"day_start_minute":480,"day_end_minute":2000,"slot_step_minutes":30}`,
	}
	for _, body := range cases {
		rec := doRequest(t, h.Profile, http.MethodPut, "/", testSchoolID, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for body %s, got %d", body, rec.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewDirectoryHandler(nil, nil, nil)
	rec := doRequest(t, h.Teachers, http.MethodDelete, "/", testSchoolID, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	rec = doRequest(t, h.Profile, http.MethodPost, "/", testSchoolID, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestQueryIntDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=abc&offset=", nil)
	if got := queryInt(req, "limit", 20); got != 20 {
		t.Fatalf("expected default on parse error, got %d", got)
	}
	if got := queryInt(req, "offset", 0); got != 0 {
		t.Fatalf("expected default on empty value, got %d", got)
	}
	req = httptest.NewRequest(http.MethodGet, "/?limit=5", nil)
	if got := queryInt(req, "limit", 20); got != 5 {
		t.Fatalf("expected parsed value, got %d", got)
	}
}
