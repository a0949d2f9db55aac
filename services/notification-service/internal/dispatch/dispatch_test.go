package dispatch

import (
	"strings"
	"testing"
)

func TestBuildReminderBody(t *testing.T) {
	body := buildReminderBody(map[string]any{
		"student_name": "Aisha",
		"trial_date":   "2026-09-07",
		"start_time":   "10:00",
	})
	if !strings.HasPrefix(body, "Hi Aisha!") {
		t.Fatalf("expected greeting prefix, got %q", body)
	}
	if !strings.Contains(body, "2026-09-07") || !strings.Contains(body, "10:00") {
		t.Fatalf("expected date and time in body, got %q", body)
	}
}

func TestBuildReminderBodyWithoutName(t *testing.T) {
	body := buildReminderBody(map[string]any{
		"trial_date": "2026-09-07",
		"start_time": "10:00",
	})
	if strings.HasPrefix(body, "Hi ") {
		t.Fatalf("expected no greeting without a name, got %q", body)
	}
}

func TestBuildConfirmationBody(t *testing.T) {
	body := buildConfirmationBody("Omar", "2026-09-08", "14:30")
	if !strings.Contains(body, "Omar") || !strings.Contains(body, "booked") {
		t.Fatalf("unexpected confirmation body %q", body)
	}
}
