package timeutil

import "testing"

func TestMinutes(t *testing.T) {
	m, ok := Minutes("09:30")
	if !ok || m != 570 {
		t.Fatalf("expected 570, got %d (ok=%v)", m, ok)
	}
	m, ok = Minutes("14:05:30")
	if !ok || m != 845 {
		t.Fatalf("expected seconds ignored, got %d (ok=%v)", m, ok)
	}
	if _, ok := Minutes("9am"); ok {
		t.Fatal("expected malformed input to report not-ok")
	}
	if _, ok := Minutes("25:00"); ok {
		t.Fatal("expected out-of-range hour to report not-ok")
	}
	if _, ok := Minutes(""); ok {
		t.Fatal("expected empty input to report not-ok")
	}
}

func TestWithinHalfOpen(t *testing.T) {
	if !Within("09:00", "09:00", "11:00") {
		t.Fatal("interval start must be contained")
	}
	if Within("11:00", "09:00", "11:00") {
		t.Fatal("interval end must not be contained")
	}
	if !Within("10:59", "09:00", "11:00") {
		t.Fatal("last minute before end must be contained")
	}
	if Within("08:59", "09:00", "11:00") {
		t.Fatal("minute before start must not be contained")
	}
}

func TestWithinMalformed(t *testing.T) {
	if Within("bogus", "09:00", "11:00") {
		t.Fatal("malformed probe must resolve to false")
	}
	if Within("09:30", "bogus", "11:00") {
		t.Fatal("malformed start must resolve to false")
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(570); got != "09:30" {
		t.Fatalf("expected 09:30, got %s", got)
	}
	if got := FormatMinutes(0); got != "00:00" {
		t.Fatalf("expected 00:00, got %s", got)
	}
}
