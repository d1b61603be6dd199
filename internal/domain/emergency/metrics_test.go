package emergency

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Second, "0m"},
		{45 * time.Minute, "45m"},
		{59*time.Minute + 59*time.Second, "59m"},
		{60 * time.Minute, "1h"},
		{65 * time.Minute, "1h5m"},
		{2 * time.Hour, "2h"},
		{26*time.Hour + 3*time.Minute, "26h3m"},
		{-5 * time.Minute, "0m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDurationUsesResolvedThenAllClearThenNow(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	allClear := t0.Add(40 * time.Minute)
	resolved := t0.Add(95 * time.Minute)

	open := Event{InitiatedAt: t0}
	if got := Duration(open, t0.Add(10*time.Minute)); got != 10*time.Minute {
		t.Fatalf("Duration(open) = %v", got)
	}
	if later := Duration(open, t0.Add(20*time.Minute)); later <= Duration(open, t0.Add(10*time.Minute)) {
		t.Fatalf("Duration(open) did not grow with wall clock")
	}

	cleared := Event{InitiatedAt: t0, AllClearAt: &allClear}
	if got := Duration(cleared, t0.Add(10*time.Hour)); got != 40*time.Minute {
		t.Fatalf("Duration(all_clear) = %v", got)
	}

	done := Event{InitiatedAt: t0, AllClearAt: &allClear, ResolvedAt: &resolved}
	for _, now := range []time.Time{t0, t0.Add(time.Hour), t0.Add(1000 * time.Hour)} {
		if got := Duration(done, now); got != 95*time.Minute {
			t.Fatalf("Duration(resolved, now=%v) = %v", now, got)
		}
	}
	if got := FormatDuration(Duration(done, t0)); got != "1h35m" {
		t.Fatalf("FormatDuration(resolved) = %q", got)
	}

	if got := Duration(open, t0.Add(-time.Minute)); got != 0 {
		t.Fatalf("Duration(clock before initiation) = %v, want 0", got)
	}
}

func TestNextStatusLabel(t *testing.T) {
	label, ok := NextStatusLabel(Event{Status: StatusInitiated})
	if !ok || label != "In Progress" {
		t.Fatalf("NextStatusLabel(initiated) = (%q, %v)", label, ok)
	}
	if _, ok := NextStatusLabel(Event{Status: StatusCancelled}); ok {
		t.Fatalf("NextStatusLabel(cancelled) ok = true")
	}
}

func TestSummarize(t *testing.T) {
	events := []Event{
		{Status: StatusInitiated, Severity: SeverityHigh},
		{Status: StatusAllClear, Severity: SeverityHigh},
		{Status: StatusResolved, Severity: SeverityLow},
		{Status: StatusCancelled, Severity: SeverityCritical},
	}
	got := Summarize(events)
	if got.Total != 4 || got.Active != 2 || got.Resolved != 1 || got.Cancelled != 1 {
		t.Fatalf("Summarize() = %+v", got)
	}
	if got.BySeverity[SeverityHigh] != 2 || got.ByStatus[StatusAllClear] != 1 {
		t.Fatalf("Summarize() breakdown = %+v / %+v", got.BySeverity, got.ByStatus)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.ByStatus == nil {
		t.Fatalf("Summarize(nil) = %+v", empty)
	}
}

func TestNewEventValidatesIntake(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	evt, err := NewEvent("evt-1", Intake{Title: " Kitchen fire ", Category: "Fire", Severity: "HIGH"}, now)
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if evt.Status != StatusInitiated || evt.Title != "Kitchen fire" || evt.Category != "fire" || evt.Severity != SeverityHigh {
		t.Fatalf("NewEvent() = %+v", evt)
	}
	if !evt.InitiatedAt.Equal(now) || evt.AllClearAt != nil || evt.ResolvedAt != nil {
		t.Fatalf("NewEvent() timestamps = %+v", evt)
	}

	cases := []struct {
		intake Intake
		want   error
	}{
		{Intake{Category: "fire", Severity: "low"}, ErrTitleRequired},
		{Intake{Title: "t", Severity: "low"}, ErrCategoryRequired},
		{Intake{Title: "t", Category: "fire", Severity: "extreme"}, ErrInvalidSeverity},
	}
	for _, tc := range cases {
		if _, err := NewEvent("evt-2", tc.intake, now); !errors.Is(err, tc.want) {
			t.Fatalf("NewEvent(%+v) error = %v, want %v", tc.intake, err, tc.want)
		}
	}
}

func TestErrorCodeAndMessage(t *testing.T) {
	partial := &PartialWriteError{EventID: "evt-1", Status: StatusResolved, Err: errors.New("disk full")}
	storage := &StorageError{Op: "append timeline", Retryable: true, Err: errors.New("busy")}
	unknown := &StorageError{Op: "commit", Retryable: false, Err: errors.New("timeout")}

	cases := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("load: %w", ErrRecordNotFound), CodeRecordNotFound},
		{ErrInvalidTransition, CodeInvalidTransition},
		{ErrRecordTerminal, CodeRecordTerminal},
		{partial, CodePartialWrite},
		{storage, CodeStorageFailure},
		{ErrTitleRequired, CodeInvalidInput},
	}
	seen := make(map[string]string)
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.code {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.code)
		}
		msg := Message(tc.err)
		if msg == "" {
			t.Fatalf("Message(%v) is empty", tc.err)
		}
		if other, dup := seen[msg]; dup {
			t.Fatalf("Message(%v) duplicates message of %s", tc.err, other)
		}
		seen[msg] = tc.code
	}

	if Message(unknown) == Message(storage) {
		t.Fatalf("Message() does not distinguish unknown outcome from retryable failure")
	}
	if !errors.Is(partial, ErrStorageFailure) {
		t.Fatalf("PartialWriteError is not a storage failure")
	}
}
