package emergency

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/infrastructure/persistence/memory"
	"safetrail/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "safetrail/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "safetrail/internal/infrastructure/persistence/sqlite/uow"
	"safetrail/internal/ports"
)

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type backend struct {
	name string
	open func(t *testing.T) (ports.EventRepository, ports.UnitOfWork)
}

func backends() []backend {
	return []backend{
		{name: "memory", open: openMemory},
		{name: "sqlite", open: openSQLite},
	}
}

func openMemory(t *testing.T) (ports.EventRepository, ports.UnitOfWork) {
	t.Helper()
	return memory.NewEventStore(), memory.NewShardedUnitOfWork()
}

func openSQLite(t *testing.T) (ports.EventRepository, ports.UnitOfWork) {
	t.Helper()
	db := openSQLiteDB(t)
	return sqliterepo.NewEventRepository(db), sqliteuow.NewUnitOfWork(db)
}

func openSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "safetrail.db")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.Event{}, &model.TimelineEntry{}, &model.CacheEntry{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func setupService(t *testing.T, b backend, clock *testClock) *Service {
	t.Helper()
	repo, uow := b.open(t)
	return NewService(repo, uow, WithClock(clock.Now))
}

func createTestEvent(t *testing.T, svc *Service) domainemergency.Event {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), CreateEventInput{
		Title:      "Gas leak in lab 3",
		Location:   "Building B",
		Category:   "Chemical",
		Severity:   "high",
		ReportedBy: "operator-1",
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	return event
}

func timelineActions(t *testing.T, svc *Service, eventID string) []string {
	t.Helper()
	entries, err := svc.ListTimeline(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ListTimeline() error = %v", err)
	}
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func TestFullLifecycleStampsAndTimeline(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clock := newTestClock(baseTime)
			svc := setupService(t, b, clock)
			ctx := context.Background()

			event := createTestEvent(t, svc)
			if event.Status != domainemergency.StatusInitiated || event.Category != "chemical" {
				t.Fatalf("CreateEvent() = %+v", event)
			}
			if got := timelineActions(t, svc, event.ID); len(got) != 0 {
				t.Fatalf("timeline after create = %q, want empty", got)
			}

			steps := []struct {
				at   time.Duration
				want domainemergency.Status
			}{
				{at: 10 * time.Minute, want: domainemergency.StatusInProgress},
				{at: 40 * time.Minute, want: domainemergency.StatusAllClear},
				{at: 90 * time.Minute, want: domainemergency.StatusResolved},
			}
			for _, step := range steps {
				clock.Set(baseTime.Add(step.at))
				updated, err := svc.Advance(ctx, AdvanceInput{EventID: event.ID, Actor: "lead"})
				if err != nil {
					t.Fatalf("Advance() error = %v", err)
				}
				if updated.Status != step.want {
					t.Fatalf("Advance() status = %s, want %s", updated.Status, step.want)
				}
			}

			detail, err := svc.GetEvent(ctx, event.ID)
			if err != nil {
				t.Fatalf("GetEvent() error = %v", err)
			}
			if detail.Event.AllClearAt == nil || !detail.Event.AllClearAt.Equal(baseTime.Add(40*time.Minute)) {
				t.Fatalf("AllClearAt = %v", detail.Event.AllClearAt)
			}
			if detail.Event.ResolvedAt == nil || !detail.Event.ResolvedAt.Equal(baseTime.Add(90*time.Minute)) {
				t.Fatalf("ResolvedAt = %v", detail.Event.ResolvedAt)
			}
			if detail.Elapsed != 90*time.Minute || detail.ElapsedLabel != "1h30m" {
				t.Fatalf("Elapsed = %v (%q)", detail.Elapsed, detail.ElapsedLabel)
			}
			if detail.CanAdvance || detail.CanCancel || detail.NextStatusLabel != "" {
				t.Fatalf("detail actions = advance:%v cancel:%v next:%q", detail.CanAdvance, detail.CanCancel, detail.NextStatusLabel)
			}

			want := []string{
				"Status changed to In Progress",
				"Status changed to All Clear",
				"Status changed to Resolved",
			}
			if diff := cmp.Diff(want, timelineActions(t, svc, event.ID)); diff != "" {
				t.Fatalf("timeline mismatch (-want +got):\n%s", diff)
			}
			for i, entry := range detail.Timeline {
				if entry.Position != int64(i+1) {
					t.Fatalf("entry %d position = %d", i, entry.Position)
				}
				if entry.PerformedBy == nil || *entry.PerformedBy != "lead" {
					t.Fatalf("entry %d performed by = %v", i, entry.PerformedBy)
				}
			}

			_, err = svc.Advance(ctx, AdvanceInput{EventID: event.ID})
			if !errors.Is(err, domainemergency.ErrInvalidTransition) {
				t.Fatalf("Advance(resolved) error = %v, want ErrInvalidTransition", err)
			}
			if got := timelineActions(t, svc, event.ID); len(got) != 3 {
				t.Fatalf("timeline after rejected advance = %q", got)
			}

			_, err = svc.AddTimelineNote(ctx, AddTimelineNoteInput{EventID: event.ID, Action: "debrief held"})
			if !errors.Is(err, domainemergency.ErrRecordTerminal) {
				t.Fatalf("AddTimelineNote(resolved) error = %v, want ErrRecordTerminal", err)
			}
			cause := "valve failure"
			_, err = svc.SaveReport(ctx, SaveReportInput{EventID: event.ID, RootCause: &cause})
			if !errors.Is(err, domainemergency.ErrRecordTerminal) {
				t.Fatalf("SaveReport(resolved) error = %v, want ErrRecordTerminal", err)
			}
			if got := timelineActions(t, svc, event.ID); len(got) != 3 {
				t.Fatalf("timeline after rejected note = %q", got)
			}
		})
	}
}

func TestCancelRecordsReasonAndFreezesEvent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clock := newTestClock(baseTime)
			svc := setupService(t, b, clock)
			ctx := context.Background()
			event := createTestEvent(t, svc)

			if _, err := svc.Advance(ctx, AdvanceInput{EventID: event.ID}); err != nil {
				t.Fatalf("Advance() error = %v", err)
			}
			clock.Set(baseTime.Add(5 * time.Minute))
			cancelled, err := svc.Cancel(ctx, CancelInput{EventID: event.ID, Actor: "lead", Reason: "false alarm"})
			if err != nil {
				t.Fatalf("Cancel() error = %v", err)
			}
			if cancelled.Status != domainemergency.StatusCancelled {
				t.Fatalf("Cancel() status = %s", cancelled.Status)
			}
			if cancelled.AllClearAt != nil || cancelled.ResolvedAt != nil {
				t.Fatalf("Cancel() stamped all-clear or resolved: %+v", cancelled)
			}

			entries, err := svc.ListTimeline(ctx, event.ID)
			if err != nil {
				t.Fatalf("ListTimeline() error = %v", err)
			}
			last := entries[len(entries)-1]
			if last.Action != "Event cancelled" || last.Notes == nil || *last.Notes != "false alarm" {
				t.Fatalf("last entry = %+v", last)
			}

			if _, err := svc.Cancel(ctx, CancelInput{EventID: event.ID}); !errors.Is(err, domainemergency.ErrInvalidTransition) {
				t.Fatalf("Cancel(cancelled) error = %v, want ErrInvalidTransition", err)
			}
			if _, err := svc.Advance(ctx, AdvanceInput{EventID: event.ID}); !errors.Is(err, domainemergency.ErrInvalidTransition) {
				t.Fatalf("Advance(cancelled) error = %v, want ErrInvalidTransition", err)
			}
			if _, err := svc.AddTimelineNote(ctx, AddTimelineNoteInput{EventID: event.ID, Action: "late note"}); !errors.Is(err, domainemergency.ErrRecordTerminal) {
				t.Fatalf("AddTimelineNote(cancelled) error = %v, want ErrRecordTerminal", err)
			}
			rootCause := "sensor fault"
			if _, err := svc.SaveReport(ctx, SaveReportInput{EventID: event.ID, RootCause: &rootCause}); !errors.Is(err, domainemergency.ErrRecordTerminal) {
				t.Fatalf("SaveReport(cancelled) error = %v, want ErrRecordTerminal", err)
			}

			if got := timelineActions(t, svc, event.ID); len(got) != 2 {
				t.Fatalf("timeline after rejections = %q", got)
			}
		})
	}
}

func TestNotesAndPartialReports(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clock := newTestClock(baseTime)
			svc := setupService(t, b, clock)
			ctx := context.Background()
			event := createTestEvent(t, svc)

			entry, err := svc.AddTimelineNote(ctx, AddTimelineNoteInput{
				EventID: event.ID,
				Action:  "  Evacuated floor 2 ",
				Notes:   "",
				Actor:   "warden",
			})
			if err != nil {
				t.Fatalf("AddTimelineNote() error = %v", err)
			}
			if entry.Action != "Evacuated floor 2" || entry.Notes != nil || entry.Position != 1 {
				t.Fatalf("AddTimelineNote() = %+v", entry)
			}

			rootCause := "valve corrosion"
			first, err := svc.SaveReport(ctx, SaveReportInput{EventID: event.ID, RootCause: &rootCause})
			if err != nil {
				t.Fatalf("SaveReport() error = %v", err)
			}
			notes := "replace valves quarterly"
			second, err := svc.SaveReport(ctx, SaveReportInput{EventID: event.ID, Notes: &notes})
			if err != nil {
				t.Fatalf("SaveReport() error = %v", err)
			}
			if second.Report == nil || second.Report.RootCause == nil || *second.Report.RootCause != rootCause {
				t.Fatalf("SaveReport() lost root cause: %+v", second.Report)
			}
			if second.Report.Notes == nil || *second.Report.Notes != notes || second.Report.CorrectiveActions != nil {
				t.Fatalf("SaveReport() report = %+v", second.Report)
			}
			if second.Status != domainemergency.StatusInitiated || second.Version != first.Version+1 {
				t.Fatalf("SaveReport() status/version = %s/%d", second.Status, second.Version)
			}

			if got := timelineActions(t, svc, event.ID); len(got) != 1 {
				t.Fatalf("SaveReport() touched the timeline: %q", got)
			}
		})
	}
}

func TestValidationAndNotFound(t *testing.T) {
	svc := setupService(t, backends()[0], newTestClock(baseTime))
	ctx := context.Background()
	event := createTestEvent(t, svc)

	if _, err := svc.CreateEvent(ctx, CreateEventInput{Category: "fire", Severity: "low"}); !errors.Is(err, domainemergency.ErrTitleRequired) {
		t.Fatalf("CreateEvent(no title) error = %v", err)
	}
	if _, err := svc.CreateEvent(ctx, CreateEventInput{Title: "x", Category: "fire", Severity: "extreme"}); !errors.Is(err, domainemergency.ErrInvalidSeverity) {
		t.Fatalf("CreateEvent(bad severity) error = %v", err)
	}
	if _, err := svc.AddTimelineNote(ctx, AddTimelineNoteInput{EventID: event.ID, Action: "  "}); !errors.Is(err, domainemergency.ErrActionRequired) {
		t.Fatalf("AddTimelineNote(blank) error = %v", err)
	}
	if _, err := svc.SaveReport(ctx, SaveReportInput{EventID: event.ID}); !errors.Is(err, domainemergency.ErrEmptyReportPatch) {
		t.Fatalf("SaveReport(empty) error = %v", err)
	}
	if _, err := svc.Advance(ctx, AdvanceInput{EventID: " "}); !errors.Is(err, domainemergency.ErrEventIDRequired) {
		t.Fatalf("Advance(blank id) error = %v", err)
	}
	if _, err := svc.ListEvents(ctx, ListEventsInput{Status: "paused"}); !errors.Is(err, domainemergency.ErrInvalidStatus) {
		t.Fatalf("ListEvents(bad status) error = %v", err)
	}

	for name, call := range map[string]func() error{
		"Advance": func() error { _, err := svc.Advance(ctx, AdvanceInput{EventID: "missing"}); return err },
		"Cancel":  func() error { _, err := svc.Cancel(ctx, CancelInput{EventID: "missing"}); return err },
		"Note": func() error {
			_, err := svc.AddTimelineNote(ctx, AddTimelineNoteInput{EventID: "missing", Action: "x"})
			return err
		},
		"GetEvent":     func() error { _, err := svc.GetEvent(ctx, "missing"); return err },
		"ListTimeline": func() error { _, err := svc.ListTimeline(ctx, "missing"); return err },
	} {
		err := call()
		if !errors.Is(err, domainemergency.ErrRecordNotFound) {
			t.Fatalf("%s(missing) error = %v, want ErrRecordNotFound", name, err)
		}
		if domainemergency.ErrorCode(err) != domainemergency.CodeRecordNotFound {
			t.Fatalf("%s(missing) code = %q", name, domainemergency.ErrorCode(err))
		}
	}
}

func TestCanceledContextChangesNothing(t *testing.T) {
	svc := setupService(t, backends()[0], newTestClock(baseTime))
	event := createTestEvent(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Advance(ctx, AdvanceInput{EventID: event.ID}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Advance(canceled ctx) error = %v", err)
	}

	detail, err := svc.GetEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if detail.Event.Status != domainemergency.StatusInitiated || len(detail.Timeline) != 0 {
		t.Fatalf("event changed: %+v", detail)
	}
}

func TestBackwardClockKeepsTimelineMonotonic(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clock := newTestClock(baseTime.Add(10 * time.Minute))
			svc := setupService(t, b, clock)
			ctx := context.Background()
			event := createTestEvent(t, svc)

			first, err := svc.AddTimelineNote(ctx, AddTimelineNoteInput{EventID: event.ID, Action: "first"})
			if err != nil {
				t.Fatalf("AddTimelineNote() error = %v", err)
			}
			clock.Set(baseTime.Add(5 * time.Minute))
			second, err := svc.AddTimelineNote(ctx, AddTimelineNoteInput{EventID: event.ID, Action: "second"})
			if err != nil {
				t.Fatalf("AddTimelineNote() error = %v", err)
			}

			if !second.Timestamp.Equal(first.Timestamp.Add(domainemergency.TimestampEpsilon)) {
				t.Fatalf("second timestamp = %v, want %v", second.Timestamp, first.Timestamp.Add(domainemergency.TimestampEpsilon))
			}
			if diff := cmp.Diff([]string{"first", "second"}, timelineActions(t, svc, event.ID)); diff != "" {
				t.Fatalf("timeline order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConcurrentAdvanceAppliesEachStepOnce(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			svc := setupService(t, b, newTestClock(baseTime))
			event := createTestEvent(t, svc)

			const callers = 10
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				rejected  int
				other     []error
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Advance(context.Background(), AdvanceInput{EventID: event.ID})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, domainemergency.ErrInvalidTransition):
						rejected++
					default:
						other = append(other, err)
					}
				}()
			}
			wg.Wait()

			if len(other) > 0 {
				t.Fatalf("unexpected errors: %v", other)
			}
			if successes != 3 || rejected != callers-3 {
				t.Fatalf("successes = %d, rejected = %d", successes, rejected)
			}
			want := []string{
				"Status changed to In Progress",
				"Status changed to All Clear",
				"Status changed to Resolved",
			}
			if diff := cmp.Diff(want, timelineActions(t, svc, event.ID)); diff != "" {
				t.Fatalf("timeline mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListEventsAndSummary(t *testing.T) {
	svc := setupService(t, backends()[0], newTestClock(baseTime))
	ctx := context.Background()

	active := createTestEvent(t, svc)
	cancelled := createTestEvent(t, svc)
	if _, err := svc.Cancel(ctx, CancelInput{EventID: cancelled.ID}); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	items, err := svc.ListEvents(ctx, ListEventsInput{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != active.ID {
		t.Fatalf("ListEvents() = %+v, want only active event", items)
	}

	items, err = svc.ListEvents(ctx, ListEventsInput{Status: "Cancelled"})
	if err != nil {
		t.Fatalf("ListEvents(cancelled) error = %v", err)
	}
	if len(items) != 1 || items[0].ID != cancelled.ID {
		t.Fatalf("ListEvents(cancelled) = %+v", items)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Total != 2 || summary.Active != 1 || summary.Cancelled != 1 {
		t.Fatalf("Summary() = %+v", summary)
	}
}
