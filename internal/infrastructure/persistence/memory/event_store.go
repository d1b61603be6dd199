package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"safetrail/internal/domain/emergency"
	"safetrail/internal/ports"
)

// EventStore is a process-local record store. It has no rollback: a unit of
// work that fails halfway leaves its earlier writes in place.
type EventStore struct {
	mu       sync.RWMutex
	events   map[string]emergency.Event
	timeline map[string][]emergency.TimelineEntry
	newID    func() string
}

var _ ports.EventRepository = (*EventStore)(nil)

func NewEventStore() *EventStore {
	return &EventStore{
		events:   make(map[string]emergency.Event),
		timeline: make(map[string][]emergency.TimelineEntry),
		newID:    uuid.NewString,
	}
}

func (s *EventStore) GetEvent(ctx context.Context, eventID string) (emergency.Event, error) {
	if err := ctx.Err(); err != nil {
		return emergency.Event{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok {
		return emergency.Event{}, ports.ErrEventNotFound
	}
	return cloneEvent(e), nil
}

func (s *EventStore) ListEvents(ctx context.Context, filter ports.EventFilter) ([]emergency.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]emergency.Event, 0, len(s.events))
	for _, e := range s.events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if !filter.IncludeTerminal && e.IsTerminal() {
			continue
		}
		items = append(items, cloneEvent(e))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].InitiatedAt.Equal(items[j].InitiatedAt) {
			return items[i].InitiatedAt.After(items[j].InitiatedAt)
		}
		return items[i].ID < items[j].ID
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *EventStore) ListTimeline(ctx context.Context, eventID string) ([]emergency.TimelineEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.timeline[eventID]
	entries := make([]emergency.TimelineEntry, 0, len(stored))
	for _, entry := range stored {
		entries = append(entries, cloneEntry(entry))
	}
	return entries, nil
}

func (s *EventStore) CreateEvent(ctx context.Context, event emergency.Event) (emergency.Event, error) {
	if err := ctx.Err(); err != nil {
		return emergency.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return emergency.Event{}, fmt.Errorf("%w: event %s already exists", ports.ErrConflict, event.ID)
	}
	if event.Version == 0 {
		event.Version = 1
	}
	s.events[event.ID] = cloneEvent(event)
	return cloneEvent(event), nil
}

func (s *EventStore) TransitionStatus(ctx context.Context, input ports.StatusTransition) (emergency.Event, error) {
	if err := ctx.Err(); err != nil {
		return emergency.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[input.EventID]
	if !ok {
		return emergency.Event{}, ports.ErrEventNotFound
	}
	if e.Version != input.ExpectedVersion || e.Status != input.FromStatus {
		return emergency.Event{}, ports.ErrConflict
	}

	e.Status = input.ToStatus
	if input.AllClearAt != nil && e.AllClearAt == nil {
		at := input.AllClearAt.UTC()
		e.AllClearAt = &at
	}
	if input.ResolvedAt != nil && e.ResolvedAt == nil {
		at := input.ResolvedAt.UTC()
		e.ResolvedAt = &at
	}
	e.Version++
	e.UpdatedAt = input.UpdatedAt.UTC()
	s.events[e.ID] = e
	return cloneEvent(e), nil
}

func (s *EventStore) PatchReport(ctx context.Context, input ports.ReportUpdate) (emergency.Event, error) {
	if err := ctx.Err(); err != nil {
		return emergency.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[input.EventID]
	if !ok {
		return emergency.Event{}, ports.ErrEventNotFound
	}
	if e.Version != input.ExpectedVersion {
		return emergency.Event{}, ports.ErrConflict
	}

	report := input.Patch.Apply(e.Report, input.UpdatedAt)
	e.Report = &report
	e.Version++
	e.UpdatedAt = input.UpdatedAt.UTC()
	s.events[e.ID] = e
	return cloneEvent(e), nil
}

func (s *EventStore) AppendTimeline(ctx context.Context, draft emergency.TimelineDraft, now time.Time) (emergency.TimelineEntry, error) {
	if err := ctx.Err(); err != nil {
		return emergency.TimelineEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[draft.EventID]; !ok {
		return emergency.TimelineEntry{}, ports.ErrEventNotFound
	}

	entries := s.timeline[draft.EventID]
	var last *emergency.TimelineEntry
	if len(entries) > 0 {
		last = &entries[len(entries)-1]
	}
	entry := emergency.SealEntry(s.newID(), last, draft, now)
	s.timeline[draft.EventID] = append(entries, cloneEntry(entry))
	return cloneEntry(entry), nil
}

func cloneEntry(e emergency.TimelineEntry) emergency.TimelineEntry {
	out := e
	if e.Notes != nil {
		notes := *e.Notes
		out.Notes = &notes
	}
	if e.PerformedBy != nil {
		actor := *e.PerformedBy
		out.PerformedBy = &actor
	}
	return out
}

func cloneEvent(e emergency.Event) emergency.Event {
	out := e
	if e.AllClearAt != nil {
		at := *e.AllClearAt
		out.AllClearAt = &at
	}
	if e.ResolvedAt != nil {
		at := *e.ResolvedAt
		out.ResolvedAt = &at
	}
	if e.Report != nil {
		report := emergency.ReportPatch{
			RootCause:         e.Report.RootCause,
			Notes:             e.Report.Notes,
			CorrectiveActions: e.Report.CorrectiveActions,
		}.Apply(nil, e.Report.UpdatedAt)
		out.Report = &report
	}
	return out
}
