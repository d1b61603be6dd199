package emergency

import (
	"context"
	"strings"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/ports"
)

// GetEvent returns an event, its ordered timeline, and its derived display values.
func (s *Service) GetEvent(ctx context.Context, eventID string) (EventDetail, error) {
	if err := s.ready(ctx); err != nil {
		return EventDetail{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return EventDetail{}, domainemergency.ErrEventIDRequired
	}

	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return EventDetail{}, translateError("get event", eventID, err)
	}
	timeline, err := s.repo.ListTimeline(ctx, eventID)
	if err != nil {
		return EventDetail{}, translateError("list timeline", eventID, err)
	}

	elapsed := domainemergency.Duration(event, s.now())
	nextLabel, canAdvance := domainemergency.NextStatusLabel(event)
	return EventDetail{
		Event:           event,
		Timeline:        timeline,
		Elapsed:         elapsed,
		ElapsedLabel:    domainemergency.FormatDuration(elapsed),
		NextStatusLabel: nextLabel,
		CanAdvance:      canAdvance,
		CanCancel:       domainemergency.CanCancel(event.Status),
	}, nil
}

// ListEvents lists events newest first. Terminal events are hidden unless
// requested or named by the status filter.
func (s *Service) ListEvents(ctx context.Context, input ListEventsInput) ([]domainemergency.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	filter := ports.EventFilter{
		IncludeTerminal: input.IncludeTerminal,
		Limit:           input.Limit,
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domainemergency.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Status = status
		if domainemergency.IsTerminal(status) {
			filter.IncludeTerminal = true
		}
	}

	items, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, translateError("list events", "", err)
	}
	return items, nil
}

// ListTimeline returns an event's entries in append order.
func (s *Service) ListTimeline(ctx context.Context, eventID string) ([]domainemergency.TimelineEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, domainemergency.ErrEventIDRequired
	}
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, translateError("list timeline", eventID, err)
	}
	entries, err := s.repo.ListTimeline(ctx, eventID)
	if err != nil {
		return nil, translateError("list timeline", eventID, err)
	}
	return entries, nil
}

// Summary counts all events, terminal ones included.
func (s *Service) Summary(ctx context.Context) (domainemergency.Summary, error) {
	if err := s.ready(ctx); err != nil {
		return domainemergency.Summary{}, err
	}
	items, err := s.repo.ListEvents(ctx, ports.EventFilter{IncludeTerminal: true})
	if err != nil {
		return domainemergency.Summary{}, translateError("summarize events", "", err)
	}
	return domainemergency.Summarize(items), nil
}
