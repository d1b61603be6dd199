package emergency

import (
	"context"
	"fmt"
	"strings"

	domainemergency "safetrail/internal/domain/emergency"
)

// AddTimelineNote appends a free-form entry to a non-terminal event's timeline.
func (s *Service) AddTimelineNote(ctx context.Context, input AddTimelineNoteInput) (domainemergency.TimelineEntry, error) {
	if err := s.ready(ctx); err != nil {
		return domainemergency.TimelineEntry{}, err
	}
	eventID := strings.TrimSpace(input.EventID)
	if eventID == "" {
		return domainemergency.TimelineEntry{}, domainemergency.ErrEventIDRequired
	}
	draft, err := domainemergency.NewDraft(eventID, input.Action, input.Notes, input.Actor)
	if err != nil {
		return domainemergency.TimelineEntry{}, err
	}
	if domainemergency.IsTransitionAction(draft.Action) {
		return domainemergency.TimelineEntry{}, fmt.Errorf("%w: %q", domainemergency.ErrActionReserved, draft.Action)
	}

	var entry domainemergency.TimelineEntry
	err = s.runInTx(ctx, eventID, func(txCtx context.Context) error {
		current, err := s.repo.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return fmt.Errorf("%w: event %s is %s", domainemergency.ErrRecordTerminal, eventID, current.Status)
		}
		entry, err = s.repo.AppendTimeline(txCtx, draft, s.now())
		return err
	})
	if err != nil {
		return domainemergency.TimelineEntry{}, translateError("add timeline note", eventID, err)
	}
	return entry, nil
}
