package emergency

import (
	"context"
	"errors"
	"fmt"

	domainemergency "safetrail/internal/domain/emergency"
)

// ResumeTimeline appends the entry a partial write left owed. The entry must be
// the transition entry for partial.Status, and the event must still sit in that
// status. If the transition entry is already in the ledger it is returned
// instead of appending a second one.
func (s *Service) ResumeTimeline(ctx context.Context, partial *domainemergency.PartialWriteError) (domainemergency.TimelineEntry, error) {
	if err := s.ready(ctx); err != nil {
		return domainemergency.TimelineEntry{}, err
	}
	if partial == nil {
		return domainemergency.TimelineEntry{}, errors.New("partial write is required")
	}
	if partial.EventID == "" {
		return domainemergency.TimelineEntry{}, domainemergency.ErrEventIDRequired
	}
	if !partial.Status.Valid() || partial.Status == domainemergency.StatusInitiated {
		return domainemergency.TimelineEntry{}, fmt.Errorf("%w: %q is not a transition target", domainemergency.ErrInvalidTransition, partial.Status)
	}
	action := domainemergency.TransitionAction(partial.Status)
	if partial.Pending.Action != action {
		return domainemergency.TimelineEntry{}, fmt.Errorf("%w: pending entry %q does not record a change to %s", domainemergency.ErrInvalidTransition, partial.Pending.Action, partial.Status)
	}
	if partial.Pending.EventID != "" && partial.Pending.EventID != partial.EventID {
		return domainemergency.TimelineEntry{}, fmt.Errorf("%w: pending entry belongs to event %s", domainemergency.ErrInvalidTransition, partial.Pending.EventID)
	}
	draft := partial.Pending
	draft.EventID = partial.EventID

	var entry domainemergency.TimelineEntry
	err := s.runInTx(ctx, partial.EventID, func(txCtx context.Context) error {
		current, err := s.repo.GetEvent(txCtx, partial.EventID)
		if err != nil {
			return err
		}
		if current.Status != partial.Status {
			return fmt.Errorf("%w: event %s is %s, not %s", domainemergency.ErrInvalidTransition, partial.EventID, current.Status, partial.Status)
		}

		entries, err := s.repo.ListTimeline(txCtx, partial.EventID)
		if err != nil {
			return err
		}
		// Each status is entered at most once and notes cannot use transition
		// texts, so any entry with this action is the one owed.
		for _, existing := range entries {
			if existing.Action == action {
				entry = existing
				return nil
			}
		}
		entry, err = s.repo.AppendTimeline(txCtx, draft, s.now())
		return err
	})
	if err != nil {
		return domainemergency.TimelineEntry{}, translateError("resume timeline", partial.EventID, err)
	}
	return entry, nil
}
