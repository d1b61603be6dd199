package emergency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/ports"
)

// Advance moves an event one step along initiated -> in_progress -> all_clear -> resolved
// and records the change on its timeline.
func (s *Service) Advance(ctx context.Context, input AdvanceInput) (domainemergency.Event, error) {
	return s.transition(ctx, "advance", input.EventID, input.Actor, "", func(current domainemergency.Event) (domainemergency.Status, error) {
		next, ok := domainemergency.NextState(current.Status)
		if !ok {
			return "", fmt.Errorf("%w: event %s is %s", domainemergency.ErrInvalidTransition, current.ID, current.Status)
		}
		return next, nil
	})
}

// Cancel moves a non-terminal event to cancelled. Reason is stored as the
// timeline entry's notes.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (domainemergency.Event, error) {
	return s.transition(ctx, "cancel", input.EventID, input.Actor, input.Reason, func(current domainemergency.Event) (domainemergency.Status, error) {
		if !domainemergency.CanCancel(current.Status) {
			return "", fmt.Errorf("%w: event %s is %s", domainemergency.ErrInvalidTransition, current.ID, current.Status)
		}
		return domainemergency.StatusCancelled, nil
	})
}

func (s *Service) transition(
	ctx context.Context,
	op string,
	eventID string,
	actor string,
	notes string,
	decide func(current domainemergency.Event) (domainemergency.Status, error),
) (domainemergency.Event, error) {
	if err := s.ready(ctx); err != nil {
		return domainemergency.Event{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return domainemergency.Event{}, domainemergency.ErrEventIDRequired
	}

	var (
		updated domainemergency.Event
		pending *domainemergency.PartialWriteError
	)
	err := s.runInTx(ctx, eventID, func(txCtx context.Context) error {
		pending = nil
		current, err := s.repo.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		next, err := decide(current)
		if err != nil {
			return err
		}

		now := s.now()
		allClearAt, resolvedAt := domainemergency.Stamps(next, now)
		updated, err = s.repo.TransitionStatus(txCtx, ports.StatusTransition{
			EventID:         eventID,
			FromStatus:      current.Status,
			ToStatus:        next,
			ExpectedVersion: current.Version,
			AllClearAt:      allClearAt,
			ResolvedAt:      resolvedAt,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}

		draft, err := domainemergency.NewDraft(eventID, domainemergency.TransitionAction(next), notes, actor)
		if err != nil {
			return err
		}
		pending = &domainemergency.PartialWriteError{EventID: eventID, Status: next, Pending: draft}
		if _, err := s.repo.AppendTimeline(txCtx, draft, now); err != nil {
			return &appendError{err: err}
		}
		return nil
	})
	if err == nil {
		return updated, nil
	}

	var appendErr *appendError
	if pending != nil && errors.As(err, &appendErr) {
		return domainemergency.Event{}, s.classifyAppendFailure(ctx, updated.Version, pending, appendErr.err)
	}
	return domainemergency.Event{}, translateError(op, eventID, err)
}

// classifyAppendFailure re-reads the event after a failed timeline append to
// learn whether the status write survived. A store with rollback undoes it;
// one without leaves the event in the new status with its entry owed.
func (s *Service) classifyAppendFailure(
	ctx context.Context,
	writtenVersion int64,
	pending *domainemergency.PartialWriteError,
	cause error,
) error {
	stored, readErr := s.repo.GetEvent(ctx, pending.EventID)
	if readErr != nil {
		return &domainemergency.StorageError{
			Op:        "append timeline",
			Retryable: false,
			Err:       errors.Join(cause, readErr),
		}
	}
	if stored.Status == pending.Status && stored.Version == writtenVersion {
		pending.Err = cause
		return pending
	}
	return &domainemergency.StorageError{Op: "append timeline", Retryable: true, Err: cause}
}
