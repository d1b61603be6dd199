package emergency

import (
	"context"
	"errors"
	"fmt"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/errs"
	"safetrail/internal/ports"
)

// maxConflictAttempts bounds re-reads after optimistic version conflicts.
// Each conflict means another writer committed a transition, and an event has
// at most three forward transitions, so five attempts always settle.
const maxConflictAttempts = 5

// appendError marks a failure of the timeline append step, so it is not
// confused with a conflict on the status write.
type appendError struct{ err error }

func (e *appendError) Error() string { return "append timeline: " + e.err.Error() }
func (e *appendError) Unwrap() error { return e.err }

// runInTx runs fn in a unit of work scoped to eventID and re-runs it from a
// fresh read when the store reports a version conflict.
func (s *Service) runInTx(ctx context.Context, eventID string, fn func(txCtx context.Context) error) error {
	lockCtx := ports.WithLockKey(ctx, eventID)

	var err error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		fnDone := false
		err = s.uow.WithTx(lockCtx, func(txCtx context.Context) error {
			if err := fn(txCtx); err != nil {
				return err
			}
			fnDone = true
			return nil
		})
		if err == nil {
			return nil
		}
		if fnDone {
			// The callback succeeded but commit failed: the outcome is unknown.
			return &domainemergency.StorageError{Op: "commit", Retryable: false, Err: err}
		}
		var appendErr *appendError
		if !errors.Is(err, ports.ErrConflict) || errors.As(err, &appendErr) {
			return err
		}
	}
	return &domainemergency.StorageError{Op: "resolve version conflict", Retryable: true, Err: err}
}

// translateError maps store errors onto the domain taxonomy. Domain errors
// and already-classified storage errors pass through.
func translateError(op string, eventID string, err error) error {
	var (
		partial *domainemergency.PartialWriteError
		storage *domainemergency.StorageError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &partial), errors.As(err, &storage):
		return err
	case errors.Is(err, ports.ErrEventNotFound):
		return fmt.Errorf("%s: %w: %s", op, domainemergency.ErrRecordNotFound, eventID)
	case isDomainError(err):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &domainemergency.StorageError{Op: op, Retryable: false, Err: err}
	default:
		return &domainemergency.StorageError{Op: op, Retryable: true, Err: errs.WithStack(err)}
	}
}

func isDomainError(err error) bool {
	switch domainemergency.ErrorCode(err) {
	case domainemergency.CodeRecordNotFound,
		domainemergency.CodeInvalidTransition,
		domainemergency.CodeRecordTerminal,
		domainemergency.CodeInvalidInput:
		return true
	}
	return false
}
