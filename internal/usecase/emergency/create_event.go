package emergency

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"safetrail/internal/bootstrap/logging"
	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/errs"
	"safetrail/internal/ports"
)

const intakeKeyPrefix = "intake:"

// CreateEvent records a new event in the initiated status. No timeline entry
// is written; the first entry is the first transition or note.
func (s *Service) CreateEvent(ctx context.Context, input CreateEventInput) (domainemergency.Event, error) {
	if err := s.ready(ctx); err != nil {
		return domainemergency.Event{}, err
	}

	event, err := domainemergency.NewEvent(s.newID(), domainemergency.Intake{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    input.Category,
		Severity:    input.Severity,
		ReportedBy:  input.ReportedBy,
	}, s.now())
	if err != nil {
		return domainemergency.Event{}, err
	}

	idemKey := strings.TrimSpace(input.IdempotencyKey)
	if s.intakeKeys == nil || idemKey == "" {
		var created domainemergency.Event
		err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
			var err error
			created, err = s.repo.CreateEvent(txCtx, event)
			return err
		})
		if err != nil {
			return domainemergency.Event{}, translateError("create event", event.ID, err)
		}
		return created, nil
	}

	cacheKey := intakeKeyPrefix + idemKey
	var (
		result   domainemergency.Event
		replayed bool
	)
	err = s.uow.WithTx(ports.WithLockKey(ctx, cacheKey), func(txCtx context.Context) error {
		existingID, found, err := s.intakeKeys.Get(txCtx, cacheKey)
		if err != nil {
			return errs.Wrap(err, "read intake key")
		}
		if found {
			existing, err := s.repo.GetEvent(txCtx, existingID)
			switch {
			case err == nil:
				result, replayed = existing, true
				return nil
			case !errors.Is(err, ports.ErrEventNotFound):
				return err
			}
		}

		created, err := s.repo.CreateEvent(txCtx, event)
		if err != nil {
			return err
		}
		if err := s.intakeKeys.Set(txCtx, cacheKey, created.ID, s.intakeTTL); err != nil {
			return errs.Wrap(err, "remember intake key")
		}
		result = created
		return nil
	})
	if err != nil {
		return domainemergency.Event{}, translateError("create event", event.ID, err)
	}
	if replayed {
		logging.Info(ctx, "intake replayed",
			slog.String("event_id", result.ID),
			slog.String("idempotency_key", idemKey),
		)
	}
	return result, nil
}

// PurgeIntakeKeys drops expired idempotency keys. It is a no-op without an
// intake cache.
func (s *Service) PurgeIntakeKeys(ctx context.Context) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if s.intakeKeys == nil {
		return 0, nil
	}
	purged, err := s.intakeKeys.Purge(ctx)
	if err != nil {
		return 0, translateError("purge intake keys", "", err)
	}
	return purged, nil
}
