package emergency

import (
	"context"
	"fmt"
	"strings"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/ports"
)

// SaveReport merges a partial after-action report into a non-terminal event.
// It never touches status, stamps, or the timeline.
func (s *Service) SaveReport(ctx context.Context, input SaveReportInput) (domainemergency.Event, error) {
	if err := s.ready(ctx); err != nil {
		return domainemergency.Event{}, err
	}
	eventID := strings.TrimSpace(input.EventID)
	if eventID == "" {
		return domainemergency.Event{}, domainemergency.ErrEventIDRequired
	}
	patch := domainemergency.ReportPatch{
		RootCause:         input.RootCause,
		Notes:             input.Notes,
		CorrectiveActions: input.CorrectiveActions,
	}
	if patch.Empty() {
		return domainemergency.Event{}, domainemergency.ErrEmptyReportPatch
	}

	var updated domainemergency.Event
	err := s.runInTx(ctx, eventID, func(txCtx context.Context) error {
		current, err := s.repo.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if err := domainemergency.EnsureReportEditable(current); err != nil {
			return fmt.Errorf("%w: event %s is %s", err, eventID, current.Status)
		}
		updated, err = s.repo.PatchReport(txCtx, ports.ReportUpdate{
			EventID:         eventID,
			ExpectedVersion: current.Version,
			Patch:           patch,
			UpdatedAt:       s.now(),
		})
		return err
	})
	if err != nil {
		return domainemergency.Event{}, translateError("save report", eventID, err)
	}
	return updated, nil
}
