package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"safetrail/internal/domain/emergency"
	"safetrail/internal/errs"
	"safetrail/internal/infrastructure/persistence/sqlite/model"
	"safetrail/internal/ports"
)

type EventRepository struct {
	db    *gorm.DB
	newID func() string
}

var _ ports.EventRepository = (*EventRepository)(nil)

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db, newID: uuid.NewString}
}

func (r *EventRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID string) (emergency.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return emergency.Event{}, err
	}
	return getEventByID(db, eventID)
}

func (r *EventRepository) ListEvents(ctx context.Context, filter ports.EventFilter) ([]emergency.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Event{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if !filter.IncludeTerminal {
		query = query.Where("status NOT IN ?", []string{
			string(emergency.StatusResolved),
			string(emergency.StatusCancelled),
		})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Event
	if err := query.Order("initiated_at desc").Order("event_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query events")
	}

	items := make([]emergency.Event, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEvent(row))
	}
	return items, nil
}

func (r *EventRepository) ListTimeline(ctx context.Context, eventID string) ([]emergency.TimelineEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.TimelineEntry
	if err := db.
		Where("event_id = ?", eventID).
		Order("position asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query timeline entries")
	}

	items := make([]emergency.TimelineEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapTimelineEntry(row))
	}
	return items, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event emergency.Event) (emergency.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return emergency.Event{}, err
	}

	row := toEventRow(event)
	if row.Version == 0 {
		row.Version = 1
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return emergency.Event{}, fmt.Errorf("%w: event %s already exists", ports.ErrConflict, event.ID)
		}
		return emergency.Event{}, errs.Wrap(err, "insert event")
	}
	return mapEvent(row), nil
}

func (r *EventRepository) TransitionStatus(ctx context.Context, input ports.StatusTransition) (emergency.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return emergency.Event{}, err
	}

	updates := map[string]any{
		"status":     string(input.ToStatus),
		"version":    gorm.Expr("version + 1"),
		"updated_at": input.UpdatedAt.UTC(),
	}
	// COALESCE keeps the first stamp; a later write never replaces it.
	if input.AllClearAt != nil {
		updates["all_clear_at"] = gorm.Expr("COALESCE(all_clear_at, ?)", input.AllClearAt.UTC())
	}
	if input.ResolvedAt != nil {
		updates["resolved_at"] = gorm.Expr("COALESCE(resolved_at, ?)", input.ResolvedAt.UTC())
	}

	result := db.Model(&model.Event{}).
		Where("event_id = ? AND status = ? AND version = ?", input.EventID, string(input.FromStatus), input.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return emergency.Event{}, errs.Wrap(result.Error, "update event status")
	}
	if result.RowsAffected == 0 {
		return emergency.Event{}, missOrConflict(db, input.EventID)
	}
	return getEventByID(db, input.EventID)
}

func (r *EventRepository) PatchReport(ctx context.Context, input ports.ReportUpdate) (emergency.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return emergency.Event{}, err
	}

	updatedAt := input.UpdatedAt.UTC()
	updates := map[string]any{
		"report_updated_at": updatedAt,
		"version":           gorm.Expr("version + 1"),
		"updated_at":        updatedAt,
	}
	if input.Patch.RootCause != nil {
		updates["root_cause"] = *input.Patch.RootCause
	}
	if input.Patch.Notes != nil {
		updates["report_notes"] = *input.Patch.Notes
	}
	if input.Patch.CorrectiveActions != nil {
		updates["corrective_actions"] = *input.Patch.CorrectiveActions
	}

	result := db.Model(&model.Event{}).
		Where("event_id = ? AND version = ?", input.EventID, input.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return emergency.Event{}, errs.Wrap(result.Error, "update event report")
	}
	if result.RowsAffected == 0 {
		return emergency.Event{}, missOrConflict(db, input.EventID)
	}
	return getEventByID(db, input.EventID)
}

func (r *EventRepository) AppendTimeline(ctx context.Context, draft emergency.TimelineDraft, now time.Time) (emergency.TimelineEntry, error) {
	if ports.TxFromContext(ctx) != nil {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return emergency.TimelineEntry{}, err
		}

		if _, err := getEventByID(db, draft.EventID); err != nil {
			return emergency.TimelineEntry{}, err
		}

		var last *emergency.TimelineEntry
		var row model.TimelineEntry
		err = db.Where("event_id = ?", draft.EventID).Order("position desc").Take(&row).Error
		switch {
		case err == nil:
			entry := mapTimelineEntry(row)
			last = &entry
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return emergency.TimelineEntry{}, errs.Wrap(err, "query last timeline entry")
		}

		entry := emergency.SealEntry(r.newID(), last, draft, now)
		insert := toTimelineRow(entry)
		if err := db.Create(&insert).Error; err != nil {
			if isUniqueViolation(err) {
				return emergency.TimelineEntry{}, fmt.Errorf("%w: timeline position %d taken", ports.ErrConflict, entry.Position)
			}
			return emergency.TimelineEntry{}, errs.Wrap(err, "insert timeline entry")
		}
		return entry, nil
	}

	var created emergency.TimelineEntry
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := ports.WithTxContext(ctx, tx)
		entry, err := r.AppendTimeline(txCtx, draft, now)
		if err != nil {
			return err
		}
		created = entry
		return nil
	}); err != nil {
		return emergency.TimelineEntry{}, err
	}
	return created, nil
}

func getEventByID(db *gorm.DB, eventID string) (emergency.Event, error) {
	var row model.Event
	if err := db.Where("event_id = ?", eventID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emergency.Event{}, ports.ErrEventNotFound
		}
		return emergency.Event{}, errs.Wrap(err, "query event")
	}
	return mapEvent(row), nil
}

func missOrConflict(db *gorm.DB, eventID string) error {
	var count int64
	if err := db.Model(&model.Event{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		return errs.Wrap(err, "count event")
	}
	if count == 0 {
		return ports.ErrEventNotFound
	}
	return ports.ErrConflict
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toEventRow(e emergency.Event) model.Event {
	row := model.Event{
		EventID:     e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Category:    e.Category,
		Severity:    string(e.Severity),
		ReportedBy:  e.ReportedBy,
		Status:      string(e.Status),
		InitiatedAt: e.InitiatedAt.UTC(),
		AllClearAt:  utcPtr(e.AllClearAt),
		ResolvedAt:  utcPtr(e.ResolvedAt),
		Version:     e.Version,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
	if e.Report != nil {
		updatedAt := e.Report.UpdatedAt.UTC()
		row.RootCause = e.Report.RootCause
		row.ReportNotes = e.Report.Notes
		row.CorrectiveActions = e.Report.CorrectiveActions
		row.ReportUpdatedAt = &updatedAt
	}
	return row
}

func mapEvent(row model.Event) emergency.Event {
	e := emergency.Event{
		ID:          row.EventID,
		Title:       row.Title,
		Description: row.Description,
		Location:    row.Location,
		Category:    row.Category,
		Severity:    emergency.Severity(row.Severity),
		ReportedBy:  row.ReportedBy,
		Status:      emergency.Status(row.Status),
		InitiatedAt: row.InitiatedAt.UTC(),
		AllClearAt:  utcPtr(row.AllClearAt),
		ResolvedAt:  utcPtr(row.ResolvedAt),
		Version:     row.Version,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if row.ReportUpdatedAt != nil {
		e.Report = &emergency.Report{
			RootCause:         row.RootCause,
			Notes:             row.ReportNotes,
			CorrectiveActions: row.CorrectiveActions,
			UpdatedAt:         row.ReportUpdatedAt.UTC(),
		}
	}
	return e
}

func toTimelineRow(entry emergency.TimelineEntry) model.TimelineEntry {
	return model.TimelineEntry{
		EntryID:     entry.ID,
		EventID:     entry.EventID,
		Position:    entry.Position,
		Action:      entry.Action,
		Notes:       entry.Notes,
		PerformedBy: entry.PerformedBy,
		Timestamp:   entry.Timestamp.UTC(),
	}
}

func mapTimelineEntry(row model.TimelineEntry) emergency.TimelineEntry {
	return emergency.TimelineEntry{
		ID:          row.EntryID,
		EventID:     row.EventID,
		Position:    row.Position,
		Action:      row.Action,
		Notes:       row.Notes,
		PerformedBy: row.PerformedBy,
		Timestamp:   row.Timestamp.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
